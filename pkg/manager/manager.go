/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package manager

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"

	"github.com/spacebird-dev/externalip-manager/pkg/defaults"
	"github.com/spacebird-dev/externalip-manager/pkg/errors"
	"github.com/spacebird-dev/externalip-manager/pkg/k8s/events"
	"github.com/spacebird-dev/externalip-manager/pkg/solver"
	"github.com/spacebird-dev/externalip-manager/pkg/source"
)

const (
	// FieldManager identifies this controller in managedFields and
	// as the reporting controller on published Events.
	FieldManager = "externalip-manager"

	// AnnotationClusterSource names the ClusterExternalIPSource a
	// Service draws its external IPs from.
	AnnotationClusterSource = "externalip.spacebird.dev/cluster-external-ip-source"
)

// Config holds the manager runtime options.
type Config struct {
	// DryRun logs intended changes without patching any Service.
	DryRun bool

	// Interval between reconciliation runs. Zero means
	// defaults.ReconcileInterval.
	Interval time.Duration
}

// Manager reconciles the externalIPs of annotated Services against
// their ClusterExternalIPSources. A single Manager owns the solver
// registry, so solver caches and rate limits are shared across runs.
type Manager struct {
	config  Config
	typed   kubernetes.Interface
	sources *source.Registry
	solvers *solver.Registry
	events  *events.Recorder
}

// New creates a Manager reconciling through the given clients.
func New(config Config, typed kubernetes.Interface, dyn dynamic.Interface, rec *events.Recorder) *Manager {
	if config.Interval <= 0 {
		config.Interval = defaults.ReconcileInterval
	}
	return &Manager{
		config:  config,
		typed:   typed,
		sources: source.NewRegistry(dyn, rec),
		solvers: solver.NewRegistry(),
		events:  rec,
	}
}

// Run reconciles on the configured interval until ctx is canceled.
// Individual run failures are logged and counted, never fatal.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		if err := m.Reconcile(ctx); err != nil {
			slog.ErrorContext(ctx, "reconciliation run failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Reconcile performs a single reconciliation run over all annotated
// Services. Per-Service failures are reported as Events and collected;
// the returned error joins them. A nil return means every annotated
// Service is up to date.
func (m *Manager) Reconcile(ctx context.Context) error {
	run := uuid.NewString()
	log := slog.With("run", run)

	start := time.Now()
	defer func() {
		reconcileDuration.Observe(time.Since(start).Seconds())
	}()

	if err := m.refreshSources(ctx); err != nil {
		reconcileTotal.WithLabelValues(statusError).Inc()
		return errors.Wrap(errors.ErrCodeKube, "unable to refresh source registry", err)
	}
	log.DebugContext(ctx, "refreshed source registry", "sources", m.sources.Len())

	svcs, err := m.findAnnotatedServices(ctx)
	if err != nil {
		reconcileTotal.WithLabelValues(statusError).Inc()
		return err
	}
	log.InfoContext(ctx, "found annotated services", "count", len(svcs))
	managedServices.Set(float64(len(svcs)))

	var errs []error
	for i := range svcs {
		if err := m.reconcileService(ctx, log, &svcs[i]); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		reconcileTotal.WithLabelValues(statusError).Inc()
		return fmt.Errorf("%d of %d annotated services failed to reconcile: %w",
			len(errs), len(svcs), stderrors.Join(errs...))
	}
	reconcileTotal.WithLabelValues(statusSuccess).Inc()
	return nil
}

func (m *Manager) refreshSources(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaults.ReconcileK8sTimeout)
	defer cancel()
	return m.sources.Refresh(ctx)
}

// findAnnotatedServices lists Services across all namespaces and keeps
// those carrying the cluster source annotation.
func (m *Manager) findAnnotatedServices(ctx context.Context) ([]corev1.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, defaults.ReconcileK8sTimeout)
	defer cancel()

	list, err := m.typed.CoreV1().Services(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeKube, "unable to list services", err)
	}

	var out []corev1.Service
	for _, svc := range list.Items {
		if _, ok := svc.Annotations[AnnotationClusterSource]; ok {
			out = append(out, svc)
		}
	}
	return out, nil
}

func (m *Manager) reconcileService(ctx context.Context, log *slog.Logger, svc *corev1.Service) error {
	log = log.With("service", svc.Namespace+"/"+svc.Name)
	sourceName := svc.Annotations[AnnotationClusterSource]

	current, err := parseAddresses(svc.Spec.ExternalIPs)
	if err != nil {
		log.ErrorContext(ctx, "service has invalid externalIPs entries", "error", err)
		m.events.Warning(ctx, svc,
			events.ReasonInvalidExternalIPs,
			events.ActionResolvingExternalIP,
			"Service has invalid externalIPs entries: "+err.Error())
		return err
	}

	src, ok := m.sources.Get(sourceName)
	if !ok {
		if inv, bad := m.sources.Invalid(sourceName); bad {
			log.ErrorContext(ctx, "referenced ClusterExternalIPSource is invalid",
				"source", sourceName,
				"error", inv.Err)
			m.events.Warning(ctx, inv.Object,
				events.ReasonFailingValidation,
				events.ActionValidatingSource,
				"Source is invalid: "+inv.Err.Error())
			return inv.Err
		}
		err := errors.Newf(errors.ErrCodeNotFound, "ClusterExternalIPSource %q not found", sourceName)
		log.ErrorContext(ctx, "referenced ClusterExternalIPSource not found", "source", sourceName)
		m.events.Warning(ctx, svc,
			events.ReasonFailingSource,
			events.ActionValidatingSource,
			"Could not retrieve ClusterExternalIPSource: "+err.Error())
		return err
	}

	resolved, err := src.Query(ctx, svc, m.solvers)
	if err != nil {
		log.ErrorContext(ctx, "failed to query external IP addresses",
			"source_kind", src.Kind(),
			"source_name", src.Name(),
			"error", err)
		m.events.Warning(ctx, svc,
			events.ReasonFailingQuery,
			events.ActionResolvingExternalIP,
			"Failed to query external IP addresses: "+err.Error())
		return err
	}

	want := addressSet(resolved)
	if addressSet(current).Equal(want) {
		log.InfoContext(ctx, "service externalIPs already up to date",
			"addresses", sets.List(want))
		return nil
	}
	log.InfoContext(ctx, "externalIPs mismatch, updating service",
		"current", svc.Spec.ExternalIPs,
		"new", sets.List(want))

	if m.config.DryRun {
		log.InfoContext(ctx, "dry-run mode, not applying changes")
		return nil
	}

	if err := m.patchExternalIPs(ctx, svc, sets.List(want)); err != nil {
		patchTotal.WithLabelValues(statusError).Inc()
		log.ErrorContext(ctx, "failed to update service", "error", err)
		return err
	}
	patchTotal.WithLabelValues(statusSuccess).Inc()
	log.InfoContext(ctx, "service updated", "addresses", sets.List(want))
	m.events.Normal(ctx, svc,
		events.ReasonExternalIPsUpdated,
		events.ActionResolvingExternalIP,
		"Updated externalIPs from ClusterExternalIPSource "+sourceName)
	return nil
}

// patchExternalIPs overwrites spec.externalIPs with a merge patch.
func (m *Manager) patchExternalIPs(ctx context.Context, svc *corev1.Service, addrs []string) error {
	patch, err := json.Marshal(map[string]any{
		"spec": map[string]any{
			"externalIPs": addrs,
		},
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "unable to encode patch", err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaults.ReconcileK8sTimeout)
	defer cancel()

	_, err = m.typed.CoreV1().Services(svc.Namespace).Patch(ctx, svc.Name,
		types.MergePatchType, patch,
		metav1.PatchOptions{FieldManager: FieldManager})
	if err != nil {
		return errors.Wrap(errors.ErrCodeKube,
			fmt.Sprintf("unable to patch service %s/%s", svc.Namespace, svc.Name), err)
	}
	return nil
}

func parseAddresses(raw []string) ([]netip.Addr, error) {
	addrs := make([]netip.Addr, 0, len(raw))
	for _, s := range raw {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidAddress,
				fmt.Sprintf("invalid externalIPs entry %q", s), err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

func addressSet(addrs []netip.Addr) sets.Set[string] {
	set := sets.New[string]()
	for _, a := range addrs {
		set.Insert(a.String())
	}
	return set
}
