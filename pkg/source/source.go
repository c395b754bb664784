/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package source

import (
	"context"
	"log/slog"
	"net/netip"

	corev1 "k8s.io/api/core/v1"

	"github.com/spacebird-dev/externalip-manager/pkg/apis/v1alpha1"
	"github.com/spacebird-dev/externalip-manager/pkg/errors"
	"github.com/spacebird-dev/externalip-manager/pkg/solver"
)

// Source is a compiled ClusterExternalIPSource, ready to be queried for a
// Service's external addresses.
type Source struct {
	name string
	v4   *solverList
	v6   *solverList
}

// solverList is one family's ordered solver configs plus query strategy.
type solverList struct {
	family  solver.Family
	mode    v1alpha1.QueryMode
	solvers []v1alpha1.SolverConfig
}

// Compile validates a ClusterExternalIPSource and builds its queryable
// form. Sources failing validation are rejected whole; a source with one
// broken family block never half-works.
func Compile(src *v1alpha1.ClusterExternalIPSource) (*Source, error) {
	if err := src.Spec.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSource, "invalid ClusterExternalIPSource", err)
	}

	s := &Source{name: src.Name}
	if src.Spec.IPv4 != nil {
		s.v4 = &solverList{
			family:  solver.IPv4,
			mode:    src.Spec.IPv4.Mode(),
			solvers: src.Spec.IPv4.Solvers,
		}
	}
	if src.Spec.IPv6 != nil {
		s.v6 = &solverList{
			family:  solver.IPv6,
			mode:    src.Spec.IPv6.Mode(),
			solvers: src.Spec.IPv6.Solvers,
		}
	}
	return s, nil
}

// Name returns the name of the ClusterExternalIPSource this was compiled
// from.
func (s *Source) Name() string {
	return s.name
}

// Kind returns the CRD kind backing this source.
func (s *Source) Kind() string {
	return v1alpha1.Kind
}

// Query resolves all configured families for svc using the shared solver
// registry and returns the combined address list.
func (s *Source) Query(ctx context.Context, svc *corev1.Service, reg *solver.Registry) ([]netip.Addr, error) {
	var addrs []netip.Addr
	if s.v4 != nil {
		found, err := s.v4.query(ctx, svc, reg)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, found...)
	}
	if s.v6 != nil {
		found, err := s.v6.query(ctx, svc, reg)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, found...)
	}
	return addrs, nil
}

func (l *solverList) query(ctx context.Context, svc *corev1.Service, reg *solver.Registry) ([]netip.Addr, error) {
	svcName := ""
	if svc != nil {
		svcName = svc.Namespace + "/" + svc.Name
	}

	var collected []netip.Addr
	for i := range l.solvers {
		cfg := &l.solvers[i]
		addrs, err := reg.Resolve(ctx, cfg, l.family, svc)
		if err != nil {
			slog.WarnContext(ctx, "failed to query solver",
				"service", svcName,
				"solver", cfg.Kind(),
				"family", l.family,
				"error", err)
			continue
		}
		if len(addrs) == 0 {
			slog.InfoContext(ctx, "solver returned no addresses",
				"service", svcName,
				"solver", cfg.Kind(),
				"family", l.family)
			continue
		}

		slog.DebugContext(ctx, "retrieved external addresses from solver",
			"service", svcName,
			"solver", cfg.Kind(),
			"family", l.family,
			"addresses", addrStrings(addrs))

		if l.mode == v1alpha1.QueryModeFirstFound {
			return addrs, nil
		}
		collected = append(collected, addrs...)
	}

	if l.mode == v1alpha1.QueryModeAll && len(collected) > 0 {
		return collected, nil
	}
	return nil, errors.Newf(errors.ErrCodeSolverFailed,
		"no %s addresses were returned by any solver", l.family)
}

func addrStrings(addrs []netip.Addr) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}
