/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package solver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/netip"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"

	"github.com/spacebird-dev/externalip-manager/pkg/apis/v1alpha1"
	"github.com/spacebird-dev/externalip-manager/pkg/defaults"
	"github.com/spacebird-dev/externalip-manager/pkg/errors"
)

// Registry holds one solver instance per (solver config, family) pair so
// state such as the ipAPI response cache is shared across every source
// referencing the same solver.
type Registry struct {
	mu      sync.Mutex
	solvers map[registryKey]*registryEntry

	lockTimeout  time.Duration
	queryTimeout time.Duration
}

type registryKey struct {
	config string
	family Family
}

type registryEntry struct {
	sem    chan struct{}
	solver Solver
}

// NewRegistry creates an empty solver registry.
func NewRegistry() *Registry {
	return &Registry{
		solvers:      make(map[registryKey]*registryEntry),
		lockTimeout:  defaults.SolverLockTimeout,
		queryTimeout: defaults.SolverQueryTimeout,
	}
}

// Resolve queries the solver described by cfg for the given family,
// creating and caching the instance on first use. Access to each solver is
// serialized; waiting for a busy solver is bounded.
func (r *Registry) Resolve(ctx context.Context, cfg *v1alpha1.SolverConfig, family Family, svc *corev1.Service) ([]netip.Addr, error) {
	entry, err := r.entryFor(cfg, family)
	if err != nil {
		return nil, err
	}

	select {
	case entry.sem <- struct{}{}:
		defer func() { <-entry.sem }()
	case <-time.After(r.lockTimeout):
		return nil, errors.Newf(errors.ErrCodeTimeout,
			"timed out waiting for solver %s/%s", cfg.Kind(), family)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	queryCtx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	start := time.Now()
	addrs, err := entry.solver.GetAddresses(queryCtx, family, svc)
	observeQuery(entry.solver.Kind(), family, start, err)
	return addrs, err
}

func (r *Registry) entryFor(cfg *v1alpha1.SolverConfig, family Family) (*registryEntry, error) {
	key, err := keyFor(cfg, family)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.solvers[key]; ok {
		return entry, nil
	}

	s, err := New(cfg, r)
	if err != nil {
		return nil, err
	}
	entry := &registryEntry{
		sem:    make(chan struct{}, 1),
		solver: s,
	}
	r.solvers[key] = entry
	return entry, nil
}

// keyFor derives the identity of a solver from its canonical config.
// Struct field order makes the JSON deterministic, so value-equal configs
// map to the same solver instance.
func keyFor(cfg *v1alpha1.SolverConfig, family Family) (registryKey, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return registryKey{}, fmt.Errorf("failed to derive solver key: %w", err)
	}
	return registryKey{config: string(raw), family: family}, nil
}

// Len returns the number of instantiated solvers. Used by tests and the
// registry size gauge.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.solvers)
}
