/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package solver

import (
	"context"
	"log/slog"
	"net/netip"

	corev1 "k8s.io/api/core/v1"

	"github.com/spacebird-dev/externalip-manager/pkg/apis/v1alpha1"
	"github.com/spacebird-dev/externalip-manager/pkg/errors"
)

// staticSolver returns a fixed address list, filtered by family.
type staticSolver struct {
	addresses []netip.Addr
}

func newStatic(cfg *v1alpha1.StaticConfig) (*staticSolver, error) {
	addrs := make([]netip.Addr, 0, len(cfg.Addresses))
	for _, raw := range cfg.Addresses {
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, errors.Newf(errors.ErrCodeInvalidAddress,
				"static solver address %q is not a valid IP", raw)
		}
		addrs = append(addrs, addr)
	}
	return &staticSolver{addresses: addrs}, nil
}

func (s *staticSolver) Kind() string { return "static" }

func (s *staticSolver) GetAddresses(ctx context.Context, family Family, _ *corev1.Service) ([]netip.Addr, error) {
	var out []netip.Addr
	for _, addr := range s.addresses {
		if !family.Matches(addr) {
			slog.WarnContext(ctx, "ignoring address of wrong family in static solver",
				"address", addr.String(),
				"family", family)
			continue
		}
		out = append(out, addr)
	}
	return out, nil
}
