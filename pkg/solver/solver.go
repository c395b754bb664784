/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package solver

import (
	"context"
	"net/netip"

	corev1 "k8s.io/api/core/v1"

	"github.com/spacebird-dev/externalip-manager/pkg/apis/v1alpha1"
	"github.com/spacebird-dev/externalip-manager/pkg/errors"
)

// Family selects the address family a solver is queried for.
type Family string

const (
	// IPv4 queries A-record style addresses.
	IPv4 Family = "IPv4"
	// IPv6 queries AAAA-record style addresses.
	IPv6 Family = "IPv6"
)

// Matches reports whether addr belongs to the family.
func (f Family) Matches(addr netip.Addr) bool {
	switch f {
	case IPv4:
		return addr.Is4() || addr.Is4In6()
	case IPv6:
		return addr.Is6() && !addr.Is4In6()
	default:
		return false
	}
}

// Network returns the net.Resolver network string for the family.
func (f Family) Network() string {
	if f == IPv6 {
		return "ip6"
	}
	return "ip4"
}

// Solver resolves external IP addresses of one family.
//
// svc is the Service currently being reconciled, for solvers that read it
// (loadBalancerIngress). Implementations are not safe for concurrent use;
// the Registry serializes access.
type Solver interface {
	// Kind returns the manifest key of the solver, e.g. "dnsHostname".
	Kind() string
	// GetAddresses queries the solver. An empty, non-error result means
	// the solver ran but found nothing.
	GetAddresses(ctx context.Context, family Family, svc *corev1.Service) ([]netip.Addr, error)
}

// New builds a solver from its manifest config. reg is needed by merge
// solvers, which resolve their parts through the shared registry.
func New(cfg *v1alpha1.SolverConfig, reg *Registry) (Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSource, "invalid solver config", err)
	}
	switch {
	case cfg.Static != nil:
		return newStatic(cfg.Static)
	case cfg.DNSHostname != nil:
		return newDNSHostname(cfg.DNSHostname), nil
	case cfg.LoadBalancerIngress != nil:
		return newLoadBalancerIngress(), nil
	case cfg.IPAPI != nil:
		return newIPAPI(cfg.IPAPI)
	case cfg.Merge != nil:
		return newMerge(cfg.Merge, reg)
	default:
		return nil, errors.New(errors.ErrCodeInvalidSource, "solver config has no kind set")
	}
}
