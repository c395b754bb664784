/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package solver

import (
	"context"
	stderrors "errors"
	"net"
	"net/netip"

	corev1 "k8s.io/api/core/v1"

	"github.com/spacebird-dev/externalip-manager/pkg/apis/v1alpha1"
	"github.com/spacebird-dev/externalip-manager/pkg/defaults"
	"github.com/spacebird-dev/externalip-manager/pkg/errors"
)

// ipLookuper is the slice of net.Resolver used by dnsHostname; tests swap
// in a stub.
type ipLookuper interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// dnsHostnameSolver resolves a hostname's A or AAAA records.
type dnsHostnameSolver struct {
	host     string
	resolver ipLookuper
}

func newDNSHostname(cfg *v1alpha1.DNSHostnameConfig) *dnsHostnameSolver {
	return &dnsHostnameSolver{
		host:     cfg.Host,
		resolver: net.DefaultResolver,
	}
}

func (s *dnsHostnameSolver) Kind() string { return "dnsHostname" }

func (s *dnsHostnameSolver) GetAddresses(ctx context.Context, family Family, _ *corev1.Service) ([]netip.Addr, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, defaults.DNSLookupTimeout)
	defer cancel()

	addrs, err := s.resolver.LookupNetIP(lookupCtx, family.Network(), s.host)
	if err != nil {
		// NXDOMAIN or an empty answer is "no addresses", not a failure;
		// the query mode decides whether another solver gets a chance.
		var dnsErr *net.DNSError
		if stderrors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, nil
		}
		return nil, errors.WrapWithContext(errors.ErrCodeSolverFailed,
			"DNS lookup failed", err, map[string]any{
				"host":   s.host,
				"family": string(family),
			})
	}

	out := make([]netip.Addr, 0, len(addrs))
	for _, addr := range addrs {
		// LookupNetIP can return 4-in-6 mapped addresses on "ip4".
		addr = addr.Unmap()
		if family.Matches(addr) {
			out = append(out, addr)
		}
	}
	return out, nil
}
