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

	"github.com/spacebird-dev/externalip-manager/pkg/errors"
)

// loadBalancerIngressSolver reads the addresses a load-balancer
// implementation assigned to the Service in .status.loadBalancer.ingress.
type loadBalancerIngressSolver struct{}

func newLoadBalancerIngress() *loadBalancerIngressSolver {
	return &loadBalancerIngressSolver{}
}

func (s *loadBalancerIngressSolver) Kind() string { return "loadBalancerIngress" }

func (s *loadBalancerIngressSolver) GetAddresses(ctx context.Context, family Family, svc *corev1.Service) ([]netip.Addr, error) {
	if svc == nil {
		return nil, errors.New(errors.ErrCodeSolverFailed, "no service to read status from")
	}
	if len(svc.Status.LoadBalancer.Ingress) == 0 {
		return nil, errors.New(errors.ErrCodeSolverFailed,
			"no status.loadBalancer.ingress field on service")
	}

	var out []netip.Addr
	for _, ingress := range svc.Status.LoadBalancer.Ingress {
		if ingress.IP == "" {
			// Hostname-only ingress entries carry no address to publish.
			continue
		}
		addr, err := netip.ParseAddr(ingress.IP)
		if err != nil {
			slog.WarnContext(ctx, "ignoring unparsable loadBalancer ingress address",
				"service", svc.Namespace+"/"+svc.Name,
				"address", ingress.IP)
			continue
		}
		if family.Matches(addr) {
			out = append(out, addr)
		}
	}
	return out, nil
}
