/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package solver

import (
	"context"
	"log/slog"
	"math/bits"
	"net/netip"

	corev1 "k8s.io/api/core/v1"

	"github.com/spacebird-dev/externalip-manager/pkg/apis/v1alpha1"
	"github.com/spacebird-dev/externalip-manager/pkg/errors"
)

// mergeSolver assembles one address from masked parts produced by other
// solvers: a part is the last address its solver returned AND'ed with the
// part mask, and the parts are summed into the final address.
//
// Parts are resolved through the shared registry so their state (e.g. the
// ipAPI cache) is shared with direct uses of the same solver.
type mergeSolver struct {
	parts    []mergePart
	registry *Registry
}

type mergePart struct {
	mask netip.Addr
	cfg  v1alpha1.SolverConfig
}

func newMerge(cfg *v1alpha1.MergeConfig, reg *Registry) (*mergeSolver, error) {
	if reg == nil {
		return nil, errors.New(errors.ErrCodeInternal, "merge solver requires a registry")
	}

	parts := make([]mergePart, 0, len(cfg.PartialSolvers))
	var maskSum uint128
	for _, ps := range cfg.PartialSolvers {
		mask, err := netip.ParseAddr(ps.Mask)
		if err != nil {
			return nil, errors.Newf(errors.ErrCodeInvalidSource,
				"merge part mask %q is not a valid IP", ps.Mask)
		}
		maskSum = maskSum.add(addrBits(mask))
		parts = append(parts, mergePart{mask: mask, cfg: ps.Solver})
	}

	// The mask family cannot be checked against the queried family yet,
	// but the masks must at least combine into a full address.
	if maskSum != fullIPv4 && maskSum != fullIPv6 {
		return nil, errors.Newf(errors.ErrCodeInvalidSource,
			"merge part masks do not combine to a full address, got sum %s", maskSum)
	}

	return &mergeSolver{parts: parts, registry: reg}, nil
}

func (s *mergeSolver) Kind() string { return "merge" }

func (s *mergeSolver) GetAddresses(ctx context.Context, family Family, svc *corev1.Service) ([]netip.Addr, error) {
	// The masks are known to build a valid address; here they must also
	// match the family being queried.
	for _, part := range s.parts {
		if !family.Matches(part.mask) {
			return nil, errors.Newf(errors.ErrCodeInvalidSource,
				"mismatched merge mask family, expected %s masks, got %s", family, part.mask)
		}
	}

	var partAddrs []netip.Addr
	var sum uint128
	for _, part := range s.parts {
		addrs, err := s.registry.Resolve(ctx, &part.cfg, family, svc)
		if err != nil {
			return nil, err
		}
		if len(addrs) == 0 {
			return nil, errors.New(errors.ErrCodeSolverFailed,
				"merge partialSolver returned no addresses")
		}
		addr := addrs[len(addrs)-1]
		partAddrs = append(partAddrs, addr)
		sum = sum.add(addrBits(addr).and(addrBits(part.mask)))
	}

	merged := bitsToAddr(sum, family)
	slog.InfoContext(ctx, "assembled address from parts",
		"parts", addrStrings(partAddrs),
		"address", merged.String())
	return []netip.Addr{merged}, nil
}

// uint128 is the numeric view of an address for mask arithmetic. IPv4
// addresses occupy the low 32 bits.
type uint128 struct {
	hi, lo uint64
}

var (
	fullIPv4 = uint128{hi: 0, lo: 0xFFFFFFFF}
	fullIPv6 = uint128{hi: ^uint64(0), lo: ^uint64(0)}
)

func (u uint128) add(v uint128) uint128 {
	lo, carry := bits.Add64(u.lo, v.lo, 0)
	hi, _ := bits.Add64(u.hi, v.hi, carry)
	return uint128{hi: hi, lo: lo}
}

func (u uint128) and(v uint128) uint128 {
	return uint128{hi: u.hi & v.hi, lo: u.lo & v.lo}
}

func (u uint128) String() string {
	return bitsToAddr(u, IPv6).String()
}

func addrBits(addr netip.Addr) uint128 {
	if addr.Is4() || addr.Is4In6() {
		b := addr.Unmap().As4()
		return uint128{lo: uint64(b[0])<<24 | uint64(b[1])<<16 | uint64(b[2])<<8 | uint64(b[3])}
	}
	b := addr.As16()
	var u uint128
	for i := 0; i < 8; i++ {
		u.hi = u.hi<<8 | uint64(b[i])
		u.lo = u.lo<<8 | uint64(b[i+8])
	}
	return u
}

func bitsToAddr(u uint128, family Family) netip.Addr {
	if family == IPv4 {
		return netip.AddrFrom4([4]byte{
			byte(u.lo >> 24), byte(u.lo >> 16), byte(u.lo >> 8), byte(u.lo),
		})
	}
	var b [16]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(u.hi >> (56 - 8*i))
		b[i+8] = byte(u.lo >> (56 - 8*i))
	}
	return netip.AddrFrom16(b)
}

func addrStrings(addrs []netip.Addr) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}
