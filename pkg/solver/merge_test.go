/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package solver

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacebird-dev/externalip-manager/pkg/apis/v1alpha1"
	"github.com/spacebird-dev/externalip-manager/pkg/errors"
)

func staticCfg(addrs ...string) v1alpha1.SolverConfig {
	return v1alpha1.SolverConfig{Static: &v1alpha1.StaticConfig{Addresses: addrs}}
}

func TestMergeRejectsIncompleteMasks(t *testing.T) {
	_, err := newMerge(&v1alpha1.MergeConfig{
		PartialSolvers: []v1alpha1.PartialSolver{
			{Mask: "255.255.255.0", Solver: staticCfg("192.0.2.1")},
			{Mask: "0.0.0.127", Solver: staticCfg("0.0.0.7")},
		},
	}, NewRegistry())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidSource))
	assert.Contains(t, err.Error(), "do not combine to a full address")
}

func TestMergeIPv4(t *testing.T) {
	// Network part from one solver, host part from another.
	m, err := newMerge(&v1alpha1.MergeConfig{
		PartialSolvers: []v1alpha1.PartialSolver{
			{Mask: "255.255.255.0", Solver: staticCfg("203.0.113.42")},
			{Mask: "0.0.0.255", Solver: staticCfg("0.0.0.7")},
		},
	}, NewRegistry())
	require.NoError(t, err)

	addrs, err := m.GetAddresses(t.Context(), IPv4, nil)
	require.NoError(t, err)
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("203.0.113.7")}, addrs)
}

func TestMergeIPv6(t *testing.T) {
	// Prefix from one solver, interface identifier from another.
	m, err := newMerge(&v1alpha1.MergeConfig{
		PartialSolvers: []v1alpha1.PartialSolver{
			{Mask: "ffff:ffff:ffff:ffff::", Solver: staticCfg("2001:db8:1:2:dead:beef::1")},
			{Mask: "::ffff:ffff:ffff:ffff", Solver: staticCfg("::aaaa:bbbb:cccc:dddd")},
		},
	}, NewRegistry())
	require.NoError(t, err)

	addrs, err := m.GetAddresses(t.Context(), IPv6, nil)
	require.NoError(t, err)
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("2001:db8:1:2:aaaa:bbbb:cccc:dddd")}, addrs)
}

func TestMergeMaskFamilyMismatch(t *testing.T) {
	m, err := newMerge(&v1alpha1.MergeConfig{
		PartialSolvers: []v1alpha1.PartialSolver{
			{Mask: "255.255.255.0", Solver: staticCfg("203.0.113.42")},
			{Mask: "0.0.0.255", Solver: staticCfg("0.0.0.7")},
		},
	}, NewRegistry())
	require.NoError(t, err)

	_, err = m.GetAddresses(t.Context(), IPv6, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatched merge mask family")
}

func TestMergeUsesLastAddress(t *testing.T) {
	// A part solver returning multiple addresses contributes its last one.
	m, err := newMerge(&v1alpha1.MergeConfig{
		PartialSolvers: []v1alpha1.PartialSolver{
			{Mask: "255.255.255.255", Solver: staticCfg("192.0.2.1", "192.0.2.2")},
		},
	}, NewRegistry())
	require.NoError(t, err)

	addrs, err := m.GetAddresses(t.Context(), IPv4, nil)
	require.NoError(t, err)
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("192.0.2.2")}, addrs)
}

func TestMergePartWithoutAddressesFails(t *testing.T) {
	// The static part holds only an IPv6 address, so an IPv4 query finds
	// nothing to merge.
	m, err := newMerge(&v1alpha1.MergeConfig{
		PartialSolvers: []v1alpha1.PartialSolver{
			{Mask: "255.255.255.255", Solver: staticCfg("2001:db8::1")},
		},
	}, NewRegistry())
	require.NoError(t, err)

	_, err = m.GetAddresses(t.Context(), IPv4, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSolverFailed))
}

func TestAddrBitsRoundTrip(t *testing.T) {
	for _, raw := range []string{"0.0.0.0", "255.255.255.255", "203.0.113.7", "2001:db8::1", "::"} {
		addr := netip.MustParseAddr(raw)
		family := IPv4
		if addr.Is6() && !addr.Is4In6() {
			family = IPv6
		}
		assert.Equal(t, addr, bitsToAddr(addrBits(addr), family), "addr: %s", raw)
	}
}
