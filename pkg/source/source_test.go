/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package source

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/spacebird-dev/externalip-manager/pkg/apis/v1alpha1"
	"github.com/spacebird-dev/externalip-manager/pkg/errors"
	"github.com/spacebird-dev/externalip-manager/pkg/solver"
)

func staticCfg(addrs ...string) v1alpha1.SolverConfig {
	return v1alpha1.SolverConfig{Static: &v1alpha1.StaticConfig{Addresses: addrs}}
}

func newCR(name string, spec v1alpha1.ClusterExternalIPSourceSpec) *v1alpha1.ClusterExternalIPSource {
	return &v1alpha1.ClusterExternalIPSource{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Spec:       spec,
	}
}

func TestCompileRejectsEmptySpec(t *testing.T) {
	_, err := Compile(newCR("empty", v1alpha1.ClusterExternalIPSourceSpec{}))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidSource))
}

func TestCompileRejectsPartiallyInvalidSpec(t *testing.T) {
	// A valid ipv4 block does not rescue a broken ipv6 block.
	_, err := Compile(newCR("half-broken", v1alpha1.ClusterExternalIPSourceSpec{
		IPv4: &v1alpha1.SolversConfig{Solvers: []v1alpha1.SolverConfig{staticCfg("192.0.2.1")}},
		IPv6: &v1alpha1.SolversConfig{},
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ipv6")
}

func TestQueryFirstFound(t *testing.T) {
	// The first solver yields nothing for IPv4, the second wins, the
	// third is never consulted.
	src, err := Compile(newCR("first-found", v1alpha1.ClusterExternalIPSourceSpec{
		IPv4: &v1alpha1.SolversConfig{
			Solvers: []v1alpha1.SolverConfig{
				staticCfg("2001:db8::1"), // nothing for IPv4
				staticCfg("192.0.2.1"),
				staticCfg("198.51.100.99"),
			},
		},
	}))
	require.NoError(t, err)

	addrs, err := src.Query(t.Context(), &corev1.Service{}, solver.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("192.0.2.1")}, addrs)
}

func TestQueryAllCollects(t *testing.T) {
	src, err := Compile(newCR("all", v1alpha1.ClusterExternalIPSourceSpec{
		IPv4: &v1alpha1.SolversConfig{
			QueryMode: v1alpha1.QueryModeAll,
			Solvers: []v1alpha1.SolverConfig{
				staticCfg("192.0.2.1"),
				staticCfg("2001:db8::1"), // nothing for IPv4, skipped
				staticCfg("198.51.100.99"),
			},
		},
	}))
	require.NoError(t, err)

	addrs, err := src.Query(t.Context(), &corev1.Service{}, solver.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, []netip.Addr{
		netip.MustParseAddr("192.0.2.1"),
		netip.MustParseAddr("198.51.100.99"),
	}, addrs)
}

func TestQueryCombinesFamilies(t *testing.T) {
	src, err := Compile(newCR("dual", v1alpha1.ClusterExternalIPSourceSpec{
		IPv4: &v1alpha1.SolversConfig{Solvers: []v1alpha1.SolverConfig{staticCfg("192.0.2.1")}},
		IPv6: &v1alpha1.SolversConfig{Solvers: []v1alpha1.SolverConfig{staticCfg("2001:db8::1")}},
	}))
	require.NoError(t, err)

	addrs, err := src.Query(t.Context(), &corev1.Service{}, solver.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, []netip.Addr{
		netip.MustParseAddr("192.0.2.1"),
		netip.MustParseAddr("2001:db8::1"),
	}, addrs)
}

func TestQueryFailsWhenNoSolverProduces(t *testing.T) {
	src, err := Compile(newCR("dry", v1alpha1.ClusterExternalIPSourceSpec{
		IPv4: &v1alpha1.SolversConfig{
			Solvers: []v1alpha1.SolverConfig{staticCfg("2001:db8::1")},
		},
	}))
	require.NoError(t, err)

	_, err = src.Query(t.Context(), &corev1.Service{}, solver.NewRegistry())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSolverFailed))
}

func TestQueryOneFamilyFailingFailsTheSource(t *testing.T) {
	// IPv4 resolves, IPv6 finds nothing: the source query fails rather
	// than silently publishing a partial address set.
	src, err := Compile(newCR("partial", v1alpha1.ClusterExternalIPSourceSpec{
		IPv4: &v1alpha1.SolversConfig{Solvers: []v1alpha1.SolverConfig{staticCfg("192.0.2.1")}},
		IPv6: &v1alpha1.SolversConfig{Solvers: []v1alpha1.SolverConfig{staticCfg("192.0.2.1")}},
	}))
	require.NoError(t, err)

	_, err = src.Query(t.Context(), &corev1.Service{}, solver.NewRegistry())
	require.Error(t, err)
}

func TestSourceMetadata(t *testing.T) {
	src, err := Compile(newCR("meta", v1alpha1.ClusterExternalIPSourceSpec{
		IPv4: &v1alpha1.SolversConfig{Solvers: []v1alpha1.SolverConfig{staticCfg("192.0.2.1")}},
	}))
	require.NoError(t, err)
	assert.Equal(t, "meta", src.Name())
	assert.Equal(t, "ClusterExternalIPSource", src.Kind())
}
