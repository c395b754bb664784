/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package v1alpha1

import (
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

const (
	// Group is the API group of the ClusterExternalIPSource CRD.
	Group = "externalip.spacebird.dev"
	// Version is the API version of this package's types.
	Version = "v1alpha1"
	// Kind is the CRD kind.
	Kind = "ClusterExternalIPSource"
	// Plural is the CRD resource name.
	Plural = "clusterexternalipsources"
)

// GroupVersionResource identifies the CRD for dynamic client access.
var GroupVersionResource = schema.GroupVersionResource{
	Group:    Group,
	Version:  Version,
	Resource: Plural,
}

// GroupVersionKind identifies the CRD kind.
var GroupVersionKind = schema.GroupVersionKind{
	Group:   Group,
	Version: Version,
	Kind:    Kind,
}

// ClusterExternalIPSource is a cluster-wide source of external IP
// addresses for annotated Services.
type ClusterExternalIPSource struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec ClusterExternalIPSourceSpec `json:"spec"`
}

// ClusterExternalIPSourceSpec configures per-family solver lists.
// At least one of IPv4 or IPv6 must be set.
type ClusterExternalIPSourceSpec struct {
	// IPv4 configures solvers for IPv4 addresses.
	IPv4 *SolversConfig `json:"ipv4,omitempty"`
	// IPv6 configures solvers for IPv6 addresses.
	IPv6 *SolversConfig `json:"ipv6,omitempty"`
}

// SolversConfig is an ordered list of solvers plus the strategy for
// querying them.
type SolversConfig struct {
	// QueryMode controls how the solver list is queried. "firstFound"
	// (default) stops at the first solver returning addresses, "all"
	// queries every solver and combines the results.
	QueryMode QueryMode `json:"queryMode,omitempty"`
	// Solvers must contain at least one entry.
	Solvers []SolverConfig `json:"solvers"`
}

// QueryMode selects the solver list query strategy.
type QueryMode string

const (
	// QueryModeFirstFound queries solvers in order until one returns
	// addresses.
	QueryModeFirstFound QueryMode = "firstFound"
	// QueryModeAll queries all solvers and returns every address found.
	QueryModeAll QueryMode = "all"
)

// SolverConfig is a union; exactly one member must be set.
type SolverConfig struct {
	// Static returns a fixed list of addresses.
	Static *StaticConfig `json:"static,omitempty"`
	// DNSHostname resolves a hostname and returns its A/AAAA records.
	DNSHostname *DNSHostnameConfig `json:"dnsHostname,omitempty"`
	// LoadBalancerIngress returns the addresses assigned to the Service
	// in .status.loadBalancer.ingress.
	LoadBalancerIngress *LoadBalancerIngressConfig `json:"loadBalancerIngress,omitempty"`
	// IPAPI queries a public what-is-my-IP service.
	IPAPI *IPAPIConfig `json:"ipAPI,omitempty"`
	// Merge assembles one address from masked parts of other solvers.
	Merge *MergeConfig `json:"merge,omitempty"`
}

// StaticConfig holds a fixed address list.
type StaticConfig struct {
	Addresses []string `json:"addresses"`
}

// DNSHostnameConfig resolves a host through DNS.
type DNSHostnameConfig struct {
	// Host is the hostname to resolve.
	Host string `json:"host"`
}

// LoadBalancerIngressConfig has no options.
type LoadBalancerIngressConfig struct{}

// IPAPIConfig selects a what-is-my-IP provider.
type IPAPIConfig struct {
	// Provider is the service used to retrieve public IP information.
	Provider IPAPIProvider `json:"provider"`
}

// IPAPIProvider names a supported what-is-my-IP service.
type IPAPIProvider string

const (
	// ProviderMyIP uses my-ip.io.
	ProviderMyIP IPAPIProvider = "myIp"
	// ProviderIpify uses ipify.org.
	ProviderIpify IPAPIProvider = "ipify"
)

// MergeConfig combines address parts from multiple solvers into one
// address. Each partial solver's result is masked and the parts summed.
type MergeConfig struct {
	PartialSolvers []PartialSolver `json:"partialSolvers"`
}

// PartialSolver contributes the bits of its solver's address selected by
// Mask to a merged address.
type PartialSolver struct {
	// Mask selects the bits taken from this solver's result, e.g.
	// "255.255.255.0" for the network part of an IPv4 address.
	Mask string `json:"mask"`
	// Solver produces the address the mask is applied to. Merge solvers
	// cannot be nested.
	Solver SolverConfig `json:"solver"`
}

// Kind returns the manifest key of the configured solver, e.g.
// "dnsHostname", or "" when no member is set.
func (s *SolverConfig) Kind() string {
	switch {
	case s.Static != nil:
		return "static"
	case s.DNSHostname != nil:
		return "dnsHostname"
	case s.LoadBalancerIngress != nil:
		return "loadBalancerIngress"
	case s.IPAPI != nil:
		return "ipAPI"
	case s.Merge != nil:
		return "merge"
	default:
		return ""
	}
}

// Validate checks that exactly one union member is set and that the
// member itself is well-formed. Nested merges are rejected.
func (s *SolverConfig) Validate() error {
	set := 0
	for _, present := range []bool{
		s.Static != nil,
		s.DNSHostname != nil,
		s.LoadBalancerIngress != nil,
		s.IPAPI != nil,
		s.Merge != nil,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("solver must configure exactly one kind, got %d", set)
	}

	switch {
	case s.Static != nil && len(s.Static.Addresses) == 0:
		return fmt.Errorf("static solver has an empty address list")
	case s.DNSHostname != nil && s.DNSHostname.Host == "":
		return fmt.Errorf("dnsHostname solver has no host")
	case s.IPAPI != nil:
		switch s.IPAPI.Provider {
		case ProviderMyIP, ProviderIpify:
		default:
			return fmt.Errorf("unknown ipAPI provider %q", s.IPAPI.Provider)
		}
	case s.Merge != nil:
		if len(s.Merge.PartialSolvers) == 0 {
			return fmt.Errorf("merge solver has no partialSolvers")
		}
		for i, ps := range s.Merge.PartialSolvers {
			if ps.Solver.Merge != nil {
				return fmt.Errorf("partialSolvers[%d]: merge solvers cannot be nested", i)
			}
			if err := ps.Solver.Validate(); err != nil {
				return fmt.Errorf("partialSolvers[%d]: %w", i, err)
			}
			if ps.Mask == "" {
				return fmt.Errorf("partialSolvers[%d]: mask is required", i)
			}
		}
	}
	return nil
}

// Validate checks the per-family block.
func (c *SolversConfig) Validate() error {
	if len(c.Solvers) == 0 {
		return fmt.Errorf("solvers list is empty")
	}
	switch c.QueryMode {
	case "", QueryModeFirstFound, QueryModeAll:
	default:
		return fmt.Errorf("unknown queryMode %q", c.QueryMode)
	}
	for i := range c.Solvers {
		if err := c.Solvers[i].Validate(); err != nil {
			return fmt.Errorf("solvers[%d]: %w", i, err)
		}
	}
	return nil
}

// Validate checks the full spec. A source needs at least one family block.
func (s *ClusterExternalIPSourceSpec) Validate() error {
	if s.IPv4 == nil && s.IPv6 == nil {
		return fmt.Errorf("at least one of ipv4 or ipv6 must be configured")
	}
	if s.IPv4 != nil {
		if err := s.IPv4.Validate(); err != nil {
			return fmt.Errorf("ipv4: %w", err)
		}
	}
	if s.IPv6 != nil {
		if err := s.IPv6.Validate(); err != nil {
			return fmt.Errorf("ipv6: %w", err)
		}
	}
	return nil
}

// Mode returns the effective query mode, defaulting to firstFound.
func (c *SolversConfig) Mode() QueryMode {
	if c.QueryMode == "" {
		return QueryModeFirstFound
	}
	return c.QueryMode
}
