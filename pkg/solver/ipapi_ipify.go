/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package solver

import (
	"context"
	"net/http"
	"net/netip"

	"github.com/spacebird-dev/externalip-manager/pkg/defaults"
	"github.com/spacebird-dev/externalip-manager/pkg/errors"
)

const (
	ipifyURLv4 = "https://api.ipify.org?format=json"
	ipifyURLv6 = "https://api6.ipify.org?format=json"
)

// ipifyProvider queries ipify.org.
type ipifyProvider struct{}

type ipifyResponse struct {
	IP string `json:"ip"`
}

func (p *ipifyProvider) name() string { return "ipify" }

func (p *ipifyProvider) fetch(ctx context.Context, family Family, client *http.Client) providerResponse {
	url := ipifyURLv4
	if family == IPv6 {
		url = ipifyURLv6
	}

	var parsed ipifyResponse
	if resp := fetchJSON(ctx, client, url, defaults.IpifyCacheTTL, &parsed); resp != nil {
		return *resp
	}

	addr, err := netip.ParseAddr(parsed.IP)
	if err != nil {
		return providerResponse{
			ttl: defaults.IpifyCacheTTL,
			err: errors.Newf(errors.ErrCodeSolverFailed,
				"ipify returned invalid address %q", parsed.IP),
		}
	}
	return providerResponse{ttl: defaults.IpifyCacheTTL, addrs: []netip.Addr{addr}}
}
