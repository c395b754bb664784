/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package solver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/netip"
	"time"

	"github.com/spacebird-dev/externalip-manager/pkg/defaults"
	"github.com/spacebird-dev/externalip-manager/pkg/errors"
)

const (
	myIPURLv4 = "https://api4.my-ip.io/v2/ip.json"
	myIPURLv6 = "https://api6.my-ip.io/v2/ip.json"
)

// myIPProvider queries my-ip.io.
type myIPProvider struct{}

type myIPResponse struct {
	Success bool   `json:"success"`
	IP      string `json:"ip"`
	Type    string `json:"type"`
}

func (p *myIPProvider) name() string { return "myIp" }

func (p *myIPProvider) fetch(ctx context.Context, family Family, client *http.Client) providerResponse {
	url := myIPURLv4
	if family == IPv6 {
		url = myIPURLv6
	}

	var parsed myIPResponse
	if resp := fetchJSON(ctx, client, url, defaults.MyIPCacheTTL, &parsed); resp != nil {
		return *resp
	}

	addr, err := netip.ParseAddr(parsed.IP)
	if err != nil {
		return providerResponse{
			ttl: defaults.MyIPCacheTTL,
			err: errors.Newf(errors.ErrCodeSolverFailed,
				"my-ip.io returned invalid address %q", parsed.IP),
		}
	}
	return providerResponse{ttl: defaults.MyIPCacheTTL, addrs: []netip.Addr{addr}}
}

// fetchJSON performs the shared provider request handling: GET, 429
// detection, status check, JSON decode. It returns a non-nil error
// response when the request failed, or nil when out was populated.
func fetchJSON(ctx context.Context, client *http.Client, url string, ttl time.Duration, out any) *providerResponse {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &providerResponse{ttl: ttl, err: errors.Wrap(errors.ErrCodeInternal, "failed to build request", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return &providerResponse{ttl: ttl, err: errors.Wrap(errors.ErrCodeSolverFailed, "IP provider request failed", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &providerResponse{ttl: ttl, err: errors.Newf(errors.ErrCodeRateLimited,
			"rate limited by IP provider, backing off for %d seconds", int(ttl.Seconds()))}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &providerResponse{ttl: ttl, err: errors.Newf(errors.ErrCodeSolverFailed,
			"IP provider returned status %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &providerResponse{ttl: ttl, err: errors.Wrap(errors.ErrCodeSolverFailed,
			"IP provider response is invalid", err)}
	}
	return nil
}
