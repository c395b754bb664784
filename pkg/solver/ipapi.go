/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package solver

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"time"

	"golang.org/x/time/rate"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/utils/clock"

	"github.com/spacebird-dev/externalip-manager/pkg/apis/v1alpha1"
	"github.com/spacebird-dev/externalip-manager/pkg/defaults"
	"github.com/spacebird-dev/externalip-manager/pkg/errors"
)

// ipProvider is a single what-is-my-IP backend. fetch never returns a Go
// error; failures are encoded in the providerResponse so they can be
// cached alongside successes.
type ipProvider interface {
	name() string
	fetch(ctx context.Context, family Family, client *http.Client) providerResponse
}

// providerResponse is a provider result plus its cache lifetime.
type providerResponse struct {
	ttl       time.Duration
	timestamp time.Time
	addrs     []netip.Addr
	err       error
}

func (r *providerResponse) expiredAt(now time.Time) bool {
	return now.After(r.timestamp.Add(r.ttl))
}

func (r *providerResponse) remainingAt(now time.Time) time.Duration {
	rem := r.timestamp.Add(r.ttl).Sub(now)
	if rem < 0 {
		return 0
	}
	return rem
}

// ipAPISolver caches provider responses and backs off on rate limits.
// Instances are shared across sources via the registry, so a provider is
// queried once per cache window no matter how many Services reference it.
type ipAPISolver struct {
	provider ipProvider
	client   *http.Client
	limiter  *rate.Limiter
	cache    *providerResponse
	clock    clock.PassiveClock
}

func newIPAPI(cfg *v1alpha1.IPAPIConfig) (*ipAPISolver, error) {
	var provider ipProvider
	switch cfg.Provider {
	case v1alpha1.ProviderMyIP:
		provider = &myIPProvider{}
	case v1alpha1.ProviderIpify:
		provider = &ipifyProvider{}
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidSource,
			"unknown ipAPI provider %q", cfg.Provider)
	}
	return newIPAPIWithProvider(provider), nil
}

func newIPAPIWithProvider(provider ipProvider) *ipAPISolver {
	return &ipAPISolver{
		provider: provider,
		client:   newHTTPClient(),
		// Front-stop: even with an expired cache, never hit a public API
		// more than a couple of times per minute.
		limiter: rate.NewLimiter(rate.Every(30*time.Second), 3),
		clock:   clock.RealClock{},
	}
}

func (s *ipAPISolver) Kind() string { return "ipAPI" }

func (s *ipAPISolver) GetAddresses(ctx context.Context, family Family, _ *corev1.Service) ([]netip.Addr, error) {
	now := s.clock.Now()

	if s.cache != nil && !s.cache.expiredAt(now) {
		if s.cache.err == nil {
			slog.InfoContext(ctx, "reusing cached addresses for IP API",
				"provider", s.provider.name(),
				"cache_remaining_secs", int(s.cache.remainingAt(now).Seconds()))
			return s.cache.addrs, nil
		}
		if errors.IsCode(s.cache.err, errors.ErrCodeRateLimited) {
			slog.DebugContext(ctx, "respecting cached ratelimit response",
				"provider", s.provider.name(),
				"backoff_remaining_secs", int(s.cache.remainingAt(now).Seconds()))
			return nil, s.cache.err
		}
	}

	if !s.limiter.Allow() {
		return nil, errors.Newf(errors.ErrCodeRateLimited,
			"local request budget for provider %s exhausted", s.provider.name())
	}

	resp := s.provider.fetch(ctx, family, s.client)
	resp.timestamp = now

	switch {
	case resp.err == nil:
		s.cache = &resp
		return resp.addrs, nil
	case errors.IsCode(resp.err, errors.ErrCodeRateLimited):
		if s.cache != nil && errors.IsCode(s.cache.err, errors.ErrCodeRateLimited) {
			// Repeated rate limit responses back off exponentially.
			backoff := min(s.cache.ttl*2, defaults.IPAPIBackoffMax)
			slog.DebugContext(ctx, "hit rate limit repeatedly, backing off exponentially",
				"provider", s.provider.name(),
				"backoff_secs", int(backoff.Seconds()))
			resp.ttl = backoff
		}
		s.cache = &resp
		return nil, resp.err
	default:
		// Transient failures are not cached; the next run retries.
		s.cache = nil
		return nil, resp.err
	}
}

// newHTTPClient builds the outbound HTTP client with explicit transport
// timeouts.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: defaults.IPAPIRequestTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   defaults.HTTPConnectTimeout,
				KeepAlive: defaults.HTTPKeepAlive,
			}).DialContext,
			TLSHandshakeTimeout:   defaults.HTTPTLSHandshakeTimeout,
			ResponseHeaderTimeout: defaults.HTTPResponseHeaderTimeout,
			IdleConnTimeout:       defaults.HTTPIdleConnTimeout,
		},
	}
}
