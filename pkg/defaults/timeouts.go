/*
Copyright © 2025 spacebird.dev
SPDX-License-Identifier: Apache-2.0
*/
package defaults

import "time"

// Reconciliation defaults.
const (
	// ReconcileInterval is the default pause between reconciliation runs.
	ReconcileInterval = 60 * time.Second

	// ReconcileK8sTimeout is the timeout for Kubernetes API calls made
	// during a reconciliation run.
	ReconcileK8sTimeout = 30 * time.Second
)

// Solver timeouts.
const (
	// SolverLockTimeout bounds the wait for a shared solver instance.
	// Solvers are shared across sources, so a stuck solver must not stall
	// every service referencing it.
	SolverLockTimeout = 5 * time.Second

	// SolverQueryTimeout is the overall budget for a single solver query.
	SolverQueryTimeout = 30 * time.Second

	// DNSLookupTimeout is the timeout for a single hostname resolution.
	DNSLookupTimeout = 10 * time.Second
)

// IP API provider defaults.
const (
	// IPAPIRequestTimeout is the per-request timeout for what-is-my-IP
	// provider calls.
	IPAPIRequestTimeout = 10 * time.Second

	// IPAPIBackoffMax caps the exponential backoff applied after repeated
	// rate-limit responses from a provider.
	IPAPIBackoffMax = 2 * time.Hour

	// MyIPCacheTTL is how long my-ip.io responses are reused.
	MyIPCacheTTL = 900 * time.Second

	// IpifyCacheTTL is how long ipify.org responses are reused.
	IpifyCacheTTL = 300 * time.Second
)

// HTTP client transport timeouts for outbound requests.
const (
	// HTTPConnectTimeout is the timeout for establishing connections.
	HTTPConnectTimeout = 5 * time.Second

	// HTTPTLSHandshakeTimeout is the timeout for TLS handshake.
	HTTPTLSHandshakeTimeout = 5 * time.Second

	// HTTPResponseHeaderTimeout is the timeout for reading response headers.
	HTTPResponseHeaderTimeout = 10 * time.Second

	// HTTPIdleConnTimeout is the timeout for idle connections in the pool.
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPKeepAlive is the keep-alive duration for connections.
	HTTPKeepAlive = 30 * time.Second
)

// Metrics server timeouts.
const (
	// ServerReadTimeout is the maximum duration for reading a request.
	ServerReadTimeout = 10 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	ServerWriteTimeout = 30 * time.Second

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second
)
