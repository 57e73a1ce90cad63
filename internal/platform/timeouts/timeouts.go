// Package timeouts defines shared timeout constants used by the taskhub
// listeners.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// HTTPIdle caps how long keep-alive connections stay open between requests.
const HTTPIdle = 60 * time.Second

// Shutdown limits how long servers wait for in-flight requests during
// graceful shutdown.
const Shutdown = 10 * time.Second

// HealthCheck caps a single health check call.
const HealthCheck = time.Second
