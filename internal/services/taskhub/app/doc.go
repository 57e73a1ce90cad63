// Package server composes and runs the taskhub process boundary.
//
// It hosts the JSON/HTTP API and an optional gRPC health endpoint over one
// SQLite store, and sweeps expired idempotency records in the background.
package server
