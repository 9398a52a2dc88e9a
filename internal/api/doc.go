// Package api implements the HTTP REST API and WebSocket feed for the
// weather station service.
//
// This package provides:
//   - REST endpoints for the latest telemetry, diagnostics and history
//   - Lifecycle endpoints that enable, disable and clear faults on the
//     telemetry service
//   - A WebSocket hub that broadcasts every published snapshot and
//     errorCode event
//   - Middleware stack (request ID, logging, recovery, body size limit)
//   - The Prometheus scrape endpoint at /metrics
//
// The server works without a history store; the history endpoints then
// answer 503.
package api
