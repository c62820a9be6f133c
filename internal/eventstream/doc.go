// Package eventstream serves orchestrator events to remote observers.
//
// GET /events upgrades to a WebSocket and streams one JSON frame per event,
// optionally narrowed to a single job with ?job=<id>. Each connection holds
// one hub subscription for its lifetime; there is no replay, so late
// observers reconcile through GET /api/status.
package eventstream
