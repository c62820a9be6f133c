// Package ipc exposes the daemon over JSON-RPC on a Unix socket and ships the
// matching client used by the CLI.
//
// Every method is registered on the "Factory" service. Requests carry plain
// values (job ids, kinds, page windows) and replies reuse the workflow and
// jobs models directly so the CLI renders exactly what the orchestrator
// reports.
package ipc
