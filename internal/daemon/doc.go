// Package daemon coordinates the long-running reelfactory process.
//
// It wires configuration, the job store, the workflow manager and the event
// consumers (notifications, metrics, the websocket relay and the content
// schedule) into a single lifecycle with flock-based locking to prevent
// multiple instances sharing one data directory.
//
// Keep orchestration logic here: pipeline stages live in their own packages
// while the daemon focuses on startup, shutdown, and high level coordination.
package daemon
