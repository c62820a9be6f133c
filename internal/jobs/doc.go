// Package jobs owns the durable record of pipeline jobs and the entities they
// produce (posts, videos, agents), backed by SQLite.
//
// The store enforces the job lifecycle: states only move forward
// (pending → running → completed | failed | cancelled), terminal states are
// sinks, progress never decreases while running, and completed units never
// exceed total units. Every write is synchronous so the orchestrator can
// persist a checkpoint before it proceeds to the next stage.
package jobs
