// Package services defines shared utilities consumed by the pipeline stages and
// the external collaborators they call.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, job kinds, stage names, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that tag collaborator
//     failures so the orchestrator can report them consistently.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability) stays uniform across both pipelines.
package services
