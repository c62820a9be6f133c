// Package preflight provides readiness checks for the filesystem paths and
// external services that reelfactory depends on.
//
// The daemon runs the local checks (RunLocal) before accepting jobs so a
// read-only media directory or full disk is reported at startup instead of
// halfway through a video. The CLI "reelfactory status --check" command runs
// RunAll, which adds the service checks.
package preflight
