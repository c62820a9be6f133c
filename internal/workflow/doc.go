// Package workflow drives jobs through their pipeline definitions.
//
// A Manager owns the registry of jobs running in this process. Starting a job
// persists it, marks it running, and hands it to a task that walks the
// pipeline's phases and steps in order, persisting progress and publishing
// events after every stage. Stop requests are cooperative: a flag checked
// before each stage and each iteration. Shutdown cancels in-flight
// collaborator calls and records the interrupted jobs as failed.
//
// Pipelines are data. A Definition lists phases, each a sequence of stage
// steps that may repeat, plus an error policy: AbortOnError fails the job on
// the first stage error; ContinuePerIteration isolates a failed iteration and
// moves on. Persistence failures, cancellation and panics always end the job.
package workflow
