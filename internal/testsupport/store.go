package testsupport

import (
	"context"
	"testing"

	"reelfactory/internal/config"
	"reelfactory/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRunningJob creates a job and moves it to running.
func NewRunningJob(t testing.TB, store *jobs.Store, kind jobs.Kind, totalUnits int) *jobs.Job {
	t.Helper()

	ctx := context.Background()
	job, err := store.CreateJob(ctx, kind, nil, totalUnits)
	if err != nil {
		t.Fatalf("store.CreateJob: %v", err)
	}
	running := jobs.StateRunning
	job, err = store.UpdateJob(ctx, job.ID, jobs.Patch{State: &running})
	if err != nil {
		t.Fatalf("store.UpdateJob: %v", err)
	}
	return job
}
