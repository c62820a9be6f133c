package daemonrun

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"reelfactory/internal/jobs"
	"reelfactory/internal/testsupport"
)

func TestPIDFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	if pid, err := ReadPID(dir); err != nil || pid != 0 {
		t.Fatalf("expected no pid, got %d err=%v", pid, err)
	}
	if err := writePIDFile(filepath.Join(dir, PIDFileName)); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	pid, err := ReadPID(dir)
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}
	if pid != os.Getpid() {
		t.Fatalf("pid = %d, want %d", pid, os.Getpid())
	}
}

func TestReadPIDRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, PIDFileName), []byte("not-a-pid\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadPID(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestBuildPipelinesRegistersBothKinds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)

	pipelines, prompter, err := buildPipelines(context.Background(), cfg, store, nil)
	if err != nil {
		t.Fatalf("buildPipelines: %v", err)
	}
	if prompter == nil || len(prompter.Niches()) == 0 {
		t.Fatal("expected a video prompter with niche templates")
	}
	kinds := map[jobs.Kind]int{}
	for _, p := range pipelines {
		kinds[p.PipelineKind()] = len(p.AgentList())
	}
	if kinds[jobs.KindContent] != 5 || kinds[jobs.KindVideo] != 3 {
		t.Fatalf("unexpected pipelines %v", kinds)
	}
}
