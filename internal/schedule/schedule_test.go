package schedule

import (
	"context"
	"testing"

	"reelfactory/internal/jobs"
	"reelfactory/internal/testsupport"
	"reelfactory/internal/workflow"
)

type starterStub struct {
	running bool
	err     error
	starts  []workflow.ContentParams
}

func (s *starterStub) StartContent(_ context.Context, params workflow.ContentParams) (workflow.StartResult, error) {
	if s.err != nil {
		return workflow.StartResult{}, s.err
	}
	s.starts = append(s.starts, params)
	return workflow.StartResult{JobID: "job", Kind: jobs.KindContent, TotalUnits: params.Count}, nil
}

func (s *starterStub) Status(context.Context, string, jobs.Kind) (workflow.StatusView, error) {
	if s.running {
		return workflow.StatusView{Job: &jobs.Job{ID: "busy"}, IsRunning: true}, nil
	}
	return workflow.StatusView{}, nil
}

func TestNewDisabledWithoutExpression(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Schedule.ContentCron = ""
	s, err := New(cfg, &starterStub{}, nil)
	if err != nil || s != nil {
		t.Fatalf("expected nil scheduler, got %v %v", s, err)
	}
	// Nil schedulers are safe to start and stop.
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
}

func TestNewRejectsBadExpression(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Schedule.ContentCron = "every tuesday"
	if _, err := New(cfg, &starterStub{}, nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestTickStartsConfiguredCount(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Schedule.ContentCron = "0 9 * * *"
	cfg.Schedule.ContentCount = 3
	stub := &starterStub{}
	s, err := New(cfg, stub, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !s.Tick(context.Background()) {
		t.Fatal("expected a job to start")
	}
	if len(stub.starts) != 1 || stub.starts[0].Count != 3 {
		t.Fatalf("unexpected starts %+v", stub.starts)
	}
}

func TestTickSkipsWhileContentRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Schedule.ContentCron = "@hourly"
	stub := &starterStub{running: true}
	s, _ := New(cfg, stub, nil)
	if s.Tick(context.Background()) || len(stub.starts) != 0 {
		t.Fatal("expected tick to be skipped")
	}
	stub.running = false
	stub.err = workflow.ErrShuttingDown
	if s.Tick(context.Background()) {
		t.Fatal("start failure must not report a started job")
	}
}

func TestStartAndStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Schedule.ContentCron = "*/5 * * * *"
	s, _ := New(cfg, &starterStub{}, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
	s.Stop()
	s.Stop()
}
