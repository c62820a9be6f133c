package events

import (
	"sync"
	"testing"

	"reelfactory/internal/jobs"
)

func TestHubDeliversInPublishOrder(t *testing.T) {
	hub := NewHub(16)
	sub := hub.Subscribe(Filter{})
	defer sub.Close()

	hub.Publish(JobStatus{JobID: "a", State: jobs.StateRunning})
	hub.Publish(SceneProcessing{JobID: "a", CurrentScene: 1})
	hub.Publish(JobCompleted{JobID: "a"})

	want := []Name{NameJobStatus, NameSceneProcessing, NameJobCompleted}
	var lastSeq uint64
	for i, name := range want {
		env := <-sub.C
		if env.Name != name {
			t.Fatalf("event %d: expected %s, got %s", i, name, env.Name)
		}
		if env.Seq <= lastSeq {
			t.Fatalf("event %d: sequence %d not increasing after %d", i, env.Seq, lastSeq)
		}
		if env.JobID != "a" || env.Time.IsZero() {
			t.Fatalf("event %d: unexpected envelope %#v", i, env)
		}
		lastSeq = env.Seq
	}
}

func TestHubFilters(t *testing.T) {
	hub := NewHub(16)
	byJob := hub.Subscribe(Filter{JobID: "b"})
	defer byJob.Close()
	terminal := hub.Subscribe(Filter{Names: []Name{NameJobFailed}})
	defer terminal.Close()

	hub.Publish(JobStatus{JobID: "a"})
	hub.Publish(JobStatus{JobID: "b"})
	hub.Publish(JobFailed{JobID: "a", Error: "boom"})

	if got := len(byJob.C); got != 1 {
		t.Fatalf("expected 1 event for job b, got %d", got)
	}
	if got := len(terminal.C); got != 1 {
		t.Fatalf("expected 1 failure event, got %d", got)
	}
	env := <-terminal.C
	failed, ok := env.Payload.(JobFailed)
	if !ok || failed.Error != "boom" {
		t.Fatalf("unexpected payload %#v", env.Payload)
	}
}

func TestHubDropsWhenSubscriberFull(t *testing.T) {
	hub := NewHub(1)
	sub := hub.Subscribe(Filter{})
	defer sub.Close()

	var dropped int
	hub.OnDrop(func(*Subscription) { dropped++ })

	hub.Publish(JobStatus{JobID: "a"})
	hub.Publish(JobStatus{JobID: "a"})
	hub.Publish(JobStatus{JobID: "a"})

	if hub.Dropped() != 2 || sub.Dropped() != 2 || dropped != 2 {
		t.Fatalf("expected 2 drops, got hub=%d sub=%d callback=%d", hub.Dropped(), sub.Dropped(), dropped)
	}
	if env := <-sub.C; env.Seq != 1 {
		t.Fatalf("expected first event to survive, got seq %d", env.Seq)
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	hub := NewHub(4)
	sub := hub.Subscribe(Filter{})
	sub.Close()
	sub.Close()

	if hub.Subscribers() != 0 {
		t.Fatalf("expected no subscribers, got %d", hub.Subscribers())
	}
	if _, ok := <-sub.C; ok {
		t.Fatal("expected closed channel")
	}
	hub.Publish(JobStatus{JobID: "a"})
}

func TestHubCloseEndsSubscriptions(t *testing.T) {
	hub := NewHub(4)
	sub := hub.Subscribe(Filter{})
	hub.Close()
	if _, ok := <-sub.C; ok {
		t.Fatal("expected channel closed by hub shutdown")
	}
	sub.Close()
	late := hub.Subscribe(Filter{})
	if _, ok := <-late.C; ok {
		t.Fatal("expected subscription on closed hub to be closed")
	}
}

func TestHubConcurrentPublishAndSubscribe(t *testing.T) {
	hub := NewHub(1024)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.Publish(JobStatus{JobID: "x"})
			}
		}()
		go func() {
			defer wg.Done()
			sub := hub.Subscribe(Filter{})
			sub.Close()
		}()
	}
	wg.Wait()
	if hub.Subscribers() != 0 {
		t.Fatalf("expected all subscriptions released, got %d", hub.Subscribers())
	}
}

func TestTerminalNames(t *testing.T) {
	for _, name := range []Name{NameJobCompleted, NameJobFailed, NameJobCancelled} {
		if !name.IsTerminal() {
			t.Fatalf("%s should be terminal", name)
		}
	}
	if NameSceneCompleted.IsTerminal() {
		t.Fatal("scene_completed is not terminal")
	}
}
