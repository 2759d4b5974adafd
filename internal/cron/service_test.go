package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestAddJob_InvalidSpec(t *testing.T) {
	s := NewService()
	if err := s.AddJob("bad", "not a schedule", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for invalid spec")
	}
	if got := len(s.Jobs()); got != 0 {
		t.Fatalf("expected no jobs, got %d", got)
	}
}

func TestAddJob_Duplicate(t *testing.T) {
	s := NewService()
	noop := func(context.Context) error { return nil }
	if err := s.AddJob("refresh", "@every 10m", noop); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.AddJob("refresh", "@hourly", noop); err == nil {
		t.Fatal("expected duplicate name error")
	}
}

func TestAddJob_StandardAndDescriptorSpecs(t *testing.T) {
	s := NewService()
	noop := func(context.Context) error { return nil }
	for name, spec := range map[string]string{
		"five-field": "*/5 * * * *",
		"every":      "@every 10m",
		"daily":      "@daily",
	} {
		if err := s.AddJob(name, spec, noop); err != nil {
			t.Errorf("%s: unexpected error: %v", spec, err)
		}
	}
}

func TestRunJob_RecordsOutcome(t *testing.T) {
	s := NewService()
	fail := true
	err := s.AddJob("refresh", "@every 10m", func(context.Context) error {
		if fail {
			return errors.New("mcp unavailable")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.RunJob(context.Background(), "refresh"); err == nil {
		t.Fatal("expected job error")
	}
	st := s.Jobs()[0]
	if st.LastError != "mcp unavailable" || st.Runs != 1 {
		t.Fatalf("unexpected status after failure: %+v", st)
	}

	fail = false
	if err := s.RunJob(context.Background(), "refresh"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st = s.Jobs()[0]
	if st.LastError != "" || st.Runs != 2 || st.LastRunAt.IsZero() {
		t.Fatalf("unexpected status after success: %+v", st)
	}
}

func TestRunJob_Unknown(t *testing.T) {
	s := NewService()
	if err := s.RunJob(context.Background(), "nope"); err == nil {
		t.Fatal("expected unknown job error")
	}
}

func TestStart_FiresScheduledJobs(t *testing.T) {
	s := NewService()
	var runs atomic.Int32
	if err := s.AddJob("tick", "@every 1s", func(context.Context) error {
		runs.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	cancel()

	if runs.Load() == 0 {
		t.Fatal("job never fired")
	}
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestJobs_SortedWithNextRun(t *testing.T) {
	s := NewService()
	noop := func(context.Context) error { return nil }
	_ = s.AddJob("b", "@hourly", noop)
	_ = s.AddJob("a", "@daily", noop)

	jobs := s.Jobs()
	if len(jobs) != 2 || jobs[0].Name != "a" || jobs[1].Name != "b" {
		t.Fatalf("unexpected order: %+v", jobs)
	}
	if jobs[0].Spec != "@daily" {
		t.Errorf("unexpected spec %q", jobs[0].Spec)
	}
}
