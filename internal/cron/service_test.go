package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/qanlink/qanlink-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

type fakeLock struct {
	acquired  bool
	acquireOK bool
	released  int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.acquired = true
	return f.acquireOK, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.released++
	return nil
}

type countingJob struct {
	name string
	runs int
	err  error
}

func (c *countingJob) Name() string { return c.name }

func (c *countingJob) Run(context.Context) error {
	c.runs++
	return c.err
}

func TestServiceRunsJobsWhenLockHeld(t *testing.T) {
	lock := &fakeLock{acquireOK: true}
	first := &countingJob{name: "first"}
	second := &countingJob{name: "second"}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(first, second),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if first.runs != 1 || second.runs != 1 {
		t.Fatalf("both jobs should run once, got %d and %d", first.runs, second.runs)
	}
	if lock.released != 1 {
		t.Fatalf("lock should be released, got %d releases", lock.released)
	}
}

func TestServiceSkipsCycleWithoutLock(t *testing.T) {
	lock := &fakeLock{acquireOK: false}
	job := &countingJob{name: "job"}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatal("jobs must not run when another instance holds the lock")
	}
	if lock.released != 0 {
		t.Fatal("an unheld lock must not be released")
	}
}

func TestServiceContinuesPastFailingJob(t *testing.T) {
	lock := &fakeLock{acquireOK: true}
	failing := &countingJob{name: "failing", err: errors.New("boom")}
	healthy := &countingJob{name: "healthy"}

	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(failing, healthy),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if healthy.runs != 1 {
		t.Fatal("a failing job must not block the rest of the cycle")
	}
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	lock := &fakeLock{acquireOK: true}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Lock:     lock,
		Interval: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRegistryIgnoresNilJobs(t *testing.T) {
	registry := NewRegistry(nil, &countingJob{name: "only"})
	registry.Register(nil)

	jobs := registry.Jobs()
	if len(jobs) != 1 || jobs[0].Name() != "only" {
		t.Fatalf("unexpected registry contents: %v", jobs)
	}
}
