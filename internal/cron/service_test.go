package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/pharmacore-backend/pkg/config"
	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
)

type fakeLock struct {
	acquired bool
	held     bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held || f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestService(t *testing.T, lock Lock, c *clock, entries ...Entry) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: NewRegistry(entries...),
		Lock:     lock,
		Now:      c.Now,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service
}

func TestServiceRunCycleRunsAllDueJobsEvenOnFailure(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC)}
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	service := newTestService(t, &fakeLock{}, c,
		Entry{Job: success, At: config.TimeOfDay{Hour: 6}},
		Entry{Job: failure, At: config.TimeOfDay{Hour: 0, Minute: 30}},
	)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if success.runs != 1 {
		t.Fatalf("expected success job to run once, ran %d", success.runs)
	}
	if failure.runs != 1 {
		t.Fatalf("expected failure job to run once, ran %d", failure.runs)
	}
}

func TestServiceRunsJobOncePerDay(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 4, 5, 59, 0, 0, time.UTC)}
	job := &testJob{name: "expiry-check"}
	service := newTestService(t, &fakeLock{}, c, Entry{Job: job, At: config.TimeOfDay{Hour: 6}})
	ctx := context.Background()

	_ = service.runCycle(ctx)
	if job.runs != 0 {
		t.Fatalf("job ran before its slot")
	}

	c.now = time.Date(2026, 3, 4, 6, 0, 0, 0, time.UTC)
	_ = service.runCycle(ctx)
	c.now = time.Date(2026, 3, 4, 6, 1, 0, 0, time.UTC)
	_ = service.runCycle(ctx)
	if job.runs != 1 {
		t.Fatalf("expected one run on day one, got %d", job.runs)
	}

	c.now = time.Date(2026, 3, 5, 6, 0, 0, 0, time.UTC)
	_ = service.runCycle(ctx)
	if job.runs != 2 {
		t.Fatalf("expected second run on day two, got %d", job.runs)
	}
}

func TestServiceSkipsCycleWhenLockHeld(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC)}
	job := &testJob{name: "expiry-sweep"}
	lock := &fakeLock{held: true}
	service := newTestService(t, lock, c, Entry{Job: job, At: config.TimeOfDay{Minute: 30}})

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job should not run without the lock")
	}

	// the slot stays due for the instance that does get the lock
	lock.held = false
	_ = service.runCycle(context.Background())
	if job.runs != 1 {
		t.Fatalf("expected job to run once lock frees up, got %d", job.runs)
	}
}

func TestServiceRunNow(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 4, 1, 0, 0, 0, time.UTC)}
	job := &testJob{name: "expiry-check"}
	service := newTestService(t, &fakeLock{}, c, Entry{Job: job, At: config.TimeOfDay{Hour: 6}})

	if err := service.RunNow(context.Background(), "expiry-check"); err != nil {
		t.Fatalf("run now: %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected job to run, got %d", job.runs)
	}
	if err := service.RunNow(context.Background(), "missing"); err == nil {
		t.Fatalf("expected unknown job error")
	}
}

func TestNewServiceRequiresDeps(t *testing.T) {
	if _, err := NewService(ServiceParams{Lock: &fakeLock{}}); err == nil {
		t.Fatalf("expected logger error")
	}
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
	if _, err := NewService(ServiceParams{Logger: logg}); err == nil {
		t.Fatalf("expected lock error")
	}
}
