package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
)

type fakeEventPruner struct {
	cutoff time.Time
	calls  int
	err    error
}

func (f *fakeEventPruner) DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	return 7, f.err
}

type fakeDeadLetters struct {
	cutoff    time.Time
	since     time.Time
	pruned    int
	recent    int64
	countErr  error
	deleteErr error
}

func (f *fakeDeadLetters) DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	f.pruned++
	f.cutoff = cutoff
	return 2, f.deleteErr
}

func (f *fakeDeadLetters) CountSince(ctx context.Context, since time.Time) (int64, error) {
	f.since = since
	return f.recent, f.countErr
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func retentionJob(t *testing.T, events *fakeEventPruner, dlq *fakeDeadLetters, eventRetain time.Duration) *outboxRetentionJob {
	t.Helper()
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:          passthroughTx{},
		Events:      events,
		DeadLetters: dlq,
		EventRetain: eventRetain,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	return job.(*outboxRetentionJob)
}

func TestOutboxRetentionJobPrunesEventsAndDeadLetters(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	events := &fakeEventPruner{}
	dlq := &fakeDeadLetters{recent: 3}
	job := retentionJob(t, events, dlq, 7*24*time.Hour)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.AddDate(0, 0, -7); !events.cutoff.Equal(want) {
		t.Fatalf("event cutoff %s, want %s", events.cutoff, want)
	}
	if want := now.Add(-defaultDLQRetention); !dlq.cutoff.Equal(want) {
		t.Fatalf("dlq cutoff %s, want %s", dlq.cutoff, want)
	}
	if want := now.Add(-deadLetterWindow); !dlq.since.Equal(want) {
		t.Fatalf("dead letter window %s, want %s", dlq.since, want)
	}
}

func TestOutboxRetentionJobStopsOnDeleteError(t *testing.T) {
	events := &fakeEventPruner{err: errors.New("boom")}
	dlq := &fakeDeadLetters{}
	job := retentionJob(t, events, dlq, 0)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if dlq.pruned != 0 {
		t.Fatalf("dead letters should not be pruned after event delete failed")
	}
}

func TestOutboxRetentionJobToleratesCountFailure(t *testing.T) {
	job := retentionJob(t, &fakeEventPruner{}, &fakeDeadLetters{countErr: errors.New("down")}, 0)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("count failure should not fail the job: %v", err)
	}
}

func TestNewOutboxRetentionJobRequiresDeadLetters(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:     passthroughTx{},
		Events: &fakeEventPruner{},
	})
	if err == nil {
		t.Fatal("expected error without dead letter store")
	}
}
