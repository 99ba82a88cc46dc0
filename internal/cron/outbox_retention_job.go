package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
)

const (
	defaultEventRetention = 30 * 24 * time.Hour
	defaultDLQRetention   = 90 * 24 * time.Hour
	deadLetterWindow      = 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type publishedEventPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type deadLetterStore interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// OutboxRetentionJobParams wires the nightly notification outbox cleanup.
// Zero retention values fall back to 30 days for published events and 90
// days for dead letters.
type OutboxRetentionJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Events        publishedEventPruner
	DeadLetters   deadLetterStore
	EventRetain   time.Duration
	DeadLetterTTL time.Duration
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	db          txRunner
	events      publishedEventPruner
	deadLetters deadLetterStore
	eventRetain time.Duration
	dlqRetain   time.Duration
	now         func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Events == nil:
		return nil, errors.New("outbox repository required")
	case params.DeadLetters == nil:
		return nil, errors.New("dead letter repository required")
	}
	job := &outboxRetentionJob{
		logg:        params.Logger,
		db:          params.DB,
		events:      params.Events,
		deadLetters: params.DeadLetters,
		eventRetain: params.EventRetain,
		dlqRetain:   params.DeadLetterTTL,
		now:         time.Now,
	}
	if job.eventRetain <= 0 {
		job.eventRetain = defaultEventRetention
	}
	if job.dlqRetain <= 0 {
		job.dlqRetain = defaultDLQRetention
	}
	return job, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run prunes delivered notification events and old dead letters in one
// transaction, then reports dead letters recorded in the last day.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	eventCutoff := now.Add(-j.eventRetain)
	dlqCutoff := now.Add(-j.dlqRetain)

	var eventsDeleted, deadLettersDeleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		if eventsDeleted, err = j.events.DeletePublishedBefore(ctx, tx, eventCutoff); err != nil {
			return err
		}
		deadLettersDeleted, err = j.deadLetters.DeleteFailedBefore(ctx, tx, dlqCutoff)
		return err
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}

	ctx = j.logg.WithFields(ctx, map[string]any{
		"event_cutoff":        eventCutoff,
		"events_deleted":      eventsDeleted,
		"dlq_cutoff":          dlqCutoff,
		"dead_letters_pruned": deadLettersDeleted,
	})
	j.logg.Info(ctx, "outbox retention cleanup complete")

	recent, err := j.deadLetters.CountSince(ctx, now.Add(-deadLetterWindow))
	if err != nil {
		j.logg.Error(ctx, "failed to count recent dead letters", err)
		return nil
	}
	if recent > 0 {
		j.logg.Warn(j.logg.WithField(ctx, "dead_letters_24h", recent), "notification events dead-lettered in the last day")
	}
	return nil
}
