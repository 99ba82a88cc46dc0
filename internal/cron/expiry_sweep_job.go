package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/pharmacore-backend/internal/batches"
	"github.com/angelmondragon/pharmacore-backend/internal/quarantine"
	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
	"go.uber.org/multierr"
)

type batchSweeper interface {
	SweepExpired(ctx context.Context, today time.Time) (batches.SweepResult, error)
}

type autoQuarantiner interface {
	AutoQuarantineExpired(ctx context.Context, checkDate time.Time) (quarantine.AutoQuarantineResult, error)
}

type ExpirySweepJobParams struct {
	Logger  *logger.Logger
	Sweeper batchSweeper
	// Quarantine is optional; when nil expired batches are only marked EXPIRED.
	Quarantine autoQuarantiner
}

// NewExpirySweepJob quarantines expired stock (when enabled) and then
// retires whatever ACTIVE batches remain past their expiry date.
func NewExpirySweepJob(params ExpirySweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("batch sweeper required")
	}
	return &expirySweepJob{
		logg:       params.Logger,
		sweeper:    params.Sweeper,
		quarantine: params.Quarantine,
		now:        time.Now,
	}, nil
}

type expirySweepJob struct {
	logg       *logger.Logger
	sweeper    batchSweeper
	quarantine autoQuarantiner
	now        func() time.Time
}

func (j *expirySweepJob) Name() string { return "expiry-sweep" }

func (j *expirySweepJob) Run(ctx context.Context) error {
	today := j.now().UTC()
	var errs error

	if j.quarantine != nil {
		result, err := j.quarantine.AutoQuarantineExpired(ctx, today)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("auto-quarantine: %w", err))
		} else if result.Failed > 0 {
			j.logg.Warn(j.logg.WithField(ctx, "failed", result.Failed), "some expired batches could not be quarantined")
		}
	}

	if _, err := j.sweeper.SweepExpired(ctx, today); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("batch sweep: %w", err))
	}
	return errs
}
