package batches

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
)

type sweepRepository interface {
	MarkExpired(ctx context.Context, day time.Time) (int64, error)
	MarkDepleted(ctx context.Context) (int64, error)
}

// SweepResult counts the batches moved by one sweep.
type SweepResult struct {
	Expired  int64 `json:"expired"`
	Depleted int64 `json:"depleted"`
}

// Sweeper reconciles batch status with the calendar and stock levels.
type Sweeper struct {
	repo sweepRepository
	logg *logger.Logger
}

// NewSweeper wires the expiry-crossing sweep.
func NewSweeper(repo sweepRepository, logg *logger.Logger) (*Sweeper, error) {
	if repo == nil {
		return nil, fmt.Errorf("batch repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Sweeper{repo: repo, logg: logg}, nil
}

// SweepExpired marks ACTIVE batches that expired before today as EXPIRED and
// ACTIVE batches with no stock as DEPLETED. Both steps run even if one fails.
func (s *Sweeper) SweepExpired(ctx context.Context, today time.Time) (SweepResult, error) {
	day := today.UTC().Truncate(24 * time.Hour)
	var (
		result SweepResult
		errs   error
	)

	expired, err := s.repo.MarkExpired(ctx, day)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("mark expired batches: %w", err))
	} else {
		result.Expired = expired
	}

	depleted, err := s.repo.MarkDepleted(ctx)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("mark depleted batches: %w", err))
	} else {
		result.Depleted = depleted
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"sweep_date": day.Format(time.DateOnly),
		"expired":    result.Expired,
		"depleted":   result.Depleted,
	})
	if errs != nil {
		s.logg.Error(logCtx, "batch expiry sweep incomplete", errs)
		return result, errs
	}
	s.logg.Info(logCtx, "batch expiry sweep completed")
	return result, nil
}
