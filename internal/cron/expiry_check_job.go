package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/pharmacore-backend/internal/checkruns"
	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmacore-backend/pkg/errors"
	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
)

const systemTriggeredBy = "system"

type expiryChecker interface {
	RunExpiryCheck(ctx context.Context, trigger enums.CheckTrigger, triggeredBy string) (*checkruns.Result, error)
}

type ExpiryCheckJobParams struct {
	Logger  *logger.Logger
	Checker expiryChecker
}

func NewExpiryCheckJob(params ExpiryCheckJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Checker == nil {
		return nil, fmt.Errorf("expiry checker required")
	}
	return &expiryCheckJob{logg: params.Logger, checker: params.Checker}, nil
}

type expiryCheckJob struct {
	logg    *logger.Logger
	checker expiryChecker
}

func (j *expiryCheckJob) Name() string { return "expiry-check" }

func (j *expiryCheckJob) Run(ctx context.Context) error {
	result, err := j.checker.RunExpiryCheck(ctx, enums.CheckTriggerScheduled, systemTriggeredBy)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeAlreadyRun) {
			j.logg.Warn(ctx, "expiry check skipped: another run is in progress")
			return nil
		}
		return fmt.Errorf("scheduled expiry check: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"run_id":             result.RunID.String(),
		"items_checked":      result.ItemsChecked,
		"alerts_generated":   result.AlertsGenerated,
		"duplicates_skipped": result.DuplicatesSkipped,
		"item_errors":        len(result.Errors),
	}), "scheduled expiry check completed")
	return nil
}
