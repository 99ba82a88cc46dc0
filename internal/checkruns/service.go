package checkruns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pharmacore-backend/internal/batches"
	"github.com/angelmondragon/pharmacore-backend/internal/expiry"
	"github.com/angelmondragon/pharmacore-backend/internal/notifications"
	dbpkg "github.com/angelmondragon/pharmacore-backend/pkg/db"
	"github.com/angelmondragon/pharmacore-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmacore-backend/pkg/errors"
	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
	"github.com/angelmondragon/pharmacore-backend/pkg/metrics"
	"github.com/angelmondragon/pharmacore-backend/pkg/outbox"
	"github.com/angelmondragon/pharmacore-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/pharmacore-backend/pkg/pagination"
)

const (
	defaultStaleAfter = time.Hour
	runningIndex      = "ux_expiry_check_runs_single_running"
	// sqlite reports the indexed column instead of the index name
	runningColumn = "expiry_check_runs.status"
)

type runRepository interface {
	ReapStale(ctx context.Context, cutoff, now time.Time, message string) (int64, error)
	FindRunning(ctx context.Context) (*models.CheckRun, error)
	FindCompletedOn(ctx context.Context, checkDate time.Time) (*models.CheckRun, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.CheckRun, error)
	Create(ctx context.Context, run *models.CheckRun) error
	Finish(ctx context.Context, run *models.CheckRun) (bool, error)
	List(ctx context.Context, params pagination.Params) ([]models.CheckRun, int64, error)
}

type tierSource interface {
	ListActive(ctx context.Context) ([]models.AlertTierConfig, error)
}

type stockSource interface {
	ListStockedBatches(ctx context.Context) ([]batches.StockedBatch, error)
	ListUntrackedProducts(ctx context.Context) ([]models.Product, error)
}

type alertRecorder interface {
	RecordCandidate(ctx context.Context, runID *uuid.UUID, checkDate time.Time, candidate expiry.Candidate) (*models.ExpiryAlert, bool, error)
	MarkSent(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// Service runs and reports expiry checks.
type Service interface {
	RunExpiryCheck(ctx context.Context, trigger enums.CheckTrigger, triggeredBy string) (*Result, error)
	ListRuns(ctx context.Context, params pagination.Params) (pagination.Page[models.CheckRun], error)
	GetRun(ctx context.Context, id uuid.UUID) (*models.CheckRun, error)
}

// ItemError reports a candidate whose alert could not be recorded.
type ItemError struct {
	ItemType enums.ExpiryItemType `json:"item_type"`
	ItemID   uuid.UUID            `json:"item_id"`
	TierID   uuid.UUID            `json:"tier_id"`
	Message  string               `json:"message"`
}

// Result summarizes a finished run.
type Result struct {
	RunID             uuid.UUID            `json:"run_id"`
	CheckDate         string               `json:"check_date"`
	Trigger           enums.CheckTrigger   `json:"trigger"`
	Status            enums.CheckRunStatus `json:"status"`
	ItemsChecked      int                  `json:"items_checked"`
	AlertsGenerated   int                  `json:"alerts_generated"`
	DuplicatesSkipped int                  `json:"duplicates_skipped"`
	ExecutionTimeMs   int64                `json:"execution_time_ms"`
	Errors            []ItemError          `json:"errors"`
}

// ServiceParams wire the orchestrator.
type ServiceParams struct {
	Runs       runRepository
	Tiers      tierSource
	Stock      stockSource
	Alerts     alertRecorder
	Gateway    notifications.Gateway
	Metrics    *metrics.ExpiryMetrics
	Logger     *logger.Logger
	StaleAfter time.Duration
	Now        func() time.Time
}

type service struct {
	runs       runRepository
	tiers      tierSource
	stock      stockSource
	alerts     alertRecorder
	gateway    notifications.Gateway
	metrics    *metrics.ExpiryMetrics
	logg       *logger.Logger
	staleAfter time.Duration
	now        func() time.Time
}

// NewService builds the check run orchestrator.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Runs == nil:
		return nil, fmt.Errorf("check run repository required")
	case params.Tiers == nil:
		return nil, fmt.Errorf("tier source required")
	case params.Stock == nil:
		return nil, fmt.Errorf("stock source required")
	case params.Alerts == nil:
		return nil, fmt.Errorf("alert store required")
	case params.Gateway == nil:
		return nil, fmt.Errorf("notification gateway required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		runs:       params.Runs,
		tiers:      params.Tiers,
		stock:      params.Stock,
		alerts:     params.Alerts,
		gateway:    params.Gateway,
		metrics:    params.Metrics,
		logg:       params.Logger,
		staleAfter: staleAfter,
		now:        func() time.Time { return now().UTC() },
	}, nil
}

func (s *service) RunExpiryCheck(ctx context.Context, trigger enums.CheckTrigger, triggeredBy string) (*Result, error) {
	if !trigger.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid trigger")
	}
	triggeredBy = strings.TrimSpace(triggeredBy)
	if triggeredBy == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "triggered_by required")
	}

	start := s.now()
	checkDate := dayOf(start)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"trigger":    trigger,
		"check_date": checkDate.Format(time.DateOnly),
	})

	if err := s.reapStale(ctx, start); err != nil {
		return nil, err
	}
	if trigger == enums.CheckTriggerManual {
		completed, err := s.runs.FindCompletedOn(ctx, checkDate)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load completed run")
		}
		if completed != nil {
			return nil, alreadyRun("expiry check already completed today", completed)
		}
	}
	running, err := s.runs.FindRunning(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load running check")
	}
	if running != nil {
		return nil, alreadyRun("expiry check already running", running)
	}

	run := &models.CheckRun{
		ID:          uuid.New(),
		CheckDate:   checkDate,
		StartTime:   start,
		Status:      enums.CheckRunStatusRunning,
		Trigger:     trigger,
		TriggeredBy: triggeredBy,
		CreatedAt:   start,
		UpdatedAt:   start,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		if dbpkg.IsUniqueViolation(err, runningIndex) || dbpkg.IsUniqueViolation(err, runningColumn) {
			current, findErr := s.runs.FindRunning(ctx)
			if findErr != nil || current == nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeAlreadyRun, err, "expiry check already running")
			}
			return nil, alreadyRun("expiry check already running", current)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "start check run")
	}

	ctx = s.logg.WithRunID(ctx, run.ID.String())
	s.logg.Info(ctx, "expiry check started")

	tiers, err := s.tiers.ListActive(ctx)
	if err != nil {
		return nil, s.fail(ctx, run, fmt.Errorf("load active tiers: %w", err))
	}
	items, err := s.loadItems(ctx)
	if err != nil {
		return nil, s.fail(ctx, run, err)
	}

	evaluation := expiry.Evaluate(checkDate, tiers, items)
	result := &Result{
		RunID:        run.ID,
		CheckDate:    checkDate.Format(time.DateOnly),
		Trigger:      trigger,
		ItemsChecked: evaluation.Processed,
		Errors:       []ItemError{},
	}

	created := map[uuid.UUID][]*models.ExpiryAlert{}
	for _, candidate := range evaluation.Candidates {
		alert, isNew, err := s.alerts.RecordCandidate(ctx, &run.ID, checkDate, candidate)
		if err != nil {
			result.Errors = append(result.Errors, ItemError{
				ItemType: candidate.Item.Type,
				ItemID:   candidate.Item.ID,
				TierID:   candidate.Tier.ID,
				Message:  err.Error(),
			})
			s.logg.Error(s.logg.WithFields(ctx, map[string]any{
				"item_id": candidate.Item.ID.String(),
				"tier_id": candidate.Tier.ID.String(),
			}), "failed to record expiry alert", err)
			continue
		}
		if !isNew {
			result.DuplicatesSkipped++
			continue
		}
		result.AlertsGenerated++
		created[candidate.Tier.ID] = append(created[candidate.Tier.ID], alert)
	}

	s.notifyTiers(ctx, run, expiry.OrderTiers(tiers), created)

	end := s.now()
	elapsed := end.Sub(start).Milliseconds()
	run.Status = enums.CheckRunStatusCompleted
	run.EndTime = &end
	run.ExecutionTimeMs = &elapsed
	run.ItemsChecked = result.ItemsChecked
	run.AlertsGenerated = result.AlertsGenerated
	run.DuplicatesSkipped = result.DuplicatesSkipped
	run.ItemErrors = len(result.Errors)
	run.UpdatedAt = end
	finished, err := s.finish(ctx, run)
	if err != nil {
		return nil, s.fail(ctx, run, fmt.Errorf("complete check run: %w", err))
	}
	if !finished {
		return nil, s.superseded(ctx, run)
	}

	result.Status = run.Status
	result.ExecutionTimeMs = elapsed
	s.metrics.ObserveRun(string(trigger), string(run.Status), end.Sub(start))
	s.metrics.AddDuplicates(result.DuplicatesSkipped)
	s.metrics.AddItemErrors(len(result.Errors))
	for _, alerts := range created {
		if len(alerts) > 0 {
			s.metrics.AddAlerts(string(alerts[0].Severity), len(alerts))
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"items_checked":      result.ItemsChecked,
		"alerts_generated":   result.AlertsGenerated,
		"duplicates_skipped": result.DuplicatesSkipped,
		"item_errors":        len(result.Errors),
		"skipped_expired":    evaluation.SkippedExpired,
		"execution_time_ms":  elapsed,
	}), "expiry check completed")
	return result, nil
}

func (s *service) reapStale(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-s.staleAfter)
	msg := fmt.Sprintf("timed out: still RUNNING after %s", s.staleAfter)
	reaped, err := s.runs.ReapStale(ctx, cutoff, now, msg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reap stale check runs")
	}
	if reaped > 0 {
		s.logg.Warn(s.logg.WithField(ctx, "reaped", reaped), "stale expiry check runs marked failed")
	}
	return nil
}

func (s *service) loadItems(ctx context.Context) ([]expiry.Item, error) {
	stocked, err := s.stock.ListStockedBatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("load batches: %w", err)
	}
	products, err := s.stock.ListUntrackedProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	items := make([]expiry.Item, 0, len(stocked)+len(products))
	for _, b := range stocked {
		items = append(items, expiry.BatchItem(b.Batch, b.ProductName))
	}
	for _, p := range products {
		if item, ok := expiry.ProductItem(p); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// notifyTiers sends one notification per tier with new alerts, plus a
// threshold breach for CRITICAL tiers. Delivered alerts move to SENT; a
// failed hand-off leaves them PENDING without failing the run.
func (s *service) notifyTiers(ctx context.Context, run *models.CheckRun, ordered []models.AlertTierConfig, created map[uuid.UUID][]*models.ExpiryAlert) {
	for _, tier := range ordered {
		alerts := created[tier.ID]
		if len(alerts) == 0 {
			continue
		}
		summaries := make([]payloads.ExpiryAlertSummary, 0, len(alerts))
		ids := make([]uuid.UUID, 0, len(alerts))
		for _, a := range alerts {
			ids = append(ids, a.ID)
			summaries = append(summaries, payloads.ExpiryAlertSummary{
				AlertID:         a.ID,
				ItemType:        string(a.ItemType),
				ItemID:          a.ItemID,
				BatchNumber:     a.BatchNumber,
				ExpiryDate:      a.ExpiryDate.Format(time.DateOnly),
				DaysUntilExpiry: a.DaysUntilExpiry,
				Quantity:        a.QuantityAffected,
			})
		}
		data := map[string]any{
			"tier_id":   tier.ID.String(),
			"tier_name": tier.TierName,
			"severity":  tier.Severity,
			"alerts":    summaries,
		}
		n := notifications.Notification{
			Type:          enums.NotificationExpiryAlertsRaised,
			Roles:         tier.Roles(),
			AggregateType: enums.AggregateExpiryCheckRun,
			AggregateID:   run.ID,
			Title:         fmt.Sprintf("%s: %d item(s) nearing expiry", tier.TierName, len(alerts)),
			Message:       fmt.Sprintf("%d item(s) expire within %d days", len(alerts), tier.DaysBeforeExpiry),
			Data:          data,
			Actor:         actorFor(run),
		}
		tierCtx := s.logg.WithField(ctx, "tier_id", tier.ID.String())
		if err := s.gateway.Notify(ctx, nil, n); err != nil {
			s.logg.Error(tierCtx, "failed to queue expiry notification", err)
			continue
		}
		if tier.Severity == enums.TierSeverityCritical {
			breach := n
			breach.Type = enums.NotificationExpiryThresholdBreached
			breach.Title = fmt.Sprintf("Critical expiry threshold breached: %s", tier.TierName)
			if err := s.gateway.Notify(ctx, nil, breach); err != nil {
				s.logg.Error(tierCtx, "failed to queue threshold breach notification", err)
			}
		}
		if _, err := s.alerts.MarkSent(ctx, ids); err != nil {
			s.logg.Error(tierCtx, "failed to mark alerts sent", err)
		}
	}
}

// fail records the run as FAILED and returns the error reported to the caller.
func (s *service) fail(ctx context.Context, run *models.CheckRun, cause error) error {
	end := s.now()
	elapsed := end.Sub(run.StartTime).Milliseconds()
	msg := cause.Error()
	run.Status = enums.CheckRunStatusFailed
	run.EndTime = &end
	run.ExecutionTimeMs = &elapsed
	run.ErrorMessage = &msg
	run.UpdatedAt = end
	finished, err := s.finish(ctx, run)
	switch {
	case err != nil:
		s.logg.Error(ctx, "failed to persist failed check run", err)
	case !finished:
		s.logg.Warn(ctx, "check run was reaped before its failure was recorded")
	}
	s.logg.Error(ctx, "expiry check failed", cause)
	s.metrics.ObserveRun(string(run.Trigger), string(run.Status), end.Sub(run.StartTime))

	notifyErr := s.gateway.Notify(ctx, nil, notifications.Notification{
		Type:          enums.NotificationCheckRunFailed,
		Roles:         []enums.Role{enums.RoleAdmin},
		AggregateType: enums.AggregateExpiryCheckRun,
		AggregateID:   run.ID,
		Title:         "Expiry check failed",
		Message:       msg,
		Data: map[string]any{
			"check_date": run.CheckDate.Format(time.DateOnly),
			"trigger":    run.Trigger,
		},
		Actor: actorFor(run),
	})
	if notifyErr != nil {
		s.logg.Error(ctx, "failed to queue check failure notification", notifyErr)
	}

	return pkgerrors.Wrap(pkgerrors.CodeCheckExecution, cause, "expiry check failed").
		WithDetails(map[string]any{"run_id": run.ID.String()})
}

// finish moves a RUNNING row to run.Status. It reports false when the row has
// left RUNNING since this invocation started it.
func (s *service) finish(ctx context.Context, run *models.CheckRun) (bool, error) {
	if !enums.CheckRunStatusRunning.CanTransitionTo(run.Status) {
		return false, fmt.Errorf("check run cannot move from %s to %s", enums.CheckRunStatusRunning, run.Status)
	}
	return s.runs.Finish(ctx, run)
}

// superseded reports a run whose row was reaped while it was still evaluating.
// Alerts it already recorded stay committed.
func (s *service) superseded(ctx context.Context, run *models.CheckRun) error {
	current := enums.CheckRunStatusFailed
	if stored, err := s.runs.FindByID(ctx, run.ID); err != nil {
		s.logg.Error(ctx, "failed to reload reaped check run", err)
	} else if stored != nil {
		current = stored.Status
	}
	s.logg.Warn(s.logg.WithField(ctx, "current_status", current), "check run was reaped before it completed")
	s.metrics.ObserveRun(string(run.Trigger), string(current), s.now().Sub(run.StartTime))
	return pkgerrors.New(pkgerrors.CodeCheckExecution, "expiry check was reaped before it completed").
		WithDetails(map[string]any{
			"run_id": run.ID.String(),
			"status": current,
		})
}

func (s *service) ListRuns(ctx context.Context, params pagination.Params) (pagination.Page[models.CheckRun], error) {
	params = params.Normalize()
	rows, total, err := s.runs.List(ctx, params)
	if err != nil {
		return pagination.Page[models.CheckRun]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list check runs")
	}
	return pagination.NewPage(rows, params, total), nil
}

func (s *service) GetRun(ctx context.Context, id uuid.UUID) (*models.CheckRun, error) {
	run, err := s.runs.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load check run")
	}
	if run == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "check run not found")
	}
	return run, nil
}

func alreadyRun(msg string, run *models.CheckRun) error {
	return pkgerrors.New(pkgerrors.CodeAlreadyRun, msg).WithDetails(map[string]any{
		"run_id":     run.ID.String(),
		"status":     run.Status,
		"trigger":    run.Trigger,
		"check_date": run.CheckDate.Format(time.DateOnly),
		"start_time": run.StartTime,
	})
}

func actorFor(run *models.CheckRun) *outbox.ActorRef {
	if run.Trigger == enums.CheckTriggerScheduled {
		return &outbox.ActorRef{Subject: run.TriggeredBy, Role: string(enums.RoleSystem)}
	}
	return &outbox.ActorRef{Subject: run.TriggeredBy}
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
