package alerts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pharmacore-backend/internal/expiry"
	dbpkg "github.com/angelmondragon/pharmacore-backend/pkg/db"
	"github.com/angelmondragon/pharmacore-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pharmacore-backend/pkg/errors"
	"github.com/angelmondragon/pharmacore-backend/pkg/logger"
	"github.com/angelmondragon/pharmacore-backend/pkg/pagination"
)

const (
	openAlertIndex = "ux_expiry_alerts_open_item_config"
	// sqlite reports the indexed columns instead of the index name
	openAlertColumns = "expiry_alerts.item_id"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the expiry alert lifecycle.
type Service interface {
	RecordCandidate(ctx context.Context, runID *uuid.UUID, checkDate time.Time, candidate expiry.Candidate) (*models.ExpiryAlert, bool, error)
	Acknowledge(ctx context.Context, id uuid.UUID, by, notes string) (*models.ExpiryAlert, error)
	Resolve(ctx context.Context, id uuid.UUID, by, notes string) (*models.ExpiryAlert, error)
	MarkSent(ctx context.Context, ids []uuid.UUID) (int64, error)
	ResolveOpenForItem(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, by, note string) (int64, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.ExpiryAlert], error)
	Get(ctx context.Context, id uuid.UUID) (*models.ExpiryAlert, error)
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds the alert store.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("alerts repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo: repo,
		tx:   tx,
		logg: logg,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// RecordCandidate persists a PENDING alert unless one is already open for the
// same item and tier. created is false for duplicates.
func (s *service) RecordCandidate(ctx context.Context, runID *uuid.UUID, checkDate time.Time, candidate expiry.Candidate) (*models.ExpiryAlert, bool, error) {
	item := candidate.Item
	if item.ID == uuid.Nil || candidate.Tier.ID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "candidate item and tier required")
	}

	var (
		alert   *models.ExpiryAlert
		created bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindOpen(ctx, item.ID, candidate.Tier.ID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Status.IsOpen() {
			alert = existing
			return nil
		}

		now := s.now()
		row := &models.ExpiryAlert{
			ID:               uuid.New(),
			ItemType:         item.Type,
			ItemID:           item.ID,
			ProductID:        item.ProductID,
			BatchID:          item.BatchID,
			ConfigID:         candidate.Tier.ID,
			CheckRunID:       runID,
			BatchNumber:      item.BatchNumber,
			Severity:         candidate.Tier.Severity,
			AlertDate:        dateOf(checkDate),
			ExpiryDate:       dateOf(item.ExpiryDate),
			DaysUntilExpiry:  candidate.DaysUntilExpiry,
			QuantityAffected: item.Quantity,
			Status:           enums.AlertStatusPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := repo.Create(ctx, row); err != nil {
			return err
		}
		alert = row
		created = true
		return nil
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, openAlertIndex) || dbpkg.IsUniqueViolation(err, openAlertColumns) {
			// lost the insert race; the winner's row is the open alert
			existing, findErr := s.repo.FindOpen(ctx, item.ID, candidate.Tier.ID)
			if findErr != nil {
				return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load open alert")
			}
			return existing, false, nil
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record expiry alert")
	}
	return alert, created, nil
}

func (s *service) Acknowledge(ctx context.Context, id uuid.UUID, by, notes string) (*models.ExpiryAlert, error) {
	return s.transition(ctx, id, enums.AlertStatusAcknowledged, by, notes)
}

func (s *service) Resolve(ctx context.Context, id uuid.UUID, by, notes string) (*models.ExpiryAlert, error) {
	return s.transition(ctx, id, enums.AlertStatusResolved, by, notes)
}

func (s *service) transition(ctx context.Context, id uuid.UUID, next enums.AlertStatus, by, notes string) (*models.ExpiryAlert, error) {
	by = strings.TrimSpace(by)
	if by == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor required")
	}

	var alert *models.ExpiryAlert
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.LockByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load alert")
		}
		if current == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "alert not found")
		}
		if !current.Status.CanTransitionTo(next) {
			return pkgerrors.New(pkgerrors.CodeInvalidState, fmt.Sprintf("alert cannot move to %s", next)).
				WithDetails(map[string]any{
					"alert_id":       current.ID.String(),
					"current_status": current.Status,
					"target_status":  next,
				})
		}

		now := s.now()
		current.Status = next
		current.UpdatedAt = now
		switch next {
		case enums.AlertStatusAcknowledged:
			current.AcknowledgedBy = &by
			current.AcknowledgedAt = &now
		case enums.AlertStatusResolved:
			current.ResolvedBy = &by
			current.ResolvedAt = &now
		}
		if n := strings.TrimSpace(notes); n != "" {
			current.Notes = &n
		}
		if err := repo.Save(ctx, current); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update alert")
		}
		alert = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"alert_id": alert.ID.String(),
		"status":   alert.Status,
		"actor":    by,
	}), "expiry alert updated")
	return alert, nil
}

func (s *service) MarkSent(ctx context.Context, ids []uuid.UUID) (int64, error) {
	n, err := s.repo.MarkSent(ctx, ids, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark alerts sent")
	}
	return n, nil
}

// ResolveOpenForItem closes every open alert of an item inside the caller's transaction.
func (s *service) ResolveOpenForItem(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, by, note string) (int64, error) {
	n, err := s.repo.WithTx(tx).ResolveOpenForItem(ctx, itemID, by, note, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve item alerts")
	}
	return n, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, params pagination.Params) (pagination.Page[models.ExpiryAlert], error) {
	params = params.Normalize()
	if filter.Status != "" && !filter.Status.IsValid() {
		return pagination.Page[models.ExpiryAlert]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid alert status filter")
	}
	if filter.Severity != "" && !filter.Severity.IsValid() {
		return pagination.Page[models.ExpiryAlert]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid severity filter")
	}
	rows, total, err := s.repo.List(ctx, filter, params)
	if err != nil {
		return pagination.Page[models.ExpiryAlert]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list alerts")
	}
	return pagination.NewPage(rows, params, total), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.ExpiryAlert, error) {
	alert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load alert")
	}
	if alert == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "alert not found")
	}
	return alert, nil
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
