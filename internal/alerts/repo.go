package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/pharmacore-backend/internal/repo"
	"github.com/angelmondragon/pharmacore-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
	"github.com/angelmondragon/pharmacore-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an alert repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOpen(ctx context.Context, itemID, configID uuid.UUID) (*models.ExpiryAlert, error) {
	var alert models.ExpiryAlert
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND config_id = ? AND status <> ?", itemID, configID, enums.AlertStatusResolved).
		First(&alert).Error
	return repo.FirstOrNil(&alert, err)
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ExpiryAlert, error) {
	var alert models.ExpiryAlert
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&alert).Error
	return repo.FirstOrNil(&alert, err)
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.ExpiryAlert, error) {
	var alert models.ExpiryAlert
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&alert).Error
	return repo.FirstOrNil(&alert, err)
}

func (r *repository) Create(ctx context.Context, alert *models.ExpiryAlert) error {
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(alert).Error
}

func (r *repository) Save(ctx context.Context, alert *models.ExpiryAlert) error {
	return r.db.WithContext(ctx).Save(alert).Error
}

func (r *repository) MarkSent(ctx context.Context, ids []uuid.UUID, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&models.ExpiryAlert{}).
		Where("id IN ? AND status = ?", ids, enums.AlertStatusPending).
		Updates(map[string]any{
			"status":     enums.AlertStatusSent,
			"updated_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) ResolveOpenForItem(ctx context.Context, itemID uuid.UUID, by, note string, at time.Time) (int64, error) {
	updates := map[string]any{
		"status":      enums.AlertStatusResolved,
		"resolved_by": by,
		"resolved_at": at,
		"updated_at":  at,
	}
	if note != "" {
		updates["notes"] = note
	}
	res := r.db.WithContext(ctx).Model(&models.ExpiryAlert{}).
		Where("item_id = ? AND status <> ?", itemID, enums.AlertStatusResolved).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.ExpiryAlert, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ExpiryAlert{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.ItemID != nil {
		query = query.Where("item_id = ?", *filter.ItemID)
	}
	if filter.RunID != nil {
		query = query.Where("check_run_id = ?", *filter.RunID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ExpiryAlert
	err := query.
		Order("days_until_expiry ASC").
		Order("created_at DESC").
		Order("id ASC").
		Scopes(repo.Page(params)).
		Find(&rows).Error
	return rows, total, err
}
