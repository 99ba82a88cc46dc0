package quarantine

import (
	"context"

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

// NewRepository builds a quarantine repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateCase(ctx context.Context, c *models.QuarantineCase) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *repository) FindCase(ctx context.Context, id uuid.UUID) (*models.QuarantineCase, error) {
	var c models.QuarantineCase
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	return repo.FirstOrNil(&c, err)
}

func (r *repository) LockCase(ctx context.Context, id uuid.UUID) (*models.QuarantineCase, error) {
	var c models.QuarantineCase
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&c).Error
	return repo.FirstOrNil(&c, err)
}

func (r *repository) FindOpenByBatch(ctx context.Context, batchID uuid.UUID) (*models.QuarantineCase, error) {
	var c models.QuarantineCase
	err := r.db.WithContext(ctx).
		Where("batch_id = ? AND status NOT IN ?", batchID, []enums.QuarantineStatus{
			enums.QuarantineStatusDisposed,
			enums.QuarantineStatusReturned,
		}).
		First(&c).Error
	return repo.FirstOrNil(&c, err)
}

// UpdateVersioned writes c only if the stored version still equals
// expectedVersion. It reports false when another writer got there first.
func (r *repository) UpdateVersioned(ctx context.Context, c *models.QuarantineCase, expectedVersion int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.QuarantineCase{}).
		Where("id = ? AND version = ?", c.ID, expectedVersion).
		Updates(map[string]any{
			"status":               c.Status,
			"reviewed_by":          c.ReviewedBy,
			"reviewed_at":          c.ReviewedAt,
			"approved_by":          c.ApprovedBy,
			"approved_at":          c.ApprovedAt,
			"disposal_method":      c.DisposalMethod,
			"disposal_certificate": c.DisposalCertificate,
			"return_reference":     c.ReturnReference,
			"closed_at":            c.ClosedAt,
			"version":              c.Version,
			"updated_at":           c.UpdatedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) AppendLog(ctx context.Context, entry *models.QuarantineActionLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListLogs(ctx context.Context, caseID uuid.UUID) ([]models.QuarantineActionLog, error) {
	var rows []models.QuarantineActionLog
	err := r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("performed_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListCases(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.QuarantineCase, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.QuarantineCase{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.BatchID != nil {
		query = query.Where("batch_id = ?", *filter.BatchID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.QuarantineCase
	err := query.
		Order("quarantine_date DESC").
		Order("id ASC").
		Scopes(repo.Page(params)).
		Find(&rows).Error
	return rows, total, err
}
