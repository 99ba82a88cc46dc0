package alertconfig

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pharmacore-backend/internal/repo"
	"github.com/angelmondragon/pharmacore-backend/pkg/db/models"
)

// Repository persists alert tier configs.
type Repository struct {
	repo.Base
}

// NewRepository constructs a tier repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// ListActive returns active tiers ordered by sort order, ties broken by days.
func (r *Repository) ListActive(ctx context.Context) ([]models.AlertTierConfig, error) {
	var rows []models.AlertTierConfig
	err := r.DB(ctx).
		Where("active = ?", true).
		Order("sort_order ASC").
		Order("days_before_expiry ASC").
		Find(&rows).Error
	return rows, err
}

// List returns every tier, optionally including inactive ones.
func (r *Repository) List(ctx context.Context, includeInactive bool) ([]models.AlertTierConfig, error) {
	query := r.DB(ctx).Model(&models.AlertTierConfig{})
	if !includeInactive {
		query = query.Where("active = ?", true)
	}
	var rows []models.AlertTierConfig
	err := query.Order("sort_order ASC").Order("days_before_expiry ASC").Find(&rows).Error
	return rows, err
}

// FindByID returns nil, nil when the tier does not exist.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.AlertTierConfig, error) {
	var tier models.AlertTierConfig
	err := r.DB(ctx).Where("id = ?", id).First(&tier).Error
	return repo.FirstOrNil(&tier, err)
}

// MaxSortOrder returns the highest sort order across all tiers, or 0 when none exist.
func (r *Repository) MaxSortOrder(ctx context.Context) (int, error) {
	var max int64
	row := r.DB(ctx).Model(&models.AlertTierConfig{}).Select("COALESCE(MAX(sort_order), 0)").Row()
	if err := row.Scan(&max); err != nil {
		return 0, err
	}
	return int(max), nil
}

// Count returns the number of stored tiers.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.AlertTierConfig{}).Count(&n).Error
	return n, err
}

// Create inserts a new tier row.
func (r *Repository) Create(ctx context.Context, tier *models.AlertTierConfig) error {
	if tier.ID == uuid.Nil {
		tier.ID = uuid.New()
	}
	return r.DB(ctx).Create(tier).Error
}

// Save writes every column of an existing tier.
func (r *Repository) Save(ctx context.Context, tier *models.AlertTierConfig) error {
	return r.DB(ctx).Save(tier).Error
}

// Delete removes the tier row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&models.AlertTierConfig{}).Error
}

// CountAlerts returns how many alerts reference the tier, whatever their status.
func (r *Repository) CountAlerts(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.ExpiryAlert{}).Where("config_id = ?", id).Count(&n).Error
	return n, err
}
