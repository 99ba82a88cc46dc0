package batches

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/pharmacore-backend/internal/repo"
	"github.com/angelmondragon/pharmacore-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
)

// Repository reads stock rows owned by the catalog and writes back the few
// status changes the expiry lifecycle is allowed to make.
type Repository struct {
	repo.Base
}

// NewRepository binds a batch repository to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// StockedBatch is an ACTIVE batch joined with its product name.
type StockedBatch struct {
	models.Batch
	ProductName string `gorm:"column:product_name"`
}

// ListStockedBatches returns ACTIVE batches that still hold stock.
func (r *Repository) ListStockedBatches(ctx context.Context) ([]StockedBatch, error) {
	var rows []StockedBatch
	err := r.DB(ctx).
		Table("product_batches AS b").
		Select("b.*, p.name AS product_name").
		Joins("JOIN products p ON p.id = b.product_id").
		Where("b.status = ? AND b.quantity > 0", enums.BatchStatusActive).
		Order("b.expiry_date ASC").
		Order("b.id ASC").
		Scan(&rows).Error
	return rows, err
}

// ListUntrackedProducts returns active, stocked products that carry their
// own expiry date instead of batches.
func (r *Repository) ListUntrackedProducts(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	err := r.DB(ctx).
		Where("batch_tracked = ? AND active = ? AND stock_quantity > 0 AND expiry_date IS NOT NULL", false, true).
		Order("expiry_date ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// ListExpiredActive returns stocked ACTIVE batches whose expiry date is before day.
func (r *Repository) ListExpiredActive(ctx context.Context, day time.Time) ([]models.Batch, error) {
	var rows []models.Batch
	err := r.DB(ctx).
		Where("status = ? AND expiry_date < ? AND quantity > 0", enums.BatchStatusActive, day).
		Order("expiry_date ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// FindBatch returns nil, nil when the batch does not exist.
func (r *Repository) FindBatch(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	return findBatch(r.DB(ctx), id, false)
}

// LockBatch loads the batch inside tx holding a row lock.
func (r *Repository) LockBatch(tx *gorm.DB, id uuid.UUID) (*models.Batch, error) {
	return findBatch(tx, id, true)
}

func findBatch(db *gorm.DB, id uuid.UUID, lock bool) (*models.Batch, error) {
	if lock {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var batch models.Batch
	return repo.FirstOrNil(&batch, db.Where("id = ?", id).First(&batch).Error)
}

// FindProduct returns nil, nil when the product does not exist.
func (r *Repository) FindProduct(tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	return repo.FirstOrNil(&product, tx.Where("id = ?", id).First(&product).Error)
}

// SetStatus moves a batch to status inside tx.
func (r *Repository) SetStatus(tx *gorm.DB, id uuid.UUID, status enums.BatchStatus) error {
	return tx.Model(&models.Batch{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}

// Retire empties a batch that left the building and marks it EXPIRED.
func (r *Repository) Retire(tx *gorm.DB, id uuid.UUID) error {
	return tx.Model(&models.Batch{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     enums.BatchStatusExpired,
			"quantity":   0,
			"updated_at": time.Now().UTC(),
		}).Error
}

// MarkExpired flips ACTIVE batches past their expiry date to EXPIRED.
func (r *Repository) MarkExpired(ctx context.Context, day time.Time) (int64, error) {
	res := r.DB(ctx).Model(&models.Batch{}).
		Where("status = ? AND expiry_date < ?", enums.BatchStatusActive, day).
		Updates(map[string]any{
			"status":     enums.BatchStatusExpired,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// MarkDepleted flips ACTIVE batches without stock to DEPLETED.
func (r *Repository) MarkDepleted(ctx context.Context) (int64, error) {
	res := r.DB(ctx).Model(&models.Batch{}).
		Where("status = ? AND quantity = 0", enums.BatchStatusActive).
		Updates(map[string]any{
			"status":     enums.BatchStatusDepleted,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}
