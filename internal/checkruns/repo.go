package checkruns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pharmacore-backend/internal/repo"
	"github.com/angelmondragon/pharmacore-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
	"github.com/angelmondragon/pharmacore-backend/pkg/pagination"
)

// Repository persists expiry check runs.
type Repository struct {
	repo.Base
}

// NewRepository binds a check run repository to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// ReapStale fails RUNNING rows that started before cutoff.
func (r *Repository) ReapStale(ctx context.Context, cutoff, now time.Time, message string) (int64, error) {
	res := r.DB(ctx).Model(&models.CheckRun{}).
		Where("status = ? AND start_time < ?", enums.CheckRunStatusRunning, cutoff).
		Updates(map[string]any{
			"status":        enums.CheckRunStatusFailed,
			"end_time":      now,
			"error_message": message,
			"updated_at":    now,
		})
	return res.RowsAffected, res.Error
}

// FindRunning returns the in-flight run, or nil.
func (r *Repository) FindRunning(ctx context.Context) (*models.CheckRun, error) {
	var run models.CheckRun
	err := r.DB(ctx).Where("status = ?", enums.CheckRunStatusRunning).First(&run).Error
	return repo.FirstOrNil(&run, err)
}

// FindCompletedOn returns the latest COMPLETED run for checkDate, or nil.
func (r *Repository) FindCompletedOn(ctx context.Context, checkDate time.Time) (*models.CheckRun, error) {
	var run models.CheckRun
	err := r.DB(ctx).
		Where("status = ? AND check_date = ?", enums.CheckRunStatusCompleted, checkDate).
		Order("start_time DESC").
		First(&run).Error
	return repo.FirstOrNil(&run, err)
}

// FindByID returns nil, nil when the run does not exist.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CheckRun, error) {
	var run models.CheckRun
	err := r.DB(ctx).Where("id = ?", id).First(&run).Error
	return repo.FirstOrNil(&run, err)
}

// Create inserts a run row.
func (r *Repository) Create(ctx context.Context, run *models.CheckRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	return r.DB(ctx).Create(run).Error
}

// Finish writes the terminal state of run only while the stored row is still
// RUNNING. It reports false when another invocation already reaped the run.
func (r *Repository) Finish(ctx context.Context, run *models.CheckRun) (bool, error) {
	res := r.DB(ctx).Model(&models.CheckRun{}).
		Where("id = ? AND status = ?", run.ID, enums.CheckRunStatusRunning).
		Updates(map[string]any{
			"status":             run.Status,
			"end_time":           run.EndTime,
			"execution_time_ms":  run.ExecutionTimeMs,
			"items_checked":      run.ItemsChecked,
			"alerts_generated":   run.AlertsGenerated,
			"duplicates_skipped": run.DuplicatesSkipped,
			"item_errors":        run.ItemErrors,
			"error_message":      run.ErrorMessage,
			"updated_at":         run.UpdatedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// List returns runs newest first.
func (r *Repository) List(ctx context.Context, params pagination.Params) ([]models.CheckRun, int64, error) {
	var total int64
	if err := r.DB(ctx).Model(&models.CheckRun{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.CheckRun
	err := r.DB(ctx).
		Order("start_time DESC").
		Order("id ASC").
		Scopes(repo.Page(params)).
		Find(&rows).Error
	return rows, total, err
}
