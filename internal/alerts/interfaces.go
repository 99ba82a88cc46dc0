package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pharmacore-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
	"github.com/angelmondragon/pharmacore-backend/pkg/pagination"
)

// Repository is the persistence surface used by the alert store.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOpen(ctx context.Context, itemID, configID uuid.UUID) (*models.ExpiryAlert, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ExpiryAlert, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.ExpiryAlert, error)
	Create(ctx context.Context, alert *models.ExpiryAlert) error
	Save(ctx context.Context, alert *models.ExpiryAlert) error
	MarkSent(ctx context.Context, ids []uuid.UUID, at time.Time) (int64, error)
	ResolveOpenForItem(ctx context.Context, itemID uuid.UUID, by, note string, at time.Time) (int64, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.ExpiryAlert, int64, error)
}

// ListFilter narrows alert listings. Zero values match everything.
type ListFilter struct {
	Status   enums.AlertStatus
	Severity enums.TierSeverity
	ItemID   *uuid.UUID
	RunID    *uuid.UUID
}
