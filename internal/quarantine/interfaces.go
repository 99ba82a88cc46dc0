package quarantine

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pharmacore-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
	"github.com/angelmondragon/pharmacore-backend/pkg/pagination"
)

// Repository persists quarantine cases and their action log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateCase(ctx context.Context, c *models.QuarantineCase) error
	FindCase(ctx context.Context, id uuid.UUID) (*models.QuarantineCase, error)
	LockCase(ctx context.Context, id uuid.UUID) (*models.QuarantineCase, error)
	FindOpenByBatch(ctx context.Context, batchID uuid.UUID) (*models.QuarantineCase, error)
	UpdateVersioned(ctx context.Context, c *models.QuarantineCase, expectedVersion int) (bool, error)
	AppendLog(ctx context.Context, entry *models.QuarantineActionLog) error
	ListLogs(ctx context.Context, caseID uuid.UUID) ([]models.QuarantineActionLog, error)
	ListCases(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.QuarantineCase, int64, error)
}

// ListFilter narrows case listings. Zero values match everything.
type ListFilter struct {
	Status  enums.QuarantineStatus
	BatchID *uuid.UUID
}
