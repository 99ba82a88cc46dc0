package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
)

// CheckRun is the persisted log of one expiry check execution.
type CheckRun struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CheckDate         time.Time            `gorm:"column:check_date;type:date;not null"`
	StartTime         time.Time            `gorm:"column:start_time;not null"`
	EndTime           *time.Time           `gorm:"column:end_time"`
	Status            enums.CheckRunStatus `gorm:"column:status;type:text;not null"`
	Trigger           enums.CheckTrigger   `gorm:"column:trigger_type;type:text;not null"`
	TriggeredBy       string               `gorm:"column:triggered_by;not null"`
	ItemsChecked      int                  `gorm:"column:items_checked;not null"`
	AlertsGenerated   int                  `gorm:"column:alerts_generated;not null"`
	DuplicatesSkipped int                  `gorm:"column:duplicates_skipped;not null"`
	ItemErrors        int                  `gorm:"column:item_errors;not null"`
	ExecutionTimeMs   *int64               `gorm:"column:execution_time_ms"`
	ErrorMessage      *string              `gorm:"column:error_message"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (CheckRun) TableName() string { return "expiry_check_runs" }
