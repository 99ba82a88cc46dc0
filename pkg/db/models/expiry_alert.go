package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
)

// ExpiryAlert records that an item crossed a tier threshold. Rows are never deleted.
type ExpiryAlert struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ItemType         enums.ExpiryItemType `gorm:"column:item_type;type:text;not null"`
	ItemID           uuid.UUID            `gorm:"column:item_id;type:uuid;not null"`
	ProductID        uuid.UUID            `gorm:"column:product_id;type:uuid;not null"`
	BatchID          *uuid.UUID           `gorm:"column:batch_id;type:uuid"`
	ConfigID         uuid.UUID            `gorm:"column:config_id;type:uuid;not null"`
	CheckRunID       *uuid.UUID           `gorm:"column:check_run_id;type:uuid"`
	BatchNumber      *string              `gorm:"column:batch_number"`
	Severity         enums.TierSeverity   `gorm:"column:severity;type:text;not null"`
	AlertDate        time.Time            `gorm:"column:alert_date;type:date;not null"`
	ExpiryDate       time.Time            `gorm:"column:expiry_date;type:date;not null"`
	DaysUntilExpiry  int                  `gorm:"column:days_until_expiry;not null"`
	QuantityAffected int                  `gorm:"column:quantity_affected;not null"`
	Status           enums.AlertStatus    `gorm:"column:status;type:text;not null"`
	AcknowledgedBy   *string              `gorm:"column:acknowledged_by"`
	AcknowledgedAt   *time.Time           `gorm:"column:acknowledged_at"`
	ResolvedBy       *string              `gorm:"column:resolved_by"`
	ResolvedAt       *time.Time           `gorm:"column:resolved_at"`
	Notes            *string              `gorm:"column:notes"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (ExpiryAlert) TableName() string { return "expiry_alerts" }
