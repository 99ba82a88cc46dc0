package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
)

// Batch is a received lot of a product with its own expiry date.
type Batch struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID       uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	BatchNumber     string              `gorm:"column:batch_number;not null"`
	Quantity        int                 `gorm:"column:quantity;not null"`
	InitialQuantity int                 `gorm:"column:initial_quantity;not null"`
	UnitCost        decimal.NullDecimal `gorm:"column:unit_cost;type:numeric(12,2)"`
	ExpiryDate      time.Time           `gorm:"column:expiry_date;type:date;not null"`
	Status          enums.BatchStatus   `gorm:"column:status;type:text;not null"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Batch) TableName() string { return "product_batches" }
