package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is owned by the catalog; expiry work only reads it and, for
// non batch-tracked items, evaluates its own expiry date.
type Product struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU           string              `gorm:"column:sku;not null"`
	Name          string              `gorm:"column:name;not null"`
	UnitCost      decimal.NullDecimal `gorm:"column:unit_cost;type:numeric(12,2)"`
	BatchTracked  bool                `gorm:"column:batch_tracked;not null"`
	StockQuantity int                 `gorm:"column:stock_quantity;not null"`
	ExpiryDate    *time.Time          `gorm:"column:expiry_date;type:date"`
	Active        bool                `gorm:"column:active;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }
