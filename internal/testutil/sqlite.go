package testutil

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/angelmondragon/pharmacore-backend/pkg/db"
	"github.com/angelmondragon/pharmacore-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
	"github.com/angelmondragon/pharmacore-backend/pkg/migrate"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewSQLiteDB opens a private in-memory database with the expiry schema applied.
// The pool is pinned to one connection, so callers must not issue queries
// outside an open transaction while it is still running.
func NewSQLiteDB(tb testing.TB) *db.Client {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.New(log.New(io.Discard, "", 0), gormlogger.Config{LogLevel: gormlogger.Silent}),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := migrate.RunSQLite(context.Background(), sqlDB); err != nil {
		tb.Fatalf("apply schema: %v", err)
	}
	return db.FromGorm(conn)
}

// Date returns UTC midnight for the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// SeedProduct inserts an active, batch-tracked product.
func SeedProduct(tb testing.TB, client *db.Client, mutate ...func(*models.Product)) models.Product {
	tb.Helper()
	p := models.Product{
		ID:           uuid.New(),
		SKU:          "SKU-" + uuid.NewString()[:8],
		Name:         "Amoxicillin 500mg",
		UnitCost:     decimal.NewNullDecimal(decimal.RequireFromString("2.50")),
		BatchTracked: true,
		Active:       true,
	}
	for _, fn := range mutate {
		fn(&p)
	}
	if err := client.DB().Create(&p).Error; err != nil {
		tb.Fatalf("seed product: %v", err)
	}
	return p
}

// SeedBatch inserts an ACTIVE batch for product expiring on expiry.
func SeedBatch(tb testing.TB, client *db.Client, productID uuid.UUID, qty int, expiry time.Time, mutate ...func(*models.Batch)) models.Batch {
	tb.Helper()
	b := models.Batch{
		ID:              uuid.New(),
		ProductID:       productID,
		BatchNumber:     "B-" + uuid.NewString()[:6],
		Quantity:        qty,
		InitialQuantity: qty,
		ExpiryDate:      expiry,
		Status:          enums.BatchStatusActive,
	}
	for _, fn := range mutate {
		fn(&b)
	}
	if err := client.DB().Create(&b).Error; err != nil {
		tb.Fatalf("seed batch: %v", err)
	}
	return b
}

// SeedTier inserts an active alert tier.
func SeedTier(tb testing.TB, client *db.Client, name string, days, sortOrder int, severity enums.TierSeverity, roles ...enums.Role) models.AlertTierConfig {
	tb.Helper()
	names := make(pq.StringArray, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r))
	}
	tier := models.AlertTierConfig{
		ID:               uuid.New(),
		TierName:         name,
		DaysBeforeExpiry: days,
		Severity:         severity,
		NotifyRoles:      names,
		ColorCode:        "#FFAA00",
		SortOrder:        sortOrder,
		Active:           true,
	}
	if err := client.DB().Create(&tier).Error; err != nil {
		tb.Fatalf("seed tier: %v", err)
	}
	return tier
}
