package expiry

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pharmacore-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacore-backend/pkg/enums"
)

// Item is one stocked unit of evaluation: a batch, or a product that is not
// batch tracked.
type Item struct {
	Type        enums.ExpiryItemType
	ID          uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	BatchID     *uuid.UUID
	BatchNumber *string
	ExpiryDate  time.Time
	Quantity    int
}

// Candidate is an item that fell inside a tier window on the check date.
type Candidate struct {
	Item            Item
	Tier            models.AlertTierConfig
	DaysUntilExpiry int
}

// Result summarizes one evaluation pass.
type Result struct {
	Candidates     []Candidate
	Processed      int
	SkippedExpired int
	SkippedEmpty   int
	NoMatch        int
}

// DaysUntil returns whole calendar days from checkDate to expiry in UTC.
// Negative values mean the item already expired.
func DaysUntil(checkDate, expiry time.Time) int {
	from := truncateDay(checkDate)
	to := truncateDay(expiry)
	return int(to.Sub(from).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// OrderTiers returns the active tiers in evaluation order: sort order
// ascending, ties broken by days before expiry.
func OrderTiers(tiers []models.AlertTierConfig) []models.AlertTierConfig {
	ordered := make([]models.AlertTierConfig, 0, len(tiers))
	for _, tier := range tiers {
		if tier.Active {
			ordered = append(ordered, tier)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SortOrder != ordered[j].SortOrder {
			return ordered[i].SortOrder < ordered[j].SortOrder
		}
		return ordered[i].DaysBeforeExpiry < ordered[j].DaysBeforeExpiry
	})
	return ordered
}

// Match returns the first tier whose window contains days.
func Match(ordered []models.AlertTierConfig, days int) (models.AlertTierConfig, bool) {
	if days <= 0 {
		return models.AlertTierConfig{}, false
	}
	for _, tier := range ordered {
		if days <= tier.DaysBeforeExpiry {
			return tier, true
		}
	}
	return models.AlertTierConfig{}, false
}

// Evaluate matches every item against the tiers. Items expiring on or before
// checkDate are left for the expiry sweep.
func Evaluate(checkDate time.Time, tiers []models.AlertTierConfig, items []Item) Result {
	ordered := OrderTiers(tiers)
	result := Result{}
	for _, item := range items {
		result.Processed++
		if item.Quantity <= 0 {
			result.SkippedEmpty++
			continue
		}
		days := DaysUntil(checkDate, item.ExpiryDate)
		if days <= 0 {
			result.SkippedExpired++
			continue
		}
		tier, ok := Match(ordered, days)
		if !ok {
			result.NoMatch++
			continue
		}
		result.Candidates = append(result.Candidates, Candidate{
			Item:            item,
			Tier:            tier,
			DaysUntilExpiry: days,
		})
	}
	return result
}

// BatchItem adapts a batch row and its product name.
func BatchItem(batch models.Batch, productName string) Item {
	id := batch.ID
	number := batch.BatchNumber
	return Item{
		Type:        enums.ExpiryItemBatch,
		ID:          batch.ID,
		ProductID:   batch.ProductID,
		ProductName: productName,
		BatchID:     &id,
		BatchNumber: &number,
		ExpiryDate:  batch.ExpiryDate,
		Quantity:    batch.Quantity,
	}
}

// ProductItem adapts a product that is not batch tracked. ok is false when
// the product carries no expiry date.
func ProductItem(product models.Product) (Item, bool) {
	if product.ExpiryDate == nil {
		return Item{}, false
	}
	return Item{
		Type:        enums.ExpiryItemProduct,
		ID:          product.ID,
		ProductID:   product.ID,
		ProductName: product.Name,
		ExpiryDate:  *product.ExpiryDate,
		Quantity:    product.StockQuantity,
	}, true
}
