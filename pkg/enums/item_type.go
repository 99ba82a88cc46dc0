package enums

// ExpiryItemType distinguishes batch-tracked stock from product-level stock.
type ExpiryItemType string

const (
	ExpiryItemBatch   ExpiryItemType = "BATCH"
	ExpiryItemProduct ExpiryItemType = "PRODUCT"
)

// IsValid reports whether the value matches the canonical item type enum.
func (t ExpiryItemType) IsValid() bool {
	return t == ExpiryItemBatch || t == ExpiryItemProduct
}
