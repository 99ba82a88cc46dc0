package enums

import "slices"

// BatchStatus maps to the batch_status column of product_batches.
type BatchStatus string

const (
	BatchStatusActive      BatchStatus = "ACTIVE"
	BatchStatusDepleted    BatchStatus = "DEPLETED"
	BatchStatusExpired     BatchStatus = "EXPIRED"
	BatchStatusQuarantined BatchStatus = "QUARANTINED"
)

var validBatchStatuses = []BatchStatus{
	BatchStatusActive,
	BatchStatusDepleted,
	BatchStatusExpired,
	BatchStatusQuarantined,
}

// String implements fmt.Stringer.
func (s BatchStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical batch status enum.
func (s BatchStatus) IsValid() bool {
	return slices.Contains(validBatchStatuses, s)
}

// ParseBatchStatus converts raw input into BatchStatus.
func ParseBatchStatus(value string) (BatchStatus, error) {
	return parse(validBatchStatuses, "batch status", value)
}
