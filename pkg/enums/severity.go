package enums

import "slices"

// TierSeverity ranks how urgent an expiry tier is.
type TierSeverity string

const (
	TierSeverityInfo     TierSeverity = "INFO"
	TierSeverityWarning  TierSeverity = "WARNING"
	TierSeverityCritical TierSeverity = "CRITICAL"
)

var validTierSeverities = []TierSeverity{
	TierSeverityInfo,
	TierSeverityWarning,
	TierSeverityCritical,
}

// String implements fmt.Stringer.
func (s TierSeverity) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical severity enum.
func (s TierSeverity) IsValid() bool {
	return slices.Contains(validTierSeverities, s)
}

// ParseTierSeverity converts raw input into TierSeverity.
func ParseTierSeverity(value string) (TierSeverity, error) {
	return parse(validTierSeverities, "tier severity", value)
}
