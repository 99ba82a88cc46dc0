package enums

import "slices"

// AlertStatus tracks an expiry alert from creation to resolution.
type AlertStatus string

const (
	AlertStatusPending      AlertStatus = "PENDING"
	AlertStatusSent         AlertStatus = "SENT"
	AlertStatusAcknowledged AlertStatus = "ACKNOWLEDGED"
	AlertStatusResolved     AlertStatus = "RESOLVED"
)

var validAlertStatuses = []AlertStatus{
	AlertStatusPending,
	AlertStatusSent,
	AlertStatusAcknowledged,
	AlertStatusResolved,
}

var alertTransitions = map[AlertStatus][]AlertStatus{
	AlertStatusPending:      {AlertStatusSent, AlertStatusAcknowledged, AlertStatusResolved},
	AlertStatusSent:         {AlertStatusAcknowledged, AlertStatusResolved},
	AlertStatusAcknowledged: {AlertStatusResolved},
}

// String implements fmt.Stringer.
func (s AlertStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical alert status enum.
func (s AlertStatus) IsValid() bool {
	return slices.Contains(validAlertStatuses, s)
}

// IsOpen reports whether the alert still blocks a new alert for the same item and tier.
func (s AlertStatus) IsOpen() bool {
	return s.IsValid() && s != AlertStatusResolved
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s AlertStatus) CanTransitionTo(next AlertStatus) bool {
	return slices.Contains(alertTransitions[s], next)
}

// ParseAlertStatus converts raw input into AlertStatus.
func ParseAlertStatus(value string) (AlertStatus, error) {
	return parse(validAlertStatuses, "alert status", value)
}
