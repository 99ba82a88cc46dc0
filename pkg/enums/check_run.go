package enums

import "slices"

// CheckRunStatus tracks one execution of the expiry check.
type CheckRunStatus string

const (
	CheckRunStatusRunning   CheckRunStatus = "RUNNING"
	CheckRunStatusCompleted CheckRunStatus = "COMPLETED"
	CheckRunStatusFailed    CheckRunStatus = "FAILED"
)

var validCheckRunStatuses = []CheckRunStatus{
	CheckRunStatusRunning,
	CheckRunStatusCompleted,
	CheckRunStatusFailed,
}

// String implements fmt.Stringer.
func (s CheckRunStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical check run status enum.
func (s CheckRunStatus) IsValid() bool {
	return slices.Contains(validCheckRunStatuses, s)
}

// IsTerminal reports whether the run has finished.
func (s CheckRunStatus) IsTerminal() bool {
	return s == CheckRunStatusCompleted || s == CheckRunStatusFailed
}

// CanTransitionTo reports whether next is a legal successor of s. Only RUNNING moves.
func (s CheckRunStatus) CanTransitionTo(next CheckRunStatus) bool {
	return s == CheckRunStatusRunning && next.IsTerminal()
}

// ParseCheckRunStatus converts raw input into CheckRunStatus.
func ParseCheckRunStatus(value string) (CheckRunStatus, error) {
	return parse(validCheckRunStatuses, "check run status", value)
}

// CheckTrigger identifies who started a check run.
type CheckTrigger string

const (
	CheckTriggerManual    CheckTrigger = "MANUAL"
	CheckTriggerScheduled CheckTrigger = "SCHEDULED"
)

// String implements fmt.Stringer.
func (t CheckTrigger) String() string {
	return string(t)
}

// IsValid reports whether the value matches the canonical trigger enum.
func (t CheckTrigger) IsValid() bool {
	return t == CheckTriggerManual || t == CheckTriggerScheduled
}
