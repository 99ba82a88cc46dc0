package enums

import "slices"

// QuarantineStatus tracks a quarantine case from discovery to closure.
type QuarantineStatus string

const (
	QuarantineStatusPendingReview       QuarantineStatus = "PENDING_REVIEW"
	QuarantineStatusUnderReview         QuarantineStatus = "UNDER_REVIEW"
	QuarantineStatusApprovedForDisposal QuarantineStatus = "APPROVED_FOR_DISPOSAL"
	QuarantineStatusApprovedForReturn   QuarantineStatus = "APPROVED_FOR_RETURN"
	QuarantineStatusDisposed            QuarantineStatus = "DISPOSED"
	QuarantineStatusReturned            QuarantineStatus = "RETURNED"
)

var validQuarantineStatuses = []QuarantineStatus{
	QuarantineStatusPendingReview,
	QuarantineStatusUnderReview,
	QuarantineStatusApprovedForDisposal,
	QuarantineStatusApprovedForReturn,
	QuarantineStatusDisposed,
	QuarantineStatusReturned,
}

// String implements fmt.Stringer.
func (s QuarantineStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical quarantine status enum.
func (s QuarantineStatus) IsValid() bool {
	return slices.Contains(validQuarantineStatuses, s)
}

// IsTerminal reports whether the case is closed.
func (s QuarantineStatus) IsTerminal() bool {
	return s == QuarantineStatusDisposed || s == QuarantineStatusReturned
}

// ParseQuarantineStatus converts raw input into QuarantineStatus.
func ParseQuarantineStatus(value string) (QuarantineStatus, error) {
	return parse(validQuarantineStatuses, "quarantine status", value)
}

// QuarantineAction is an operation applied to a quarantine case.
type QuarantineAction string

const (
	// QuarantineActionQuarantine is only written to the action log when a case opens.
	QuarantineActionQuarantine      QuarantineAction = "QUARANTINE"
	QuarantineActionReview          QuarantineAction = "REVIEW"
	QuarantineActionApproveDisposal QuarantineAction = "APPROVE_DISPOSAL"
	QuarantineActionApproveReturn   QuarantineAction = "APPROVE_RETURN"
	QuarantineActionDispose         QuarantineAction = "DISPOSE"
	QuarantineActionReturn          QuarantineAction = "RETURN"
)

var validQuarantineActions = []QuarantineAction{
	QuarantineActionReview,
	QuarantineActionApproveDisposal,
	QuarantineActionApproveReturn,
	QuarantineActionDispose,
	QuarantineActionReturn,
}

type quarantineEdge struct {
	from   QuarantineStatus
	action QuarantineAction
}

var quarantineTransitions = map[quarantineEdge]QuarantineStatus{
	{QuarantineStatusPendingReview, QuarantineActionReview}:        QuarantineStatusUnderReview,
	{QuarantineStatusUnderReview, QuarantineActionApproveDisposal}: QuarantineStatusApprovedForDisposal,
	{QuarantineStatusUnderReview, QuarantineActionApproveReturn}:   QuarantineStatusApprovedForReturn,
	{QuarantineStatusApprovedForDisposal, QuarantineActionDispose}: QuarantineStatusDisposed,
	{QuarantineStatusApprovedForReturn, QuarantineActionReturn}:    QuarantineStatusReturned,
}

// String implements fmt.Stringer.
func (a QuarantineAction) String() string {
	return string(a)
}

// IsValid reports whether the action can be requested by a caller.
func (a QuarantineAction) IsValid() bool {
	return slices.Contains(validQuarantineActions, a)
}

// ParseQuarantineAction converts raw input into a requestable QuarantineAction.
func ParseQuarantineAction(value string) (QuarantineAction, error) {
	return parse(validQuarantineActions, "quarantine action", value)
}

// NextQuarantineStatus returns the status reached by applying action to from.
func NextQuarantineStatus(from QuarantineStatus, action QuarantineAction) (QuarantineStatus, bool) {
	next, ok := quarantineTransitions[quarantineEdge{from: from, action: action}]
	return next, ok
}

// AllowedQuarantineActions lists the actions legal from the given status.
func AllowedQuarantineActions(from QuarantineStatus) []QuarantineAction {
	allowed := []QuarantineAction{}
	for _, action := range validQuarantineActions {
		if _, ok := NextQuarantineStatus(from, action); ok {
			allowed = append(allowed, action)
		}
	}
	return allowed
}
