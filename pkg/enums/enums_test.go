package enums

import "testing"

func TestQuarantineTransitionTable(t *testing.T) {
	tests := []struct {
		from   QuarantineStatus
		action QuarantineAction
		want   QuarantineStatus
		ok     bool
	}{
		{QuarantineStatusPendingReview, QuarantineActionReview, QuarantineStatusUnderReview, true},
		{QuarantineStatusUnderReview, QuarantineActionApproveDisposal, QuarantineStatusApprovedForDisposal, true},
		{QuarantineStatusUnderReview, QuarantineActionApproveReturn, QuarantineStatusApprovedForReturn, true},
		{QuarantineStatusApprovedForDisposal, QuarantineActionDispose, QuarantineStatusDisposed, true},
		{QuarantineStatusApprovedForReturn, QuarantineActionReturn, QuarantineStatusReturned, true},
		{QuarantineStatusUnderReview, QuarantineActionDispose, "", false},
		{QuarantineStatusPendingReview, QuarantineActionApproveDisposal, "", false},
		{QuarantineStatusApprovedForDisposal, QuarantineActionReturn, "", false},
		{QuarantineStatusApprovedForReturn, QuarantineActionDispose, "", false},
		{QuarantineStatusDisposed, QuarantineActionReview, "", false},
		{QuarantineStatusReturned, QuarantineActionReturn, "", false},
	}
	for _, tt := range tests {
		got, ok := NextQuarantineStatus(tt.from, tt.action)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("%s + %s: expected (%q, %v) got (%q, %v)", tt.from, tt.action, tt.want, tt.ok, got, ok)
		}
	}
}

func TestTerminalQuarantineStatusesAllowNothing(t *testing.T) {
	for _, status := range []QuarantineStatus{QuarantineStatusDisposed, QuarantineStatusReturned} {
		if !status.IsTerminal() {
			t.Fatalf("%s should be terminal", status)
		}
		if allowed := AllowedQuarantineActions(status); len(allowed) != 0 {
			t.Fatalf("%s should allow no actions, got %v", status, allowed)
		}
	}
	allowed := AllowedQuarantineActions(QuarantineStatusUnderReview)
	if len(allowed) != 2 {
		t.Fatalf("expected two approvals from UNDER_REVIEW, got %v", allowed)
	}
}

func TestQuarantineActionParsingExcludesCreation(t *testing.T) {
	if _, err := ParseQuarantineAction("QUARANTINE"); err == nil {
		t.Fatalf("QUARANTINE is not a requestable action")
	}
	action, err := ParseQuarantineAction("DISPOSE")
	if err != nil || action != QuarantineActionDispose {
		t.Fatalf("expected DISPOSE, got %q err=%v", action, err)
	}
}

func TestAlertStatusTransitions(t *testing.T) {
	if !AlertStatusPending.CanTransitionTo(AlertStatusAcknowledged) {
		t.Fatalf("PENDING should be acknowledgeable")
	}
	if !AlertStatusSent.CanTransitionTo(AlertStatusAcknowledged) {
		t.Fatalf("SENT should be acknowledgeable")
	}
	if AlertStatusAcknowledged.CanTransitionTo(AlertStatusAcknowledged) {
		t.Fatalf("ACKNOWLEDGED cannot be acknowledged again")
	}
	if AlertStatusResolved.CanTransitionTo(AlertStatusAcknowledged) || AlertStatusResolved.CanTransitionTo(AlertStatusResolved) {
		t.Fatalf("RESOLVED is terminal")
	}
	if AlertStatusResolved.IsOpen() || !AlertStatusSent.IsOpen() {
		t.Fatalf("unexpected open semantics")
	}
}

func TestCheckRunStatusTransitions(t *testing.T) {
	if !CheckRunStatusRunning.CanTransitionTo(CheckRunStatusCompleted) {
		t.Fatalf("RUNNING -> COMPLETED must be legal")
	}
	if !CheckRunStatusRunning.CanTransitionTo(CheckRunStatusFailed) {
		t.Fatalf("RUNNING -> FAILED must be legal")
	}
	if CheckRunStatusCompleted.CanTransitionTo(CheckRunStatusFailed) {
		t.Fatalf("COMPLETED is terminal")
	}
}

func TestParseHelpers(t *testing.T) {
	if _, err := ParseTierSeverity("URGENT"); err == nil {
		t.Fatalf("expected invalid severity")
	}
	if sev, err := ParseTierSeverity("CRITICAL"); err != nil || sev != TierSeverityCritical {
		t.Fatalf("expected CRITICAL, got %q err=%v", sev, err)
	}
	if _, err := ParseRole("SYSTEM"); err == nil {
		t.Fatalf("SYSTEM must not be assignable")
	}
	if _, err := ParseAlertStatus("pending"); err == nil {
		t.Fatalf("status parsing is case sensitive")
	}
}
