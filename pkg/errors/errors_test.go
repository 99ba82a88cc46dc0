package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestMetadataTable(t *testing.T) {
	want := map[Code]Metadata{
		CodeValidation:        {HTTPStatus: http.StatusBadRequest, PublicMessage: "validation failed", DetailsAllowed: true},
		CodeUnauthorized:      {HTTPStatus: http.StatusUnauthorized, PublicMessage: "authentication required"},
		CodeForbidden:         {HTTPStatus: http.StatusForbidden, PublicMessage: "access denied"},
		CodeNotFound:          {HTTPStatus: http.StatusNotFound, PublicMessage: "resource not found"},
		CodeConflict:          {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected"},
		CodeIdempotency:       {HTTPStatus: http.StatusConflict, PublicMessage: "idempotency key reused", DetailsAllowed: true},
		CodeInternal:          {HTTPStatus: http.StatusInternalServerError, PublicMessage: "internal server error", Retryable: true},
		CodeDependency:        {HTTPStatus: http.StatusServiceUnavailable, PublicMessage: "dependency unavailable", Retryable: true, DetailsAllowed: true},
		CodeDuplicateTier:     {HTTPStatus: http.StatusConflict, PublicMessage: "an active tier already uses this threshold", DetailsAllowed: true},
		CodeAlreadyRun:        {HTTPStatus: http.StatusConflict, PublicMessage: "expiry check already run", DetailsAllowed: true},
		CodeInvalidState:      {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "operation not allowed in current state", DetailsAllowed: true},
		CodeIllegalTransition: {HTTPStatus: http.StatusUnprocessableEntity, PublicMessage: "state transition disallowed", DetailsAllowed: true},
		CodeCheckExecution:    {HTTPStatus: http.StatusInternalServerError, PublicMessage: "expiry check failed", Retryable: true, DetailsAllowed: true},
	}
	for code, expected := range want {
		if got := MetadataFor(code); got != expected {
			t.Errorf("%s: got %+v want %+v", code, got, expected)
		}
	}
	if got := MetadataFor("SOMETHING_UNKNOWN"); got != MetadataFor(CodeInternal) {
		t.Fatalf("unknown code should fall back to internal, got %+v", got)
	}
}

func TestErrorCarriesDetailsAndCause(t *testing.T) {
	err := Newf(CodeValidation, "missing %s", "reason")
	if err.Code() != CodeValidation || err.Message() != "missing reason" {
		t.Fatalf("unexpected error %q", err.Error())
	}
	if err.Details() != nil {
		t.Fatal("details should be nil by default")
	}
	if err.WithDetails(map[string]string{"reason": "required"}).Details() == nil {
		t.Fatal("details should be kept")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "save case")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatal("Wrap dropped the cause")
	}
	if !strings.Contains(wrapped.Error(), "boom") {
		t.Fatalf("expected cause in message, got %q", wrapped.Error())
	}
	if wrapped.ErrorCode() != string(CodeConflict) {
		t.Fatalf("unexpected error code %q", wrapped.ErrorCode())
	}
	if Wrap(CodeInternal, nil, "x").Unwrap() != nil {
		t.Fatal("wrapping nil should not invent a cause")
	}
}

func TestNilErrorIsSafe(t *testing.T) {
	var err *Error
	if err.Code() != CodeInternal || err.Error() != "" || err.Details() != nil {
		t.Fatal("nil *Error should behave as an empty internal error")
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	inner := New(CodeIllegalTransition, "cannot dispose").WithDetails(map[string]any{"current_status": "UNDER_REVIEW"})
	outer := fmt.Errorf("process action: %w", inner)
	if As(outer) != inner {
		t.Fatal("As should return the wrapped typed error")
	}
	if !IsCode(outer, CodeIllegalTransition) {
		t.Fatal("expected wrapped code to be detected")
	}
	if IsCode(outer, CodeInvalidState) {
		t.Fatal("unexpected code match")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) || As(nil) != nil {
		t.Fatal("untyped errors carry no code")
	}
}
