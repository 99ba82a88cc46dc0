package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/pharmacore-backend/pkg/errors"
)

type samplePayload struct {
	BatchID string `json:"batch_id" validate:"required,uuid"`
	Reason  string `json:"reason" validate:"required,notblank,max=10"`
}

func decode(t *testing.T, body string) (samplePayload, *pkgerrors.Error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var dest samplePayload
	err := DecodeJSONBody(req, &dest)
	if err == nil {
		return dest, nil
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %T", err)
	}
	return dest, typed
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	got, err := decode(t, `{"batch_id":"7f1c1a8e-4a55-4b8e-9c43-0e0b1a2c3d4e","reason":"damaged"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Reason != "damaged" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestDecodeJSONBodyReportsFieldsByJSONName(t *testing.T) {
	_, err := decode(t, `{"batch_id":"nope","reason":"   "}`)
	if err == nil || err.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := err.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", err.Details())
	}
	if details["batch_id"] != "must be a valid UUID" {
		t.Fatalf("unexpected batch_id message %q", details["batch_id"])
	}
	if details["reason"] != "is required" {
		t.Fatalf("unexpected reason message %q", details["reason"])
	}
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":    ``,
		"unknown":  `{"batch_id":"x","extra":true}`,
		"trailing": `{"reason":"a"} {"reason":"b"}`,
		"syntax":   `{"reason":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := decode(t, body); err == nil || err.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  hello  ", 0); got != "hello" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	if got := SanitizeString("abcdef", 3); got != "abc" {
		t.Fatalf("expected cut value, got %q", got)
	}
	// "é" is two bytes; cutting at 2 must not leave half of it behind.
	if got := SanitizeString("aé", 2); got != "a" {
		t.Fatalf("expected rune-safe cut, got %q", got)
	}
}
