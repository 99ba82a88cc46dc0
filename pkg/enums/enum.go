package enums

import (
	"fmt"
	"slices"
)

// parse returns raw as T when it is one of allowed.
func parse[T ~string](allowed []T, kind, raw string) (T, error) {
	if v := T(raw); slices.Contains(allowed, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
