// SPDX-License-Identifier: MIT

// Package derived implements the derived-page framework: named zones of
// pluggable components, each derived on demand into a severity-tagged report,
// and a registry that persists the zone mapping and replaces it atomically.
package derived

import (
	"fmt"
	"strings"
)

// Result is the severity of a derivation. Results are totally ordered:
// Success < Unstable < Aborted < Failure. The zero value is not a valid
// result.
type Result int

const (
	resultUnset Result = iota
	Success
	Unstable
	Aborted
	Failure
)

var resultNames = map[Result]string{
	Success:  "SUCCESS",
	Unstable: "UNSTABLE",
	Aborted:  "ABORTED",
	Failure:  "FAILURE",
}

// Results returns all valid results from best to worst.
func Results() []Result {
	return []Result{Success, Unstable, Aborted, Failure}
}

// Valid reports whether r is one of the defined results.
func (r Result) Valid() bool {
	return r >= Success && r <= Failure
}

func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// Combine returns the worse of r and other. Combining never improves a
// result, which makes it associative and commutative.
func (r Result) Combine(other Result) Result {
	if other > r {
		return other
	}
	return r
}

// IsWorseThan reports whether r ranks strictly below other.
func (r Result) IsWorseThan(other Result) bool {
	return r > other
}

// IsBetterOrEqualTo reports whether r ranks at or above other.
func (r Result) IsBetterOrEqualTo(other Result) bool {
	return r <= other
}

// ParseResult parses a result name, case-insensitively.
func ParseResult(s string) (Result, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for r, n := range resultNames {
		if n == name {
			return r, nil
		}
	}
	return resultUnset, fmt.Errorf("%w: %q", ErrInvalidResult, s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Result) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidResult, int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Result) UnmarshalText(text []byte) error {
	parsed, err := ParseResult(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
