// SPDX-License-Identifier: MIT

package derived

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Report is the immutable outcome of deriving one component: a Result and
// the value produced alongside it (for health checks, the captured log).
type Report[V any] struct {
	result Result
	value  V
}

// NewReport builds a report. It fails when result is not a valid Result or
// value is a nil reference.
func NewReport[V any](result Result, value V) (Report[V], error) {
	if !result.Valid() {
		return Report[V]{}, fmt.Errorf("%w: %d", ErrInvalidResult, int(result))
	}
	if isNil(value) {
		return Report[V]{}, ErrNilValue
	}
	return Report[V]{result: result, value: value}, nil
}

// MustReport is like NewReport but panics on invalid input. Use it with
// constant arguments only.
func MustReport[V any](result Result, value V) Report[V] {
	r, err := NewReport(result, value)
	if err != nil {
		panic(err)
	}
	return r
}

// Result returns the severity of the report.
func (r Report[V]) Result() Result { return r.result }

// Value returns the derived value.
func (r Report[V]) Value() V { return r.value }

// IsZero reports whether r was never constructed.
func (r Report[V]) IsZero() bool { return !r.result.Valid() }

type reportJSON[V any] struct {
	Result Result `json:"result"`
	Value  V      `json:"value"`
}

// MarshalJSON renders {"result": "...", "value": ...}.
func (r Report[V]) MarshalJSON() ([]byte, error) {
	return json.Marshal(reportJSON[V]{Result: r.result, Value: r.value})
}

// UnmarshalJSON validates the decoded report the same way NewReport does.
func (r *Report[V]) UnmarshalJSON(data []byte) error {
	var raw reportJSON[V]
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := NewReport(raw.Result, raw.Value)
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
