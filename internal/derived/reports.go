// SPDX-License-Identifier: MIT

package derived

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Entry is one keyed report of a zone.
type Entry[V any] struct {
	Key    string
	Report Report[V]
}

// Reports is an insertion-ordered map from display key to report. Putting an
// existing key replaces its report but keeps the key at its first position.
type Reports[V any] struct {
	keys  []string
	byKey map[string]Report[V]
}

// NewReports returns an empty Reports.
func NewReports[V any]() *Reports[V] {
	return &Reports[V]{byKey: make(map[string]Report[V])}
}

// Put stores r under key.
func (rs *Reports[V]) Put(key string, r Report[V]) {
	if _, ok := rs.byKey[key]; !ok {
		rs.keys = append(rs.keys, key)
	}
	rs.byKey[key] = r
}

// Get returns the report stored under key.
func (rs *Reports[V]) Get(key string) (Report[V], bool) {
	r, ok := rs.byKey[key]
	return r, ok
}

// Len returns the number of distinct keys.
func (rs *Reports[V]) Len() int { return len(rs.keys) }

// Keys returns the keys in iteration order.
func (rs *Reports[V]) Keys() []string {
	return append([]string(nil), rs.keys...)
}

// Entries returns the entries in iteration order.
func (rs *Reports[V]) Entries() []Entry[V] {
	out := make([]Entry[V], 0, len(rs.keys))
	for _, k := range rs.keys {
		out = append(out, Entry[V]{Key: k, Report: rs.byKey[k]})
	}
	return out
}

// MarshalJSON renders the reports as a JSON object in iteration order.
func (rs *Reports[V]) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range rs.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(rs.byKey[k])
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// Combine merges reports into one aggregate report. The aggregate result is
// the worst result among the entries (Success when there are none); its
// value is a log with one paragraph per entry worse than Success, empty when
// every entry succeeded.
func Combine[V any](rs *Reports[V]) Report[string] {
	combined := Success
	var log strings.Builder
	if rs != nil {
		for _, k := range rs.keys {
			r := rs.byKey[k]
			combined = combined.Combine(r.Result())
			if r.Result().IsWorseThan(Success) {
				fmt.Fprintf(&log, "[%s]: '%s' due to:\n%v\n", r.Result(), k, r.Value())
			}
		}
	}
	return Report[string]{result: combined, value: log.String()}
}
