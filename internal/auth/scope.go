// SPDX-License-Identifier: MIT

package auth

import (
	"sort"
	"strings"
)

// Scope defines a named permission.
type Scope string

const (
	ScopeAll         Scope = "*"
	ScopeHealthAll   Scope = "health:*"
	ScopeHealthCheck Scope = "health:check"
	ScopeHealthAdmin Scope = "health:admin"
)

// KnownScopes lists every scope a token can be granted.
var KnownScopes = []Scope{ScopeAll, ScopeHealthAll, ScopeHealthCheck, ScopeHealthAdmin}

// ParseScope normalizes s and reports whether it names a known scope.
func ParseScope(s string) (Scope, bool) {
	scope := Scope(strings.TrimSpace(strings.ToLower(s)))
	for _, k := range KnownScopes {
		if scope == k {
			return scope, true
		}
	}
	return scope, false
}

// ScopeSet is a normalized set of scopes with implied scopes expanded.
type ScopeSet map[Scope]struct{}

// NewScopeSet normalizes scopes (trimmed, lower-cased, de-duplicated) and
// expands implied scopes.
func NewScopeSet(scopes []string) ScopeSet {
	set := ScopeSet{}
	for _, scope := range scopes {
		scope = strings.TrimSpace(strings.ToLower(scope))
		if scope == "" {
			continue
		}
		set[Scope(scope)] = struct{}{}
	}
	applyImpliedScopes(set)
	return set
}

func applyImpliedScopes(set ScopeSet) {
	if _, ok := set[ScopeAll]; ok {
		set[ScopeHealthAll] = struct{}{}
	}
	if _, ok := set[ScopeHealthAll]; ok {
		set[ScopeHealthAdmin] = struct{}{}
		set[ScopeHealthCheck] = struct{}{}
	}
	if _, ok := set[ScopeHealthAdmin]; ok {
		set[ScopeHealthCheck] = struct{}{}
	}
}

// Has reports whether the set grants scope. The wildcard grants everything
// and health:* grants every health: scope.
func (s ScopeSet) Has(scope Scope) bool {
	if s == nil {
		return false
	}
	if _, ok := s[ScopeAll]; ok {
		return true
	}
	if _, ok := s[ScopeHealthAll]; ok && strings.HasPrefix(string(scope), "health:") {
		return true
	}
	_, ok := s[scope]
	return ok
}

// Allows reports whether the set grants at least one of required. An empty
// requirement is always allowed.
func (s ScopeSet) Allows(required ...Scope) bool {
	if len(required) == 0 {
		return true
	}
	for _, scope := range required {
		if s.Has(scope) {
			return true
		}
	}
	return false
}

// Strings returns the scopes sorted.
func (s ScopeSet) Strings() []string {
	out := make([]string, 0, len(s))
	for scope := range s {
		out = append(out, string(scope))
	}
	sort.Strings(out)
	return out
}
