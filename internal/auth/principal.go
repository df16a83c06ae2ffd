// SPDX-License-Identifier: MIT

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Principal represents the identity of a caller.
type Principal struct {
	// ID is stable for a caller: the configured user or a hash of the token.
	ID string

	// User is the human-readable name if configured (e.g. "ops-bot").
	User string

	// Scopes are the permissions granted to this principal.
	Scopes ScopeSet

	// Anonymous is set for callers that presented no token.
	Anonymous bool
}

// NewPrincipal creates a Principal from a token and optional user/scopes.
func NewPrincipal(token string, user string, scopes []string) *Principal {
	id := user
	if id == "" {
		// "t_" prefix to distinguish from potential username collisions
		hash := sha256.Sum256([]byte(token))
		id = "t_" + hex.EncodeToString(hash[:])[:16]
	}
	return &Principal{
		ID:     id,
		User:   user,
		Scopes: NewScopeSet(scopes),
	}
}

// AnonymousPrincipal returns the caller used when no token was presented.
func AnonymousPrincipal(scopes []string) *Principal {
	return &Principal{
		ID:        "anonymous",
		Scopes:    NewScopeSet(scopes),
		Anonymous: true,
	}
}

// Can reports whether p holds scope. The empty scope means no permission is
// required; a nil principal holds nothing else.
func (p *Principal) Can(scope Scope) bool {
	if scope == "" {
		return true
	}
	if p == nil {
		return false
	}
	return p.Scopes.Has(scope)
}

type principalKey struct{}

// ContextWithPrincipal stores p in ctx.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by ContextWithPrincipal.
func PrincipalFromContext(ctx context.Context) *Principal {
	if ctx == nil {
		return nil
	}
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
