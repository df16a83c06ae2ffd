// SPDX-License-Identifier: MIT

package auth

import (
	"errors"
	"net/http"
)

// ErrInvalidToken is returned when a presented token matches no entry.
var ErrInvalidToken = errors.New("invalid API token")

// TokenEntry grants scopes to the holder of Token.
type TokenEntry struct {
	Token  string
	User   string
	Scopes []string
}

// DefaultTokenScopes are granted to a token configured without scopes.
var DefaultTokenScopes = []string{string(ScopeHealthCheck)}

// Authenticator resolves requests to principals.
type Authenticator struct {
	tokens    []TokenEntry
	anonymous []string
}

// NewAuthenticator builds an Authenticator. Callers that present no token get
// anonymousScopes, which may be empty.
func NewAuthenticator(tokens []TokenEntry, anonymousScopes []string) *Authenticator {
	return &Authenticator{
		tokens:    append([]TokenEntry(nil), tokens...),
		anonymous: append([]string(nil), anonymousScopes...),
	}
}

// Authenticate returns the principal for r. A request without a token is
// anonymous; a request whose token matches no entry fails with
// ErrInvalidToken.
func (a *Authenticator) Authenticate(r *http.Request) (*Principal, error) {
	token := ExtractToken(r)
	if token == "" {
		return AnonymousPrincipal(a.anonymous), nil
	}
	return a.AuthenticateToken(token)
}

// AuthenticateToken resolves a raw token.
func (a *Authenticator) AuthenticateToken(token string) (*Principal, error) {
	for _, entry := range a.tokens {
		if AuthorizeToken(token, entry.Token) {
			scopes := entry.Scopes
			if len(scopes) == 0 {
				scopes = DefaultTokenScopes
			}
			return NewPrincipal(token, entry.User, scopes), nil
		}
	}
	return nil, ErrInvalidToken
}
