// SPDX-License-Identifier: MIT

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractToken_PriorityOrder(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example.local/health", nil)
	r.Header.Set("Authorization", "Bearer bearer-token ")
	r.Header.Set("X-API-Token", "header-token")
	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "session-token"})
	assert.Equal(t, "bearer-token", ExtractToken(r))

	r.Header.Del("Authorization")
	assert.Equal(t, "session-token", ExtractToken(r))

	r = httptest.NewRequest(http.MethodGet, "http://example.local/health", nil)
	r.Header.Set("X-API-Token", "header-token")
	assert.Equal(t, "header-token", ExtractToken(r))
}

func TestExtractToken_IgnoresQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example.local/health?token=query-token", nil)
	assert.Empty(t, ExtractToken(r))
}

func TestAuthorizeToken(t *testing.T) {
	assert.True(t, AuthorizeToken("secret", "secret"))
	assert.False(t, AuthorizeToken("secret", "other"))
	assert.False(t, AuthorizeToken("", "secret"))
	assert.False(t, AuthorizeToken("secret", ""))
	assert.False(t, AuthorizeToken("secret", "   "))
}

func TestScopeSetImpliedScopes(t *testing.T) {
	tests := []struct {
		name   string
		scopes []string
		check  bool
		admin  bool
	}{
		{name: "none", scopes: nil},
		{name: "check", scopes: []string{"health:check"}, check: true},
		{name: "admin implies check", scopes: []string{" HEALTH:ADMIN "}, check: true, admin: true},
		{name: "health wildcard", scopes: []string{"health:*"}, check: true, admin: true},
		{name: "global wildcard", scopes: []string{"*"}, check: true, admin: true},
		{name: "unrelated", scopes: []string{"jobs:read"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := NewScopeSet(tt.scopes)
			assert.Equal(t, tt.check, set.Has(ScopeHealthCheck))
			assert.Equal(t, tt.admin, set.Has(ScopeHealthAdmin))
		})
	}

	set := NewScopeSet([]string{"health:admin"})
	assert.Equal(t, []string{"health:admin", "health:check"}, set.Strings())
	assert.True(t, set.Allows())
	assert.True(t, set.Allows("other", ScopeHealthCheck))
	assert.False(t, ScopeSet(nil).Has(ScopeHealthCheck))
}

func TestPrincipal(t *testing.T) {
	p := NewPrincipal("secret", "", []string{"health:check"})
	assert.Regexp(t, `^t_[0-9a-f]{16}$`, p.ID)
	assert.Equal(t, p.ID, NewPrincipal("secret", "", nil).ID)
	assert.True(t, p.Can(ScopeHealthCheck))
	assert.False(t, p.Can(ScopeHealthAdmin))
	assert.True(t, p.Can(""))

	named := NewPrincipal("secret", "ops-bot", nil)
	assert.Equal(t, "ops-bot", named.ID)

	var nilPrincipal *Principal
	assert.False(t, nilPrincipal.Can(ScopeHealthCheck))
	assert.True(t, nilPrincipal.Can(""))

	ctx := ContextWithPrincipal(context.Background(), p)
	assert.Same(t, p, PrincipalFromContext(ctx))
	assert.Nil(t, PrincipalFromContext(context.Background()))
}

func TestAuthenticator(t *testing.T) {
	a := NewAuthenticator([]TokenEntry{
		{Token: "reader", User: "dashboard"},
		{Token: "admin", User: "ops", Scopes: []string{"health:admin"}},
	}, nil)

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	p, err := a.Authenticate(r)
	require.NoError(t, err)
	assert.True(t, p.Anonymous)
	assert.False(t, p.Can(ScopeHealthCheck))

	r.Header.Set("Authorization", "Bearer reader")
	p, err = a.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, "dashboard", p.ID)
	assert.True(t, p.Can(ScopeHealthCheck))
	assert.False(t, p.Can(ScopeHealthAdmin))

	r.Header.Set("Authorization", "Bearer admin")
	p, err = a.Authenticate(r)
	require.NoError(t, err)
	assert.True(t, p.Can(ScopeHealthAdmin))

	r.Header.Set("Authorization", "Bearer wrong")
	_, err = a.Authenticate(r)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticatorAnonymousScopes(t *testing.T) {
	a := NewAuthenticator(nil, []string{"health:check"})
	p, err := a.Authenticate(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.True(t, p.Anonymous)
	assert.True(t, p.Can(ScopeHealthCheck))
	assert.False(t, p.Can(ScopeHealthAdmin))
}

func TestParseScope(t *testing.T) {
	s, ok := ParseScope(" Health:Admin ")
	assert.True(t, ok)
	assert.Equal(t, ScopeHealthAdmin, s)

	_, ok = ParseScope("v3:read")
	assert.False(t, ok)
}
