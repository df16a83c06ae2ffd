// SPDX-License-Identifier: MIT

package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// SessionCookie is the cookie carrying an API token for browser callers.
const SessionCookie = "zonewatch_session"

// ExtractToken retrieves the API token from the request, in order:
// 1. Authorization: Bearer <token>
// 2. Cookie: zonewatch_session
// 3. Header: X-API-Token
func ExtractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return strings.TrimSpace(r.Header.Get("X-API-Token"))
}

// AuthorizeToken returns true if got matches expected using constant-time comparison.
// Empty tokens are always treated as unauthorized.
func AuthorizeToken(got, expected string) bool {
	if strings.TrimSpace(expected) == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}
