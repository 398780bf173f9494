// Package auth locates the caller's access token on a request. Issuing and
// refreshing tokens happens elsewhere.
package auth

import (
	"net/http"
	"strings"
)

const DefaultCookieName = "access_token"

// ExtractAccessToken returns the token from cookieName, falling back to a
// Bearer Authorization header. An empty cookieName means DefaultCookieName.
func ExtractAccessToken(r *http.Request, cookieName string) string {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}

	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}

	return ""
}
