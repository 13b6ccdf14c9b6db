package auth

import "strings"

// authPathFragments identify endpoints that must never carry a bearer token
// or trigger a refresh.
var authPathFragments = []string{"/login", "/register", "/oauth", "/refresh"}

// IsAuthEndpoint reports whether path targets login, registration, OAuth
// login or token refresh.
func IsAuthEndpoint(path string) bool {
	for _, fragment := range authPathFragments {
		if strings.Contains(path, fragment) {
			return true
		}
	}
	return false
}
