package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is what the client can learn from an access token without the
// signing key. Nothing here is trusted for authorization decisions.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// PeekClaims decodes the payload of a JWT access token without verifying
// its signature. ok is false for opaque tokens.
func PeekClaims(token string) (Claims, bool) {
	var rc jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &rc); err != nil {
		return Claims{}, false
	}

	c := Claims{Subject: rc.Subject}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	return c, true
}
