package token

import (
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt"
)

// SESSION_COOKIE is the Prism Central session cookie. Its value is a JWT
// signed by the cluster; we only read its claims.
const SESSION_COOKIE = "NTNX_IGW_SESSION"

// SessionExpiry returns the exp claim of a session token without verifying
// the signature. The signing key never leaves Prism Central, so the client
// can only use the claim as a refresh hint.
func SessionExpiry(raw string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(raw, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse session token: %w", err)
	}

	exp, ok := claims["exp"]
	if !ok {
		return time.Time{}, fmt.Errorf("session token has no exp claim")
	}
	switch v := exp.(type) {
	case float64:
		return time.Unix(int64(v), 0), nil
	default:
		return time.Time{}, fmt.Errorf("session token exp has type %T", exp)
	}
}
