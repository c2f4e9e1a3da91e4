package session

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what the console reads from a fleet API token without
// verifying it. The backend remains the authority.
type TokenInfo struct {
	Subject   string
	Cargo     string
	ExpiresAt *time.Time
}

// InspectToken decodes the claims of a JWT. Opaque tokens yield ok=false.
func InspectToken(token string) (TokenInfo, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, false
	}

	var info TokenInfo
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		info.ExpiresAt = &t
	}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	for _, key := range []string{"cargo", "rol", "role"} {
		if v, ok := claims[key].(string); ok && v != "" {
			info.Cargo = strings.TrimSpace(v)
			break
		}
	}
	return info, true
}
