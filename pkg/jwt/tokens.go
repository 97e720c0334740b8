package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const issuer = "reportdesk"

// ErrMissingSessionID is returned when a token parses but names no session.
var ErrMissingSessionID = errors.New("jwt: session id missing")

// SessionClaims identifies a server-side session record. The token carries no
// identity of its own; the session store stays authoritative.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwtlib.RegisteredClaims
}

// SignSession issues an HS256 token naming sessionID, valid for ttl.
func SignSession(sessionID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseSession validates token and returns the session id it carries.
func ParseSession(token, secret string) (string, error) {
	parsed, err := jwtlib.ParseWithClaims(token, &SessionClaims{}, func(t *jwtlib.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}), jwtlib.WithIssuer(issuer))
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return "", jwtlib.ErrTokenInvalidClaims
	}
	if claims.SessionID == "" {
		return "", ErrMissingSessionID
	}
	return claims.SessionID, nil
}
