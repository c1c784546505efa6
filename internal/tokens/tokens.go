package tokens

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lmsplatform/lms/backend/go-services/internal/sessions"
)

// SessionClaims is the payload of the session cookie.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// GenerateSessionToken signs an HS256 token for s that expires with the session.
func GenerateSessionToken(secret string, s *sessions.Session) (string, error) {
	if secret == "" {
		return "", errors.New("empty signing secret")
	}
	claims := SessionClaims{
		SessionID: s.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.Sub,
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(secret))
}

// ParseSessionToken verifies signature, algorithm and expiry and returns the claims.
func ParseSessionToken(secret, raw string) (*SessionClaims, error) {
	var claims SessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims.ExpiresAt == nil {
		return nil, errors.New("session token has no expiry")
	}
	if claims.SessionID == "" || claims.Subject == "" {
		return nil, errors.New("session token missing sid or sub")
	}
	return &claims, nil
}
