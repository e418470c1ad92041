// Package utils holds the access token helpers shared by the HTTP
// middleware, the realtime endpoint and the token command.
package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields a terminal access token carries.  Permissions is
// optional; when present it replaces the role's static capabilities.
type Claims struct {
	Role        string   `json:"role"`
	Branch      string   `json:"branch,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// AccessToken is a signed JWT and its expiry.
type AccessToken struct {
	Token string    `json:"token"`
	Exp   time.Time `json:"expires_at"`
}

// ErrInvalidToken covers every verification failure.
var ErrInvalidToken = errors.New("invalid token")

// NewAccessToken signs an HS256 token for userID.  It is meant for
// development terminals; production tokens come from the backend.
func NewAccessToken(secret, userID, role, branch string, permissions []string, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Role:        role,
		Branch:      branch,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw with secret and returns its claims.  Only
// HMAC signatures are accepted and the subject must be present.
func ParseAccessToken(secret, raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// Verifier checks tokens against one secret.
type Verifier struct {
	Secret string
}

// UserID verifies raw and returns its subject.
func (v Verifier) UserID(raw string) (string, error) {
	c, err := ParseAccessToken(v.Secret, raw)
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}
