// Package auth implements the credential and token primitives of the
// identity core: HS256 access/refresh tokens and the keyed argon2id
// password hasher.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every token verification failure: bad
// signature, expired, malformed, or a token of the wrong kind. Callers
// do not need to distinguish these; all of them require signing in again.
var ErrInvalidToken = errors.New("invalid token")

// Access and refresh tokens are signed with the same key, so kind
// confusion is prevented at the claim-shape level: each kind has its own
// required field and a token missing it is rejected. This asymmetry with
// the identifier codec (which separates kinds by tag under one key) is
// deliberate.
type accessClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid,omitempty"`
}

type refreshClaims struct {
	jwt.RegisteredClaims
	Secret string `json:"secret,omitempty"`
}

// NewAccessToken signs a short-lived token carrying the opaque user id.
func NewAccessToken(userID string, key []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		RegisteredClaims: registered(now, ttl),
		UserID:           userID,
	}).SignedString(key)
}

// NewRefreshToken signs a long-lived token carrying the refresh secret.
func NewRefreshToken(secret uuid.UUID, key []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims{
		RegisteredClaims: registered(now, ttl),
		Secret:           secret.String(),
	}).SignedString(key)
}

// ParseAccessToken verifies signature and expiry and returns the opaque
// user id. Refresh tokens are rejected: they carry no uid claim.
func ParseAccessToken(tokenString string, key []byte) (string, error) {
	claims := &accessClaims{}
	if err := parse(tokenString, claims, key); err != nil {
		return "", err
	}
	if claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

// ParseRefreshToken verifies signature and expiry and returns the
// refresh secret. Access tokens are rejected: they carry no secret claim.
func ParseRefreshToken(tokenString string, key []byte) (uuid.UUID, error) {
	claims := &refreshClaims{}
	if err := parse(tokenString, claims, key); err != nil {
		return uuid.Nil, err
	}
	secret, err := uuid.Parse(claims.Secret)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return secret, nil
}

func registered(now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func parse(tokenString string, claims jwt.Claims, key []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return ErrInvalidToken
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
