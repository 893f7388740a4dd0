package utils // package utils provides helper functions for tokens and civil time

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing and signing scope tokens
)

// ScopeClaims is the part of a bearer token the engine cares about: the
// restaurant every booking lookup is scoped to, and the caller's role
// (STAFF or OPERATOR).  Tokens are issued by the session service; this
// package only verifies them.
type ScopeClaims struct {
	RestaurantID uint64
	Role         string
}

// ErrInvalidToken is returned for any token that fails signature, expiry
// or claim checks.
var ErrInvalidToken = errors.New("invalid token")

// ParseScopeToken verifies an HS256 token with secret and extracts the
// restaurant scope and role.  The restaurant_id claim may be encoded as a
// JSON number or a decimal string.
func ParseScopeToken(secret, raw string) (ScopeClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject anything that is not HMAC to avoid alg confusion.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return ScopeClaims{}, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return ScopeClaims{}, ErrInvalidToken
	}
	rid, ok := uintClaim(claims["restaurant_id"])
	if !ok || rid == 0 {
		return ScopeClaims{}, ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	return ScopeClaims{RestaurantID: rid, Role: role}, nil
}

// NewScopeToken signs an HS256 token carrying the restaurant scope and
// role, valid for ttl.  It exists for operational scripts and tests; the
// HTTP API never issues tokens.
func NewScopeToken(secret string, restaurantID uint64, role string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"restaurant_id": restaurantID,
		"role":          role,
		"iat":           now.Unix(),
		"exp":           now.Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign scope token: %w", err)
	}
	return signed, nil
}

func uintClaim(v interface{}) (uint64, bool) {
	switch t := v.(type) {
	case float64:
		if t < 0 {
			return 0, false
		}
		return uint64(t), true
	case string:
		n, err := strconv.ParseUint(t, 10, 64)
		return n, err == nil
	}
	return 0, false
}
