package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/torqueworks/workshop-api/internal/core/domain"
	"github.com/torqueworks/workshop-api/internal/core/ports"
)

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// jwtCodec signs and verifies HS256 bearer tokens carrying the user's email
// as subject and the role as a custom claim.
type jwtCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenCodec returns a ports.TokenCodec backed by golang-jwt. Zero TTLs
// fall back to one hour for access tokens and seven days for refresh tokens.
func NewTokenCodec(secret string, accessTTL, refreshTTL time.Duration) ports.TokenCodec {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &jwtCodec{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (c *jwtCodec) GenerateToken(user *domain.User) (string, error) {
	return c.sign(user, c.accessTTL)
}

func (c *jwtCodec) GenerateRefreshToken(user *domain.User) (string, error) {
	return c.sign(user, c.refreshTTL)
}

func (c *jwtCodec) sign(user *domain.User, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := tokenClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ExtractUsername verifies the token and returns its subject. Expiry beats
// every other failure: an expired token reports domain.ErrTokenExpired even
// when the parser also flags something else.
func (c *jwtCodec) ExtractUsername(token string) (string, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) || c.expiredUnverified(token) {
			return "", fmt.Errorf("%w: %s", domain.ErrTokenExpired, err)
		}
		return "", fmt.Errorf("%w: %s", domain.ErrTokenInvalid, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", domain.ErrTokenInvalid
	}
	return claims.Subject, nil
}

// expiredUnverified reports whether the token's exp claim has passed without
// requiring a valid signature, so expiry wins over signature failures.
func (c *jwtCodec) expiredUnverified(token string) bool {
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now().UTC())
}

func (c *jwtCodec) IsTokenValid(token string, user *domain.User) bool {
	subject, err := c.ExtractUsername(token)
	return err == nil && subject == user.Email
}
