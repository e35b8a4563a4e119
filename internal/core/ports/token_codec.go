package ports

import "github.com/torqueworks/workshop-api/internal/core/domain"

// TokenCodec produces and verifies compact signed bearer tokens. It is a
// pure function of token, secret key and clock; the ledger is elsewhere.
type TokenCodec interface {
	// GenerateToken signs a short-lived access token for the user.
	GenerateToken(user *domain.User) (string, error)
	// GenerateRefreshToken signs a long-lived refresh token for the user.
	GenerateRefreshToken(user *domain.User) (string, error)
	// ExtractUsername verifies signature and expiry and returns the subject.
	// Fails with domain.ErrTokenExpired or domain.ErrTokenInvalid.
	ExtractUsername(token string) (string, error)
	// IsTokenValid reports whether the token's subject matches the user's
	// email and the token has not expired.
	IsTokenValid(token string, user *domain.User) bool
}
