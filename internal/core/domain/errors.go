package domain

import "errors"

// Sentinel errors for the authentication core. Adapters wrap these with
// context via fmt.Errorf("…: %w", err); the HTTP layer resolves them to
// status codes in one place.
var (
	// ErrTokenExpired means the token's embedded expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid means the token is malformed or its signature is bad.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenNotFound means no ledger row exists for the presented token.
	ErrTokenNotFound = errors.New("token not found")

	// ErrInvalidCredentials means the password did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled means the account has not completed verification.
	ErrAccountDisabled = errors.New("account not verified")

	// ErrUserNotFound means no live user exists for the lookup key.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists means the email is already registered.
	ErrUserExists = errors.New("user already exists")

	// ErrAlreadyVerified means the account is already enabled.
	ErrAlreadyVerified = errors.New("account already verified")
	// ErrCodeExpired means the verification or reset code has expired.
	ErrCodeExpired = errors.New("code expired")
	// ErrCodeMismatch means the supplied code does not match the stored one.
	ErrCodeMismatch = errors.New("invalid code")

	// ErrTooManyAttempts means the caller hit the attempt limiter.
	ErrTooManyAttempts = errors.New("too many attempts")
)
