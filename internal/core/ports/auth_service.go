package ports

import (
	"context"

	"github.com/torqueworks/workshop-api/internal/core/domain"
)

// TokenPair is the access/refresh pair returned by token-issuing operations.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	FirstName    string
	LastName     string
	Email        string
	Password     string
	Role         domain.Role
	MobileNumber string
	DateOfBirth  string
	Address      string
	ImageURL     string
}

// AuthService orchestrates registration, login, refresh, verification and
// password-reset flows.
//
// Accounts are created disabled; tokens are first issued by VerifyUser once
// the emailed code checks out, so no token ever exists for an unverified
// account.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (TokenPair, error)
	// Refresh issues a fresh access token against a valid refresh token and
	// echoes the refresh token back in the pair.
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
	VerifyUser(ctx context.Context, email, code string) (TokenPair, error)
	ResendVerificationCode(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

// UserService exposes the thin user surface kept alongside authentication.
type UserService interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Delete soft-deletes the user and retires their outstanding tokens.
	Delete(ctx context.Context, id string) error
}
