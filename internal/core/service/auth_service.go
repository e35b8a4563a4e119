package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/torqueworks/workshop-api/internal/core/domain"
	"github.com/torqueworks/workshop-api/internal/core/ports"
)

// AttemptLimiter abstracts the throttle store (Redis). Limiter outages must
// never block authentication, so callers log failures and proceed.
type AttemptLimiter interface {
	TooMany(ctx context.Context, scope, key string) (bool, error)
	Hit(ctx context.Context, scope, key string) error
	Reset(ctx context.Context, scope, key string) error
}

const (
	scopeLogin  = "login"
	scopeResend = "resend"
)

// AuthConfig carries the tunables of the authentication flows.
type AuthConfig struct {
	// VerificationTTL is how long an emailed verification code stays valid.
	VerificationTTL time.Duration
	// ResetTTL is how long an emailed password-reset code stays valid.
	ResetTTL time.Duration
}

type authService struct {
	users   ports.UserRepository
	tokens  ports.TokenRepository
	codec   ports.TokenCodec
	mailer  ports.Mailer
	limiter AttemptLimiter
	cfg     AuthConfig
	log     zerolog.Logger
}

// NewAuthService returns an AuthService implementation.
func NewAuthService(
	users ports.UserRepository,
	tokens ports.TokenRepository,
	codec ports.TokenCodec,
	mailer ports.Mailer,
	limiter AttemptLimiter,
	cfg AuthConfig,
	log zerolog.Logger,
) ports.AuthService {
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = 3 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	return &authService{
		users:   users,
		tokens:  tokens,
		codec:   codec,
		mailer:  mailer,
		limiter: limiter,
		cfg:     cfg,
		log:     log,
	}
}

// Register creates a disabled account with a fresh verification code and
// mails the code. No tokens are issued until verification completes. A mail
// delivery failure is logged and swallowed; registration still succeeds.
func (s *authService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidCredentials, in.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	code, err := verificationCode()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		FirstName:             in.FirstName,
		LastName:              in.LastName,
		Email:                 in.Email,
		PasswordHash:          string(hash),
		Role:                  role,
		Enabled:               false,
		MobileNumber:          in.MobileNumber,
		DateOfBirth:           in.DateOfBirth,
		Address:               in.Address,
		ImageURL:              in.ImageURL,
		VerificationCode:      code,
		VerificationExpiresAt: now.Add(s.cfg.VerificationTTL),
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendVerificationCode(ctx, created.Email, created.FullName(), code); err != nil {
		s.log.Error().Err(err).Str("email", created.Email).Msg("verification email failed")
	}

	s.log.Info().Str("email", created.Email).Str("role", string(created.Role)).Msg("user registered")
	return created, nil
}

// Authenticate validates credentials and issues a fresh token pair. All of
// the user's previously valid tokens are retired; the new access token is
// recorded in the ledger. Revoke-then-issue is not atomic across concurrent
// logins; the ledger converges on the latest issuance.
func (s *authService) Authenticate(ctx context.Context, email, password string) (ports.TokenPair, error) {
	if blocked := s.tooMany(ctx, scopeLogin, email); blocked {
		return ports.TokenPair{}, domain.ErrTooManyAttempts
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return ports.TokenPair{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.hit(ctx, scopeLogin, email)
		return ports.TokenPair{}, domain.ErrInvalidCredentials
	}
	if !user.Enabled {
		return ports.TokenPair{}, domain.ErrAccountDisabled
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return ports.TokenPair{}, err
	}

	s.reset(ctx, scopeLogin, email)
	s.log.Info().Str("email", user.Email).Msg("user authenticated")
	return pair, nil
}

// Refresh verifies a refresh token, issues a new access token, retires prior
// tokens and echoes the same refresh token back.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (ports.TokenPair, error) {
	subject, err := s.codec.ExtractUsername(refreshToken)
	if err != nil {
		return ports.TokenPair{}, err
	}

	user, err := s.users.FindByEmail(ctx, subject)
	if err != nil {
		return ports.TokenPair{}, err
	}
	if !s.codec.IsTokenValid(refreshToken, user) {
		return ports.TokenPair{}, domain.ErrTokenInvalid
	}

	access, err := s.codec.GenerateToken(user)
	if err != nil {
		return ports.TokenPair{}, err
	}
	if err := s.revokeUserTokens(ctx, user.ID); err != nil {
		return ports.TokenPair{}, err
	}
	if err := s.recordToken(ctx, user.ID, access); err != nil {
		return ports.TokenPair{}, err
	}

	return ports.TokenPair{AccessToken: access, RefreshToken: refreshToken}, nil
}

// VerifyUser checks the emailed code, enables the account and issues the
// first token pair.
func (s *authService) VerifyUser(ctx context.Context, email, code string) (ports.TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return ports.TokenPair{}, err
	}
	if user.Enabled {
		return ports.TokenPair{}, domain.ErrAlreadyVerified
	}
	if time.Now().UTC().After(user.VerificationExpiresAt) {
		return ports.TokenPair{}, domain.ErrCodeExpired
	}
	if user.VerificationCode == "" || user.VerificationCode != code {
		return ports.TokenPair{}, domain.ErrCodeMismatch
	}

	user.Enabled = true
	user.VerificationCode = ""
	user.VerificationExpiresAt = time.Time{}
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return ports.TokenPair{}, err
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return ports.TokenPair{}, err
	}

	s.log.Info().Str("email", user.Email).Msg("account verified")
	return pair, nil
}

// ResendVerificationCode regenerates the code and expiry and resends the
// email. Mail failures are logged, not propagated.
func (s *authService) ResendVerificationCode(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.Enabled {
		return domain.ErrAlreadyVerified
	}
	if blocked := s.tooMany(ctx, scopeResend, email); blocked {
		return domain.ErrTooManyAttempts
	}

	code, err := verificationCode()
	if err != nil {
		return err
	}
	user.VerificationCode = code
	user.VerificationExpiresAt = time.Now().UTC().Add(s.cfg.VerificationTTL)
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	if err := s.mailer.SendVerificationCode(ctx, user.Email, user.FullName(), code); err != nil {
		s.log.Error().Err(err).Str("email", user.Email).Msg("verification email failed")
	}
	s.hit(ctx, scopeResend, email)
	return nil
}

// ForgotPassword stores a reset code on the account and mails it.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	code, err := verificationCode()
	if err != nil {
		return err
	}
	user.ResetCode = code
	user.ResetExpiresAt = time.Now().UTC().Add(s.cfg.ResetTTL)
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordResetCode(ctx, user.Email, user.FullName(), code); err != nil {
		s.log.Error().Err(err).Str("email", user.Email).Msg("password reset email failed")
	}
	return nil
}

// ResetPassword validates the reset code, replaces the password hash, clears
// the reset fields and retires every outstanding token for the account.
func (s *authService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.ResetCode == "" || user.ResetCode != code {
		return domain.ErrCodeMismatch
	}
	if time.Now().UTC().After(user.ResetExpiresAt) {
		return domain.ErrCodeExpired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	user.ResetCode = ""
	user.ResetExpiresAt = time.Time{}
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	if err := s.revokeUserTokens(ctx, user.ID); err != nil {
		return err
	}
	s.log.Info().Str("email", user.Email).Msg("password reset")
	return nil
}

// issueTokens generates the access/refresh pair, retires the user's prior
// tokens and records the new access token in the ledger.
func (s *authService) issueTokens(ctx context.Context, user *domain.User) (ports.TokenPair, error) {
	access, err := s.codec.GenerateToken(user)
	if err != nil {
		return ports.TokenPair{}, err
	}
	refresh, err := s.codec.GenerateRefreshToken(user)
	if err != nil {
		return ports.TokenPair{}, err
	}

	if err := s.revokeUserTokens(ctx, user.ID); err != nil {
		return ports.TokenPair{}, err
	}
	if err := s.recordToken(ctx, user.ID, access); err != nil {
		return ports.TokenPair{}, err
	}

	return ports.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// revokeUserTokens retires every token of the user the ledger still considers
// usable. No-op when none exist.
func (s *authService) revokeUserTokens(ctx context.Context, userID string) error {
	usable, err := s.tokens.FindUsableByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("find usable tokens: %w", err)
	}
	if len(usable) == 0 {
		return nil
	}
	for _, t := range usable {
		t.Retire()
	}
	return s.tokens.UpdateAll(ctx, usable)
}

func (s *authService) recordToken(ctx context.Context, userID, value string) error {
	_, err := s.tokens.Save(ctx, &domain.Token{
		UserID:    userID,
		Value:     value,
		Type:      domain.TokenTypeBearer,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("record token: %w", err)
	}
	return nil
}

func (s *authService) tooMany(ctx context.Context, scope, key string) bool {
	if s.limiter == nil {
		return false
	}
	blocked, err := s.limiter.TooMany(ctx, scope, key)
	if err != nil {
		s.log.Warn().Err(err).Str("scope", scope).Msg("attempt limiter check failed, proceeding")
		return false
	}
	return blocked
}

func (s *authService) hit(ctx context.Context, scope, key string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Hit(ctx, scope, key); err != nil {
		s.log.Warn().Err(err).Str("scope", scope).Msg("attempt limiter hit failed")
	}
}

func (s *authService) reset(ctx context.Context, scope, key string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Reset(ctx, scope, key); err != nil {
		s.log.Warn().Err(err).Str("scope", scope).Msg("attempt limiter reset failed")
	}
}

// verificationCode returns 6 ASCII digits in [100000, 999999].
func verificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
