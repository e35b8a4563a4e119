package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/torqueworks/workshop-api/internal/core/domain"
	"github.com/torqueworks/workshop-api/internal/core/ports"
)

// ── In-memory stubs ───────────────────────────────────────────────────────────

type stubUserRepo struct {
	users  map[string]*domain.User // keyed by email
	nextID int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if _, exists := r.users[user.Email]; exists {
		return nil, domain.ErrUserExists
	}
	r.nextID++
	copy := cloneUser(user)
	copy.ID = fmt.Sprintf("user_%d", r.nextID)
	r.users[copy.Email] = cloneUser(copy)
	return cloneUser(copy), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range r.users {
		if u.ID == id && !u.Deleted {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := r.users[email]
	if !ok || u.Deleted {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.Email]; !ok {
		return domain.ErrUserNotFound
	}
	r.users[user.Email] = cloneUser(user)
	return nil
}

func (r *stubUserRepo) SoftDelete(_ context.Context, id string) error {
	for _, u := range r.users {
		if u.ID == id && !u.Deleted {
			u.Deleted = true
			u.DeletedAt = time.Now().UTC()
			return nil
		}
	}
	return domain.ErrUserNotFound
}

func (r *stubUserRepo) PurgeDeleted(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for email, u := range r.users {
		if u.Deleted && u.DeletedAt.Before(cutoff) {
			delete(r.users, email)
			n++
		}
	}
	return n, nil
}

type stubTokenRepo struct {
	tokens []*domain.Token
	nextID int
}

func (r *stubTokenRepo) Save(_ context.Context, token *domain.Token) (*domain.Token, error) {
	r.nextID++
	saved := *token
	saved.ID = fmt.Sprintf("token_%d", r.nextID)
	stored := saved
	r.tokens = append(r.tokens, &stored)
	return &saved, nil
}

func (r *stubTokenRepo) FindByValue(_ context.Context, value string) (*domain.Token, error) {
	for _, t := range r.tokens {
		if t.Value == value && !t.Deleted {
			clone := *t
			return &clone, nil
		}
	}
	return nil, domain.ErrTokenNotFound
}

func (r *stubTokenRepo) FindUsableByUser(_ context.Context, userID string) ([]*domain.Token, error) {
	var out []*domain.Token
	for _, t := range r.tokens {
		if t.UserID == userID && !t.Deleted && (!t.Expired || !t.Revoked) {
			clone := *t
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *stubTokenRepo) UpdateAll(_ context.Context, tokens []*domain.Token) error {
	for _, upd := range tokens {
		for _, t := range r.tokens {
			if t.ID == upd.ID {
				t.Expired = upd.Expired
				t.Revoked = upd.Revoked
			}
		}
	}
	return nil
}

func (r *stubTokenRepo) PurgeRetired(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []*domain.Token
	var n int64
	for _, t := range r.tokens {
		if t.Expired && t.Revoked && t.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, t)
	}
	r.tokens = kept
	return n, nil
}

type stubMailer struct {
	verifications int
	resets        int
	lastCode      string
	fail          bool
}

func (m *stubMailer) SendVerificationCode(_ context.Context, _, _, code string) error {
	if m.fail {
		return errors.New("smtp unreachable")
	}
	m.verifications++
	m.lastCode = code
	return nil
}

func (m *stubMailer) SendPasswordResetCode(_ context.Context, _, _, code string) error {
	if m.fail {
		return errors.New("smtp unreachable")
	}
	m.resets++
	m.lastCode = code
	return nil
}

type stubLimiter struct {
	counts map[string]int
	limit  int
}

func newStubLimiter(limit int) *stubLimiter {
	return &stubLimiter{counts: make(map[string]int), limit: limit}
}

func (l *stubLimiter) TooMany(_ context.Context, scope, key string) (bool, error) {
	return l.counts[scope+":"+key] >= l.limit, nil
}

func (l *stubLimiter) Hit(_ context.Context, scope, key string) error {
	l.counts[scope+":"+key]++
	return nil
}

func (l *stubLimiter) Reset(_ context.Context, scope, key string) error {
	delete(l.counts, scope+":"+key)
	return nil
}

// ── Fixture ───────────────────────────────────────────────────────────────────

type authFixture struct {
	users   *stubUserRepo
	tokens  *stubTokenRepo
	mailer  *stubMailer
	limiter *stubLimiter
	codec   ports.TokenCodec
	svc     ports.AuthService
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:   newStubUserRepo(),
		tokens:  &stubTokenRepo{},
		mailer:  &stubMailer{},
		limiter: newStubLimiter(5),
		codec:   NewTokenCodec("secret", time.Hour, 24*time.Hour),
	}
	f.svc = NewAuthService(f.users, f.tokens, f.codec, f.mailer, f.limiter, AuthConfig{}, zerolog.Nop())
	return f
}

func (f *authFixture) register(t *testing.T, email string) *domain.User {
	t.Helper()
	user, err := f.svc.Register(context.Background(), ports.RegisterInput{
		FirstName: "Alice",
		LastName:  "Smith",
		Email:     email,
		Password:  "s3cretpass",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return user
}

func (f *authFixture) registerVerified(t *testing.T, email string) *domain.User {
	t.Helper()
	f.register(t, email)
	code := f.users.users[email].VerificationCode
	if _, err := f.svc.VerifyUser(context.Background(), email, code); err != nil {
		t.Fatalf("VerifyUser: %v", err)
	}
	return f.users.users[email]
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestAuthService_Register(t *testing.T) {
	f := newAuthFixture()
	user := f.register(t, "alice@example.com")

	if user.Enabled {
		t.Fatalf("new account must start disabled")
	}
	if user.PasswordHash == "s3cretpass" {
		t.Fatalf("password stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cretpass")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("expected default role USER, got %s", user.Role)
	}

	if !regexp.MustCompile(`^\d{6}$`).MatchString(user.VerificationCode) {
		t.Fatalf("verification code must be 6 digits, got %q", user.VerificationCode)
	}
	if user.VerificationCode < "100000" {
		t.Fatalf("verification code below 100000: %q", user.VerificationCode)
	}

	ttl := time.Until(user.VerificationExpiresAt)
	if ttl < 2*time.Hour+55*time.Minute || ttl > 3*time.Hour+5*time.Minute {
		t.Fatalf("verification expiry not ~3h out: %v", ttl)
	}

	if f.mailer.verifications != 1 {
		t.Fatalf("expected one verification email, got %d", f.mailer.verifications)
	}
	if f.mailer.lastCode != user.VerificationCode {
		t.Fatalf("emailed code %q does not match stored code %q", f.mailer.lastCode, user.VerificationCode)
	}

	// No tokens until verification completes.
	if len(f.tokens.tokens) != 0 {
		t.Fatalf("register must not issue tokens, ledger has %d", len(f.tokens.tokens))
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "alice@example.com")

	_, err := f.svc.Register(context.Background(), ports.RegisterInput{
		FirstName: "Alice", LastName: "Clone",
		Email: "alice@example.com", Password: "otherpass1",
	})
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthService_Register_MailFailureSwallowed(t *testing.T) {
	f := newAuthFixture()
	f.mailer.fail = true

	user := f.register(t, "alice@example.com")
	if user.VerificationCode == "" {
		t.Fatalf("verification code should still be set when mail fails")
	}
}

func TestAuthService_VerifyUser(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "alice@example.com")
	code := f.users.users["alice@example.com"].VerificationCode

	pair, err := f.svc.VerifyUser(context.Background(), "alice@example.com", code)
	if err != nil {
		t.Fatalf("VerifyUser: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected non-empty token pair, got %+v", pair)
	}

	stored := f.users.users["alice@example.com"]
	if !stored.Enabled {
		t.Fatalf("account not enabled after verification")
	}
	if stored.VerificationCode != "" || !stored.VerificationExpiresAt.IsZero() {
		t.Fatalf("verification fields not cleared: %+v", stored)
	}

	// Second verification attempt conflicts.
	if _, err := f.svc.VerifyUser(context.Background(), "alice@example.com", code); !errors.Is(err, domain.ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestAuthService_VerifyUser_ExpiredCode(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "alice@example.com")

	stored := f.users.users["alice@example.com"]
	code := stored.VerificationCode
	stored.VerificationExpiresAt = time.Now().UTC().Add(-time.Minute)

	if _, err := f.svc.VerifyUser(context.Background(), "alice@example.com", code); !errors.Is(err, domain.ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}
}

func TestAuthService_VerifyUser_WrongCode(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "alice@example.com")

	if _, err := f.svc.VerifyUser(context.Background(), "alice@example.com", "000000"); !errors.Is(err, domain.ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch, got %v", err)
	}
}

func TestAuthService_VerifyUser_Unknown(t *testing.T) {
	f := newAuthFixture()
	if _, err := f.svc.VerifyUser(context.Background(), "ghost@example.com", "123456"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	f := newAuthFixture()
	f.registerVerified(t, "alice@example.com")

	pair, err := f.svc.Authenticate(context.Background(), "alice@example.com", "s3cretpass")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected non-empty token pair")
	}

	record, err := f.tokens.FindByValue(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("ledger record missing for new token: %v", err)
	}
	if !record.Usable() {
		t.Fatalf("fresh ledger record not usable: %+v", record)
	}
	if record.Type != domain.TokenTypeBearer {
		t.Fatalf("expected BEARER token type, got %s", record.Type)
	}
}

func TestAuthService_Authenticate_RevokesPriorTokens(t *testing.T) {
	f := newAuthFixture()
	f.registerVerified(t, "alice@example.com")

	first, err := f.svc.Authenticate(context.Background(), "alice@example.com", "s3cretpass")
	if err != nil {
		t.Fatalf("first Authenticate: %v", err)
	}
	second, err := f.svc.Authenticate(context.Background(), "alice@example.com", "s3cretpass")
	if err != nil {
		t.Fatalf("second Authenticate: %v", err)
	}

	old, err := f.tokens.FindByValue(context.Background(), first.AccessToken)
	if err != nil {
		t.Fatalf("first token record missing: %v", err)
	}
	if !old.Expired || !old.Revoked {
		t.Fatalf("first token not retired after second login: %+v", old)
	}

	current, err := f.tokens.FindByValue(context.Background(), second.AccessToken)
	if err != nil {
		t.Fatalf("second token record missing: %v", err)
	}
	if !current.Usable() {
		t.Fatalf("latest token should remain usable: %+v", current)
	}
}

func TestAuthService_Authenticate_BadPassword(t *testing.T) {
	f := newAuthFixture()
	f.registerVerified(t, "alice@example.com")

	if _, err := f.svc.Authenticate(context.Background(), "alice@example.com", "wrongpass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Authenticate_Disabled(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "alice@example.com")

	if _, err := f.svc.Authenticate(context.Background(), "alice@example.com", "s3cretpass"); !errors.Is(err, domain.ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestAuthService_Authenticate_Unknown(t *testing.T) {
	f := newAuthFixture()
	if _, err := f.svc.Authenticate(context.Background(), "ghost@example.com", "whatever1"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_Authenticate_Throttled(t *testing.T) {
	f := newAuthFixture()
	f.registerVerified(t, "alice@example.com")

	for i := 0; i < 5; i++ {
		if _, err := f.svc.Authenticate(context.Background(), "alice@example.com", "wrongpass"); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	// Even the right password is blocked once the limiter trips.
	if _, err := f.svc.Authenticate(context.Background(), "alice@example.com", "s3cretpass"); !errors.Is(err, domain.ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestAuthService_Refresh(t *testing.T) {
	f := newAuthFixture()
	f.registerVerified(t, "alice@example.com")

	pair, err := f.svc.Authenticate(context.Background(), "alice@example.com", "s3cretpass")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	refreshed, err := f.svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if refreshed.RefreshToken != pair.RefreshToken {
		t.Fatalf("refresh must echo the same refresh token back")
	}
	if refreshed.AccessToken == "" {
		t.Fatalf("expected a new access token")
	}

	// The pre-refresh access token is retired.
	old, err := f.tokens.FindByValue(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("old token record missing: %v", err)
	}
	if old.Usable() {
		t.Fatalf("old access token still usable after refresh")
	}
}

func TestAuthService_Refresh_Garbage(t *testing.T) {
	f := newAuthFixture()
	if _, err := f.svc.Refresh(context.Background(), "garbage"); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestAuthService_ResendVerificationCode(t *testing.T) {
	f := newAuthFixture()
	f.register(t, "alice@example.com")
	firstCode := f.users.users["alice@example.com"].VerificationCode

	if err := f.svc.ResendVerificationCode(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("ResendVerificationCode: %v", err)
	}

	stored := f.users.users["alice@example.com"]
	if stored.VerificationCode == firstCode {
		t.Fatalf("resend did not rotate the code")
	}
	if f.mailer.verifications != 2 {
		t.Fatalf("expected two verification emails, got %d", f.mailer.verifications)
	}
}

func TestAuthService_ResendVerificationCode_AlreadyEnabled(t *testing.T) {
	f := newAuthFixture()
	f.registerVerified(t, "alice@example.com")
	before := f.users.users["alice@example.com"].VerificationCode

	err := f.svc.ResendVerificationCode(context.Background(), "alice@example.com")
	if !errors.Is(err, domain.ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
	if f.users.users["alice@example.com"].VerificationCode != before {
		t.Fatalf("verification code mutated on rejected resend")
	}
}

func TestAuthService_PasswordReset(t *testing.T) {
	f := newAuthFixture()
	f.registerVerified(t, "alice@example.com")

	// Establish a session that the reset must kill.
	pair, err := f.svc.Authenticate(context.Background(), "alice@example.com", "s3cretpass")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	if err := f.svc.ForgotPassword(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	if f.mailer.resets != 1 {
		t.Fatalf("expected one reset email, got %d", f.mailer.resets)
	}

	code := f.users.users["alice@example.com"].ResetCode
	if err := f.svc.ResetPassword(context.Background(), "alice@example.com", code, "newpassword1"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	stored := f.users.users["alice@example.com"]
	if stored.ResetCode != "" || !stored.ResetExpiresAt.IsZero() {
		t.Fatalf("reset fields not cleared: %+v", stored)
	}

	if _, err := f.svc.Authenticate(context.Background(), "alice@example.com", "s3cretpass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("old password still accepted after reset")
	}
	if _, err := f.svc.Authenticate(context.Background(), "alice@example.com", "newpassword1"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}

	record, err := f.tokens.FindByValue(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("pre-reset token record missing: %v", err)
	}
	if record.Usable() {
		t.Fatalf("pre-reset token still usable")
	}
}

func TestAuthService_ResetPassword_WrongCode(t *testing.T) {
	f := newAuthFixture()
	f.registerVerified(t, "alice@example.com")

	if err := f.svc.ForgotPassword(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	if err := f.svc.ResetPassword(context.Background(), "alice@example.com", "000000", "newpassword1"); !errors.Is(err, domain.ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch, got %v", err)
	}
}

func TestAuthService_ResetPassword_ExpiredCode(t *testing.T) {
	f := newAuthFixture()
	f.registerVerified(t, "alice@example.com")

	if err := f.svc.ForgotPassword(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	stored := f.users.users["alice@example.com"]
	code := stored.ResetCode
	stored.ResetExpiresAt = time.Now().UTC().Add(-time.Minute)

	if err := f.svc.ResetPassword(context.Background(), "alice@example.com", code, "newpassword1"); !errors.Is(err, domain.ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}
}

func TestVerificationCodeRange(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := verificationCode()
		if err != nil {
			t.Fatalf("verificationCode: %v", err)
		}
		if len(code) != 6 || code < "100000" || code > "999999" {
			t.Fatalf("code out of range: %q", code)
		}
	}
}
