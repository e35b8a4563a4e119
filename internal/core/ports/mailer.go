package ports

import "context"

// Mailer delivers transactional mail. Callers in the auth flow treat send
// failures as non-fatal: they log and carry on.
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, name, code string) error
	SendPasswordResetCode(ctx context.Context, to, name, code string) error
}
