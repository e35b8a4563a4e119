package domain

import "time"

// TokenType enumerates issued-token kinds. Only bearer tokens exist today.
type TokenType string

const TokenTypeBearer TokenType = "BEARER"

// Token is one row of the issued-token ledger. A presented JWT is accepted
// only when its own signature/expiry check passes AND the matching ledger row
// is neither expired nor revoked — two independent validity checks.
type Token struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Value     string    `json:"token"`
	Type      TokenType `json:"type"`
	Expired   bool      `json:"expired"`
	Revoked   bool      `json:"revoked"`
	Deleted   bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Usable reports whether the ledger still considers the token presentable.
func (t *Token) Usable() bool {
	return !t.Expired && !t.Revoked
}

// Retire marks the token unusable on both axes. Issuing a new token for a
// user retires all of that user's prior tokens.
func (t *Token) Retire() {
	t.Expired = true
	t.Revoked = true
}
