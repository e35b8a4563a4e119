package ports

import (
	"context"
	"time"

	"github.com/torqueworks/workshop-api/internal/core/domain"
)

// TokenRepository is the issued-token ledger. A token's ledger row tracks
// expired/revoked flags independently from the JWT's own expiry claim.
type TokenRepository interface {
	Save(ctx context.Context, token *domain.Token) (*domain.Token, error)
	// FindByValue returns domain.ErrTokenNotFound when no row matches.
	FindByValue(ctx context.Context, value string) (*domain.Token, error)
	// FindUsableByUser returns the user's tokens that are not yet fully
	// retired (expired=false OR revoked=false).
	FindUsableByUser(ctx context.Context, userID string) ([]*domain.Token, error)
	// UpdateAll persists flag changes for the given tokens in bulk.
	UpdateAll(ctx context.Context, tokens []*domain.Token) error
	// PurgeRetired physically removes fully retired tokens created before
	// cutoff and returns the number of rows removed.
	PurgeRetired(ctx context.Context, cutoff time.Time) (int64, error)
}
