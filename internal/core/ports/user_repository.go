package ports

import (
	"context"
	"time"

	"github.com/torqueworks/workshop-api/internal/core/domain"
)

// UserRepository defines persistence for user accounts. Lookups exclude
// soft-deleted rows and return domain.ErrUserNotFound when nothing matches.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	// SoftDelete flags the user deleted without removing the row.
	SoftDelete(ctx context.Context, id string) error
	// PurgeDeleted physically removes users soft-deleted before cutoff and
	// returns the number of rows removed.
	PurgeDeleted(ctx context.Context, cutoff time.Time) (int64, error)
}
