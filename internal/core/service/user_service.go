package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/torqueworks/workshop-api/internal/core/domain"
	"github.com/torqueworks/workshop-api/internal/core/ports"
)

type userService struct {
	users  ports.UserRepository
	tokens ports.TokenRepository
	log    zerolog.Logger
}

// NewUserService returns a UserService implementation.
func NewUserService(users ports.UserRepository, tokens ports.TokenRepository, log zerolog.Logger) ports.UserService {
	return &userService{users: users, tokens: tokens, log: log}
}

func (s *userService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.users.FindByEmail(ctx, email)
}

// Delete soft-deletes the account and retires its outstanding tokens so a
// deleted user cannot keep an authenticated session alive. The row itself is
// removed later by the purge sweeper.
func (s *userService) Delete(ctx context.Context, id string) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.SoftDelete(ctx, user.ID); err != nil {
		return err
	}

	usable, err := s.tokens.FindUsableByUser(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(usable) > 0 {
		for _, t := range usable {
			t.Retire()
		}
		if err := s.tokens.UpdateAll(ctx, usable); err != nil {
			return err
		}
	}

	s.log.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("user soft-deleted")
	return nil
}
