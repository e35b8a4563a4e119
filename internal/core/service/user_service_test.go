package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/torqueworks/workshop-api/internal/core/domain"
)

func TestUserService_Delete(t *testing.T) {
	f := newAuthFixture()
	user := f.registerVerified(t, "alice@example.com")

	pair, err := f.svc.Authenticate(context.Background(), "alice@example.com", "s3cretpass")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	users := NewUserService(f.users, f.tokens, zerolog.Nop())
	if err := users.Delete(context.Background(), user.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// Soft-deleted users disappear from lookups but the row survives.
	if _, err := users.Get(context.Background(), user.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after soft delete, got %v", err)
	}
	if _, ok := f.users.users["alice@example.com"]; !ok {
		t.Fatalf("soft delete must not remove the row")
	}

	record, err := f.tokens.FindByValue(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("token record missing: %v", err)
	}
	if record.Usable() {
		t.Fatalf("deleted user's token still usable")
	}
}

func TestUserService_Delete_Unknown(t *testing.T) {
	f := newAuthFixture()
	users := NewUserService(f.users, f.tokens, zerolog.Nop())
	if err := users.Delete(context.Background(), "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestPurgeCutoffSemantics(t *testing.T) {
	f := newAuthFixture()
	user := f.registerVerified(t, "alice@example.com")

	users := NewUserService(f.users, f.tokens, zerolog.Nop())
	if err := users.Delete(context.Background(), user.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// Deleted just now: a 30-day retention cutoff must keep the row.
	n, err := f.users.PurgeDeleted(context.Background(), time.Now().UTC().Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeDeleted: %v", err)
	}
	if n != 0 {
		t.Fatalf("row purged before retention elapsed")
	}

	// Past the retention window the row goes for good.
	n, err = f.users.PurgeDeleted(context.Background(), time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatalf("PurgeDeleted: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one purged row, got %d", n)
	}
	if _, ok := f.users.users["alice@example.com"]; ok {
		t.Fatalf("row still present after purge")
	}
}
