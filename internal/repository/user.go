package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/user-auth/internal/domain"
)

// UserRepository is the persistence boundary for user records.
// Lookups return domain.ErrUserNotFound when nothing matches.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// Insert returns domain.ErrEmailTaken if the store's own uniqueness
	// constraint rejects the email.
	Insert(ctx context.Context, user *domain.User) (*domain.User, error)
	UpdateByID(ctx context.Context, id string, patch domain.UserPatch) error

	// ClearExpiredResets wipes reset tokens that expired before cutoff.
	ClearExpiredResets(ctx context.Context, cutoff time.Time) (int, error)
}
