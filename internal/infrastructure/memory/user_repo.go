// Package memory is an in-process UserRepository for local development
// without Postgres. Data is lost on restart.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ErlanBelekov/user-auth/internal/domain"
	"github.com/google/uuid"
)

type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
	now     func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(u), nil
}

// Insert enforces email uniqueness the same way the postgres unique index does.
func (r *UserRepository) Insert(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(u.Email)
	if _, taken := r.byEmail[key]; taken {
		return nil, domain.ErrEmailTaken
	}

	now := r.now()
	stored := clone(u)
	stored.ID = uuid.NewString()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.byID[stored.ID] = stored
	r.byEmail[key] = stored.ID
	return clone(stored), nil
}

func (r *UserRepository) UpdateByID(_ context.Context, id string, patch domain.UserPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if patch.IfResetTokenHash != nil && (!ok || u.ResetTokenHash != *patch.IfResetTokenHash) {
		return domain.ErrTokenInvalid
	}
	if !ok {
		return domain.ErrUserNotFound
	}
	if patch.Empty() {
		return nil
	}

	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	if patch.Verified != nil {
		u.Verified = *patch.Verified
	}
	if patch.ClearReset {
		u.ResetTokenHash = ""
		u.ResetExpiresAt = nil
	} else {
		if patch.ResetTokenHash != nil {
			u.ResetTokenHash = *patch.ResetTokenHash
		}
		if patch.ResetExpiresAt != nil {
			t := *patch.ResetExpiresAt
			u.ResetExpiresAt = &t
		}
	}
	u.UpdatedAt = r.now()
	return nil
}

func (r *UserRepository) ClearExpiredResets(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, u := range r.byID {
		if u.ResetExpiresAt != nil && u.ResetExpiresAt.Before(cutoff) {
			u.ResetTokenHash = ""
			u.ResetExpiresAt = nil
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *UserRepository) Ping(context.Context) error { return nil }

func clone(u *domain.User) *domain.User {
	c := *u
	if u.ResetExpiresAt != nil {
		t := *u.ResetExpiresAt
		c.ResetExpiresAt = &t
	}
	return &c
}
