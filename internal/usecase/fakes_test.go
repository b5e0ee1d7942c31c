package usecase_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ErlanBelekov/user-auth/internal/domain"
	"github.com/ErlanBelekov/user-auth/internal/password"
	"golang.org/x/crypto/bcrypt"
)

// ---- fakes ----

type fakeUserRepo struct {
	findByEmail func(ctx context.Context, email string) (*domain.User, error)
	findByID    func(ctx context.Context, id string) (*domain.User, error)
	insert      func(ctx context.Context, u *domain.User) (*domain.User, error)
	updateByID  func(ctx context.Context, id string, patch domain.UserPatch) error
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findByEmail(ctx, email)
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findByID(ctx, id)
}

func (r *fakeUserRepo) Insert(ctx context.Context, u *domain.User) (*domain.User, error) {
	return r.insert(ctx, u)
}

func (r *fakeUserRepo) UpdateByID(ctx context.Context, id string, patch domain.UserPatch) error {
	return r.updateByID(ctx, id, patch)
}

func (r *fakeUserRepo) ClearExpiredResets(context.Context, time.Time) (int, error) {
	return 0, errors.New("not implemented")
}

type sentEmail struct {
	to, subject, body string
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (s *fakeEmailSender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentEmail{to, subject, body})
	return s.err
}

func (s *fakeEmailSender) last() sentEmail {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return sentEmail{}
	}
	return s.sent[len(s.sent)-1]
}

type failingHasher struct{ password.Hasher }

func (failingHasher) Hash(string) (string, error) { return "", errors.New("entropy exhausted") }

// ---- helpers ----

const (
	testActivationKey = "activation-secret-at-least-32-chars!"
	testResetKey      = "reset-secret-that-is-at-least-32-ch!"
	testSessionKey    = "session-secret-that-is-at-least-32!!"
	testLinkBase      = "http://localhost:8080"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

func newHasher() password.Hasher {
	return password.NewBcryptHasher(bcrypt.MinCost)
}

func validForm() domain.RegistrationForm {
	return domain.RegistrationForm{
		Name:      "test",
		Email:     "test@test.com",
		Password:  "1234567890",
		Password2: "1234567890",
	}
}

// tokenFromLink extracts the token that follows prefix in an email body.
func tokenFromLink(body, prefix string) string {
	idx := strings.Index(body, prefix)
	if idx == -1 {
		return ""
	}
	rest := body[idx+len(prefix):]
	if end := strings.IndexAny(rest, `"<`); end != -1 {
		rest = rest[:end]
	}
	return rest
}
