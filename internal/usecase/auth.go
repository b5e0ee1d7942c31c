package usecase

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/user-auth/internal/domain"
	"github.com/ErlanBelekov/user-auth/internal/email"
	ctxlog "github.com/ErlanBelekov/user-auth/internal/log"
	"github.com/ErlanBelekov/user-auth/internal/metrics"
	"github.com/ErlanBelekov/user-auth/internal/password"
	"github.com/ErlanBelekov/user-auth/internal/repository"
	"github.com/ErlanBelekov/user-auth/internal/token"
	"github.com/ErlanBelekov/user-auth/internal/validation"
)

type AuthUsecase struct {
	users    repository.UserRepository
	email    email.Sender
	hasher   password.Hasher
	sessions *token.Codec
	resets   *token.Codec
	linkBase string
	now      func() time.Time
	logger   *slog.Logger

	// dummyHash is compared against on unknown emails so both failure
	// paths cost one bcrypt comparison.
	dummyHash string
}

func NewAuthUsecase(
	users repository.UserRepository,
	emailSender email.Sender,
	hasher password.Hasher,
	sessions *token.Codec,
	resets *token.Codec,
	linkBase string,
	logger *slog.Logger,
) (*AuthUsecase, error) {
	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}
	return &AuthUsecase{
		users:     users,
		email:     emailSender,
		hasher:    hasher,
		sessions:  sessions,
		resets:    resets,
		linkBase:  linkBase,
		now:       time.Now,
		logger:    logger.With("component", "auth"),
		dummyHash: dummy,
	}, nil
}

// Login checks the credentials and returns a signed session. Unknown email
// and wrong password both return domain.ErrBadCredentials.
func (u *AuthUsecase) Login(ctx context.Context, emailAddr, plaintext string) (*domain.Session, error) {
	user, err := u.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			u.hasher.Compare(plaintext, u.dummyHash)
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			return nil, domain.ErrBadCredentials
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: find user by email: %w", domain.ErrStoreUnavailable, err)
	}

	if !u.hasher.Compare(plaintext, user.PasswordHash) || !user.Verified {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, domain.ErrBadCredentials
	}

	s, err := u.sessions.IssueSession(user, token.SessionTTL)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("issue session: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	u.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return s, nil
}

// Authenticate verifies a session token issued by Login.
func (u *AuthUsecase) Authenticate(_ context.Context, rawToken string) (*domain.Session, error) {
	s, err := u.sessions.VerifySession(rawToken)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	return s, nil
}

// ForgotPassword emails a reset link when the address belongs to a user.
// Unknown addresses succeed silently so the response does not reveal
// which emails are registered.
func (u *AuthUsecase) ForgotPassword(ctx context.Context, emailAddr string) error {
	if emailAddr == "" {
		return domain.ValidationErrors{{Kind: domain.KindMissingField, Message: "Please enter an email ID"}}
	}
	if !u.resets.Configured() {
		return domain.ErrSecretMissing
	}
	ctx = ctxlog.With(ctx, slog.String("email", emailAddr))

	user, err := u.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.PasswordResetsTotal.WithLabelValues("unknown_email").Inc()
			u.logger.InfoContext(ctx, "password reset for unknown email")
			return nil
		}
		return fmt.Errorf("%w: find user by email: %w", domain.ErrStoreUnavailable, err)
	}

	raw, expiresAt, err := u.resets.IssueReset(user.ID, token.ResetTTL)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}

	tokenHash := hashToken(raw)
	if err := u.users.UpdateByID(ctx, user.ID, domain.UserPatch{
		ResetTokenHash: &tokenHash,
		ResetExpiresAt: &expiresAt,
	}); err != nil {
		return fmt.Errorf("%w: store reset token: %w", domain.ErrStoreUnavailable, err)
	}

	link := u.linkBase + "/auth/forgot/" + raw
	body, err := email.ResetBody(link, token.ResetTTL)
	if err != nil {
		u.logger.ErrorContext(ctx, "render reset email", "error", err)
	} else if err := u.email.Send(ctx, user.Email, email.ResetSubject, body); err != nil {
		u.logger.ErrorContext(ctx, "send reset email", "error", err)
	}

	metrics.PasswordResetsTotal.WithLabelValues("requested").Inc()
	return nil
}

// CheckResetToken reports whether rawToken can still be used to reset a password.
func (u *AuthUsecase) CheckResetToken(ctx context.Context, rawToken string) error {
	_, err := u.resetUser(ctx, rawToken)
	return err
}

// ResetPassword sets a new password using a reset token and invalidates the token.
func (u *AuthUsecase) ResetPassword(ctx context.Context, rawToken, newPassword, newPassword2 string) error {
	if errs := validation.PasswordReset(newPassword, newPassword2); len(errs) > 0 {
		return errs
	}

	user, err := u.resetUser(ctx, rawToken)
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) {
			metrics.PasswordResetsTotal.WithLabelValues("invalid_token").Inc()
		}
		return err
	}

	hash, err := u.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrHash, err)
	}

	// Conditional on the hash resetUser matched, so only one of two
	// concurrent resets with the same token wins.
	if err := u.users.UpdateByID(ctx, user.ID, domain.UserPatch{
		PasswordHash:     &hash,
		ClearReset:       true,
		IfResetTokenHash: &user.ResetTokenHash,
	}); err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) {
			metrics.PasswordResetsTotal.WithLabelValues("invalid_token").Inc()
			return err
		}
		return fmt.Errorf("%w: update password: %w", domain.ErrStoreUnavailable, err)
	}

	metrics.PasswordResetsTotal.WithLabelValues("completed").Inc()
	u.logger.InfoContext(ctx, "password reset", "user_id", user.ID)
	return nil
}

// resetUser resolves the user a reset token belongs to. The token must
// match the hash stored by ForgotPassword, which makes it single use.
func (u *AuthUsecase) resetUser(ctx context.Context, rawToken string) (*domain.User, error) {
	if !u.resets.Configured() {
		return nil, domain.ErrSecretMissing
	}

	userID, err := u.resets.VerifyReset(rawToken)
	if err != nil {
		return nil, err
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("%w: find user by id: %w", domain.ErrStoreUnavailable, err)
	}

	if user.ResetTokenHash == "" || user.ResetExpiresAt == nil || !u.now().Before(*user.ResetExpiresAt) {
		return nil, domain.ErrTokenInvalid
	}
	if subtle.ConstantTimeCompare([]byte(user.ResetTokenHash), []byte(hashToken(rawToken))) != 1 {
		return nil, domain.ErrTokenInvalid
	}
	return user, nil
}

func hashToken(raw string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(raw)))
}
