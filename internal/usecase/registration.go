package usecase

import (
	"context"
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

// RegistrationUsecase runs register → token → email, and later
// activate → persist. The activation token is the only state carried
// between the two halves.
type RegistrationUsecase struct {
	users    repository.UserRepository
	email    email.Sender
	tokens   *token.Codec
	hasher   password.Hasher
	linkBase string
	tokenTTL time.Duration
	logger   *slog.Logger
}

func NewRegistrationUsecase(
	users repository.UserRepository,
	emailSender email.Sender,
	tokens *token.Codec,
	hasher password.Hasher,
	linkBase string,
	logger *slog.Logger,
) *RegistrationUsecase {
	return &RegistrationUsecase{
		users:    users,
		email:    emailSender,
		tokens:   tokens,
		hasher:   hasher,
		linkBase: linkBase,
		tokenTTL: token.ActivationTTL,
		logger:   logger.With("component", "registration"),
	}
}

// Register validates the form, rejects known emails and mails an
// activation link. Returns domain.ValidationErrors, domain.ErrEmailTaken,
// domain.ErrSecretMissing, or an error wrapping domain.ErrStoreUnavailable
// or domain.ErrHash. Email delivery failures are logged, never returned.
func (u *RegistrationUsecase) Register(ctx context.Context, form domain.RegistrationForm) error {
	if errs := validation.Registration(form); len(errs) > 0 {
		metrics.RegistrationsTotal.WithLabelValues("rejected").Inc()
		return errs
	}
	ctx = ctxlog.With(ctx, slog.String("email", form.Email))

	taken, err := u.emailTaken(ctx, form.Email)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("store_error").Inc()
		return err
	}
	if taken {
		metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
		return domain.ErrEmailTaken
	}

	if !u.tokens.Configured() {
		metrics.RegistrationsTotal.WithLabelValues("config_error").Inc()
		return domain.ErrSecretMissing
	}

	hash, err := u.hasher.Hash(form.Password)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("hash_error").Inc()
		return fmt.Errorf("%w: %w", domain.ErrHash, err)
	}

	raw, err := u.tokens.IssueActivation(domain.ActivationPayload{
		Name:         form.Name,
		Email:        form.Email,
		PasswordHash: hash,
	}, u.tokenTTL)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("config_error").Inc()
		return fmt.Errorf("issue activation token: %w", err)
	}

	u.sendActivation(ctx, form.Name, form.Email, u.linkBase+"/auth/activate/"+raw)

	metrics.RegistrationsTotal.WithLabelValues("created").Inc()
	u.logger.InfoContext(ctx, "registration accepted, activation pending")
	return nil
}

// Activate verifies the token and creates the account. The email is
// checked again because the token is stateless: another registration may
// have completed, or this token may be replayed.
func (u *RegistrationUsecase) Activate(ctx context.Context, rawToken string) (domain.ActivationResult, error) {
	// Checked per request, not at construction.
	if !u.tokens.Configured() {
		metrics.ActivationsTotal.WithLabelValues("config_error").Inc()
		return "", domain.ErrSecretMissing
	}

	p, err := u.tokens.VerifyActivation(rawToken)
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) {
			metrics.ActivationsTotal.WithLabelValues(string(domain.ActivationTimeout)).Inc()
			u.logger.InfoContext(ctx, "activation token rejected", "error", err)
			return domain.ActivationTimeout, nil
		}
		metrics.ActivationsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("verify activation token: %w", err)
	}
	if p.PasswordHash == "" {
		metrics.ActivationsTotal.WithLabelValues(string(domain.ActivationTimeout)).Inc()
		return domain.ActivationTimeout, nil
	}
	ctx = ctxlog.With(ctx, slog.String("email", p.Email))

	taken, err := u.emailTaken(ctx, p.Email)
	if err != nil {
		metrics.ActivationsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	if taken {
		metrics.ActivationsTotal.WithLabelValues(string(domain.ActivationExists)).Inc()
		u.logger.InfoContext(ctx, "activation for already registered email")
		return domain.ActivationExists, nil
	}

	created, err := u.users.Insert(ctx, &domain.User{
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Verified:     true,
	})
	if err != nil {
		// The store's uniqueness constraint caught a concurrent activation.
		if errors.Is(err, domain.ErrEmailTaken) {
			metrics.ActivationsTotal.WithLabelValues(string(domain.ActivationExists)).Inc()
			return domain.ActivationExists, nil
		}
		metrics.ActivationsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: insert user: %w", domain.ErrStoreUnavailable, err)
	}

	metrics.ActivationsTotal.WithLabelValues(string(domain.ActivationActivated)).Inc()
	u.logger.InfoContext(ctx, "account activated", "user_id", created.ID)
	return domain.ActivationActivated, nil
}

func (u *RegistrationUsecase) emailTaken(ctx context.Context, addr string) (bool, error) {
	_, err := u.users.FindByEmail(ctx, addr)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrUserNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("%w: find user by email: %w", domain.ErrStoreUnavailable, err)
	}
}

func (u *RegistrationUsecase) sendActivation(ctx context.Context, name, to, confirmURL string) {
	body, err := email.ActivationBody(name, confirmURL, u.tokenTTL)
	if err != nil {
		u.logger.ErrorContext(ctx, "render activation email", "error", err)
		return
	}
	if err := u.email.Send(ctx, to, email.ActivationSubject, body); err != nil {
		u.logger.ErrorContext(ctx, "send activation email", "error", err)
	}
}
