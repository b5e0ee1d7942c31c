// Package token signs and verifies the stateless HS256 tokens carried in
// activation links, password reset links and session cookies. The server
// keeps no token table: everything needed is inside the signed claims.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/user-auth/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ActivationTTL = 30 * time.Minute
	ResetTTL      = 30 * time.Minute
	SessionTTL    = 24 * time.Hour
)

// Audiences keep a token minted for one purpose from being accepted for another.
const (
	audActivation = "activation"
	audReset      = "reset"
	audSession    = "session"
)

type Option func(*Codec)

// WithClock overrides the time source used for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret []byte, opts ...Option) *Codec {
	c := &Codec{secret: secret, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a signing secret is present.
func (c *Codec) Configured() bool {
	return len(c.secret) > 0
}

type activationClaims struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"pwd"`
	jwt.RegisteredClaims
}

// IssueActivation signs the pending account so it can be created later
// without server-side state.
func (c *Codec) IssueActivation(p domain.ActivationPayload, ttl time.Duration) (string, error) {
	now := c.now()
	claims := activationClaims{
		Name:             p.Name,
		Email:            p.Email,
		PasswordHash:     p.PasswordHash,
		RegisteredClaims: c.registered(audActivation, "", now, ttl),
	}
	return c.sign(claims)
}

func (c *Codec) VerifyActivation(raw string) (*domain.ActivationPayload, error) {
	var claims activationClaims
	if err := c.parse(raw, audActivation, &claims); err != nil {
		return nil, err
	}
	if claims.Email == "" {
		return nil, domain.ErrTokenInvalid
	}
	return &domain.ActivationPayload{
		Name:         claims.Name,
		Email:        claims.Email,
		PasswordHash: claims.PasswordHash,
		IssuedAt:     claims.IssuedAt.Time,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}

// IssueReset returns a token whose subject is the user ID, plus its expiry.
func (c *Codec) IssueReset(userID string, ttl time.Duration) (string, time.Time, error) {
	now := c.now()
	claims := c.registered(audReset, userID, now, ttl)
	signed, err := c.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// VerifyReset returns the user ID the reset token was issued for.
func (c *Codec) VerifyReset(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	if err := c.parse(raw, audReset, &claims); err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", domain.ErrTokenInvalid
	}
	return claims.Subject, nil
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (c *Codec) IssueSession(user *domain.User, ttl time.Duration) (*domain.Session, error) {
	now := c.now()
	claims := sessionClaims{
		Email:            user.Email,
		RegisteredClaims: c.registered(audSession, user.ID, now, ttl),
	}
	signed, err := c.sign(claims)
	if err != nil {
		return nil, err
	}
	return &domain.Session{
		UserID:    user.ID,
		Email:     user.Email,
		Token:     signed,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (c *Codec) VerifySession(raw string) (*domain.Session, error) {
	var claims sessionClaims
	if err := c.parse(raw, audSession, &claims); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, domain.ErrTokenInvalid
	}
	return &domain.Session{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Token:     raw,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (c *Codec) registered(aud, sub string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   sub,
		Audience:  jwt.ClaimStrings{aud},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (c *Codec) sign(claims jwt.Claims) (string, error) {
	if !c.Configured() {
		return "", domain.ErrSecretMissing
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// parse collapses every signature, expiry and audience failure into
// ErrTokenInvalid; only a missing secret is reported separately.
func (c *Codec) parse(raw, aud string, claims jwt.Claims) error {
	if !c.Configured() {
		return domain.ErrSecretMissing
	}
	if raw == "" {
		return domain.ErrTokenInvalid
	}

	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(aud),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrTokenInvalid, err)
	}
	return nil
}
