package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ErlanBelekov/user-auth/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const userColumns = `id, name, email, password_hash, verified,
		       reset_token_hash, reset_expires_at, created_at, updated_at`

type UserRepository struct {
	db DB
}

func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *UserRepository) Insert(ctx context.Context, u *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (name, email, password_hash, verified)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	created, err := scanUser(r.db.QueryRow(ctx, query, u.Name, u.Email, u.PasswordHash, u.Verified))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *UserRepository) UpdateByID(ctx context.Context, id string, patch domain.UserPatch) error {
	if patch.Empty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}

	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.PasswordHash != nil {
		set("password_hash", *patch.PasswordHash)
	}
	if patch.Verified != nil {
		set("verified", *patch.Verified)
	}
	switch {
	case patch.ClearReset:
		sets = append(sets, "reset_token_hash = ''", "reset_expires_at = NULL")
	default:
		if patch.ResetTokenHash != nil {
			set("reset_token_hash", *patch.ResetTokenHash)
		}
		if patch.ResetExpiresAt != nil {
			set("reset_expires_at", *patch.ResetExpiresAt)
		}
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, id)
	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = $` + strconv.Itoa(len(args))
	if patch.IfResetTokenHash != nil {
		args = append(args, *patch.IfResetTokenHash)
		query += ` AND reset_token_hash = $` + strconv.Itoa(len(args))
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if patch.IfResetTokenHash != nil {
			return domain.ErrTokenInvalid
		}
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ClearExpiredResets(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET    reset_token_hash = '',
		       reset_expires_at = NULL,
		       updated_at       = NOW()
		WHERE  reset_expires_at IS NOT NULL
		  AND  reset_expires_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("clear expired resets: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Verified,
		&u.ResetTokenHash, &u.ResetExpiresAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
