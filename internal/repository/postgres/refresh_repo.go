package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/avard/authd/internal/errs"
	"github.com/avard/authd/internal/model"
)

// RefreshTokenRepo implements RefreshTokenRepository using PostgreSQL.
// user_id is the table's primary key, so the single-active-token invariant
// is enforced by the schema itself.
type RefreshTokenRepo struct{ db *DB }

// NewRefreshTokenRepo constructs a refresh-token repository.
func NewRefreshTokenRepo(db *DB) *RefreshTokenRepo { return &RefreshTokenRepo{db: db} }

// Replace upserts the user's refresh token in a single statement. Concurrent
// logins for the same user serialize on the row; the end state is always
// exactly one record, never zero or two.
func (r *RefreshTokenRepo) Replace(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	const q = `
INSERT INTO refresh_tokens (user_id, token, expires_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at`
	_, err := r.db.Pool.Exec(ctx, q, userID, token, expiresAt)
	return err
}

// FindByToken selects a record by exact token value.
func (r *RefreshTokenRepo) FindByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	const q = `SELECT user_id, token, expires_at FROM refresh_tokens WHERE token=$1`
	var rt model.RefreshToken
	err := r.db.Pool.QueryRow(ctx, q, token).Scan(&rt.UserID, &rt.Token, &rt.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &rt, nil
}

// DeleteByUser removes the user's record. Deleting a missing record is a no-op.
func (r *RefreshTokenRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	const q = `DELETE FROM refresh_tokens WHERE user_id=$1`
	_, err := r.db.Pool.Exec(ctx, q, userID)
	return err
}
