package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/avard/authd/internal/model"
)

// RefreshTokenRepository persists at most one active refresh token per user.
type RefreshTokenRepository interface {
	// Replace atomically makes token the only refresh token for the user.
	// After it returns the store holds exactly one record for userID,
	// regardless of concurrent callers.
	Replace(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	// FindByToken looks up a record by exact token value.
	FindByToken(ctx context.Context, token string) (*model.RefreshToken, error)
	// DeleteByUser removes the user's record; absent records are not an error.
	// Used by logout/cleanup paths.
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}
