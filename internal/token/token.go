// Package token signs and verifies the access and refresh JWTs. Access and
// refresh tokens use independent HS256 secrets and independent lifetimes, so
// a leaked access token cannot be replayed as a refresh token and vice versa.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avard/authd/internal/errs"
	"github.com/avard/authd/internal/model"
)

// Claims is the payload carried by both token kinds.
type Claims struct {
	ID       string     `json:"id"`
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Config holds the signing secrets and lifetimes for both token kinds.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Codec issues and verifies tokens according to an immutable Config.
type Codec struct {
	cfg Config
}

// NewCodec validates the configuration up front so that issuing cannot fail
// later on a bad secret or TTL.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("empty signing secret")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("non-positive token TTL")
	}
	return &Codec{cfg: cfg}, nil
}

// AccessTTL returns the configured access token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.cfg.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.cfg.RefreshTTL }

// IssueAccess signs a short-lived access token for the user.
func (c *Codec) IssueAccess(u *model.User) (string, error) {
	return c.issue(u, c.cfg.AccessSecret, c.cfg.AccessTTL)
}

// IssueRefresh signs a refresh token for the user.
func (c *Codec) IssueRefresh(u *model.User) (string, error) {
	return c.issue(u, c.cfg.RefreshSecret, c.cfg.RefreshTTL)
}

func (c *Codec) issue(u *model.User, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:       u.ID.String(),
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccess verifies an access token and returns its claims.
func (c *Codec) VerifyAccess(token string) (*Claims, error) {
	return c.verify(token, c.cfg.AccessSecret)
}

// VerifyRefresh checks only the signature and embedded expiry; store
// membership is the service's concern.
func (c *Codec) VerifyRefresh(token string) (*Claims, error) {
	return c.verify(token, c.cfg.RefreshSecret)
}

func (c *Codec) verify(token string, secret []byte) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return nil, mapJWTError(err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errs.ErrTokenMalformed
	}
	return claims, nil
}

// mapJWTError collapses jwt/v5 parse errors into the sentinel taxonomy.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return errs.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return errs.ErrTokenSignature
	default:
		return errs.ErrTokenMalformed
	}
}
