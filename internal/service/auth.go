// Package service contains the application service orchestrating credential
// verification, token issuance, and refresh-token rotation.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/avard/authd/internal/crypto"
	"github.com/avard/authd/internal/errs"
	"github.com/avard/authd/internal/model"
	"github.com/avard/authd/internal/repository"
	"github.com/avard/authd/internal/token"
)

// AuthService defines the authentication operations exposed over the transport.
type AuthService interface {
	// Register creates a new user with secure password hashing.
	Register(ctx context.Context, in RegisterInput) error
	// Login verifies credentials and issues an access/refresh pair,
	// replacing any refresh token stored for the user.
	Login(ctx context.Context, identifier, password string) (model.TokenPair, error)
	// Refresh validates a refresh token and issues a new access token.
	Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
}

// RegisterInput carries the registration fields. LastName is optional.
type RegisterInput struct {
	Username string
	Password string
	Name     string
	LastName string
	Email    string
}

var (
	usernameRe = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)
	nameRe     = regexp.MustCompile(`^[a-zA-Z ]{3,50}$`)
)

func (in RegisterInput) validate() error {
	if in.Username == "" || in.Password == "" || in.Name == "" || in.Email == "" {
		return fmt.Errorf("%w: all fields are required", errs.ErrValidation)
	}
	if !usernameRe.MatchString(strings.ToLower(in.Username)) {
		return fmt.Errorf("%w: username must be 3-30 letters, digits or underscores", errs.ErrValidation)
	}
	if len(in.Password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", errs.ErrValidation)
	}
	if !nameRe.MatchString(in.Name) {
		return fmt.Errorf("%w: name can only contain alphabets and spaces", errs.ErrValidation)
	}
	if in.LastName != "" && !nameRe.MatchString(in.LastName) {
		return fmt.Errorf("%w: last name can only contain alphabets and spaces", errs.ErrValidation)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return fmt.Errorf("%w: invalid email address", errs.ErrValidation)
	}
	return nil
}

// Auth implements AuthService.
type Auth struct {
	users  repository.UserRepository
	tokens repository.RefreshTokenRepository
	codec  *token.Codec
	cost   int
	log    *zap.Logger
}

// NewAuth constructs the service with required dependencies.
func NewAuth(users repository.UserRepository, tokens repository.RefreshTokenRepository, codec *token.Codec, bcryptCost int, log *zap.Logger) *Auth {
	if bcryptCost <= 0 {
		bcryptCost = pkgcrypto.DefaultCost
	}
	return &Auth{users: users, tokens: tokens, codec: codec, cost: bcryptCost, log: log}
}

// Register validates the input, hashes the password, and inserts the user.
func (s *Auth) Register(ctx context.Context, in RegisterInput) error {
	if err := in.validate(); err != nil {
		return err
	}
	hash, err := pkgcrypto.HashPassword(in.Password, s.cost)
	if err != nil {
		s.log.Error("hash password", zap.Error(err))
		return err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	u := &model.User{
		ID:       id,
		Username: strings.ToLower(in.Username),
		Email:    strings.ToLower(in.Email),
		PwdHash:  hash,
		Name:     in.Name,
		LastName: in.LastName,
		Role:     model.RoleDefault,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if !errors.Is(err, errs.ErrAlreadyExists) {
			s.log.Error("create user", zap.String("username", u.Username), zap.Error(err))
		}
		return err
	}
	return nil
}

// Login authenticates by username or email. Unknown identifier and wrong
// password collapse into the same error so responses cannot be used to
// enumerate accounts.
func (s *Auth) Login(ctx context.Context, identifier, password string) (model.TokenPair, error) {
	if identifier == "" || password == "" {
		return model.TokenPair{}, fmt.Errorf("%w: both identifier and password are required", errs.ErrValidation)
	}

	u, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.TokenPair{}, errs.ErrInvalidCredentials
		}
		s.log.Error("lookup user", zap.Error(err))
		return model.TokenPair{}, err
	}
	if !pkgcrypto.VerifyPassword(password, u.PwdHash) {
		return model.TokenPair{}, errs.ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, u)
	if err != nil {
		s.log.Error("issue token pair", zap.String("user_id", u.ID.String()), zap.Error(err))
		return model.TokenPair{}, errs.ErrTokenIssue
	}
	return pair, nil
}

// issuePair signs both tokens and durably stores the refresh token before
// anything is returned: an access token without a renewable refresh token
// would strand the caller at expiry.
func (s *Auth) issuePair(ctx context.Context, u *model.User) (model.TokenPair, error) {
	access, err := s.codec.IssueAccess(u)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.codec.IssueRefresh(u)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	expiresAt := time.Now().Add(s.codec.RefreshTTL())
	if err := s.tokens.Replace(ctx, u.ID, refresh, expiresAt); err != nil {
		return model.TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	return model.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.codec.AccessTTL() / time.Second),
	}, nil
}

// Refresh rotates a refresh token into a fresh access token. The stored
// record is authoritative: a token whose signature still verifies is
// rejected once superseded or expired store-side.
func (s *Auth) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	if refreshToken == "" {
		return model.TokenPair{}, fmt.Errorf("%w: refresh token is required", errs.ErrValidation)
	}

	claims, err := s.verifyRefresh(ctx, refreshToken)
	if err != nil {
		return model.TokenPair{}, err
	}

	id, err := uuid.FromString(claims.ID)
	if err != nil {
		return model.TokenPair{}, errs.ErrTokenMalformed
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.TokenPair{}, errs.ErrNotFound
		}
		s.log.Error("lookup user", zap.String("user_id", claims.ID), zap.Error(err))
		return model.TokenPair{}, err
	}

	access, err := s.codec.IssueAccess(u)
	if err != nil {
		s.log.Error("issue access token", zap.String("user_id", u.ID.String()), zap.Error(err))
		return model.TokenPair{}, errs.ErrTokenIssue
	}
	return model.TokenPair{
		AccessToken: access,
		ExpiresIn:   int64(s.codec.AccessTTL() / time.Second),
	}, nil
}

// verifyRefresh runs the three checks in order: signature and embedded
// expiry, store membership, store-side expiry.
func (s *Auth) verifyRefresh(ctx context.Context, refreshToken string) (*token.Claims, error) {
	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	rec, err := s.tokens.FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrTokenNotRecognized
		}
		s.log.Error("lookup refresh token", zap.Error(err))
		return nil, err
	}
	if time.Now().After(rec.ExpiresAt) {
		return nil, errs.ErrTokenExpired
	}
	return claims, nil
}
