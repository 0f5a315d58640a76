package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/avard/authd/internal/crypto"
	"github.com/avard/authd/internal/errs"
	"github.com/avard/authd/internal/model"
	"github.com/avard/authd/internal/repository"
	"github.com/avard/authd/internal/token"
)

type fakeUsers struct {
	byName map[string]*model.User

	createErr error
	getErr    error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.byName == nil {
		f.byName = map[string]*model.User{}
	}
	for _, e := range f.byName {
		if e.Username == u.Username || e.Email == u.Email {
			return errs.ErrAlreadyExists
		}
	}
	cpy := *u
	f.byName[u.Username] = &cpy
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byName {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) GetByIdentifier(_ context.Context, identifier string) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byName {
		if u.Username == identifier || u.Email == identifier {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

// fakeTokens keeps refresh records in a map keyed by user, mirroring the
// schema's one-row-per-user shape.
type fakeTokens struct {
	byUser map[uuid.UUID]model.RefreshToken

	replaceErr error
	findErr    error
}

var _ repository.RefreshTokenRepository = (*fakeTokens)(nil)

func (f *fakeTokens) Replace(_ context.Context, userID uuid.UUID, tok string, expiresAt time.Time) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	if f.byUser == nil {
		f.byUser = map[uuid.UUID]model.RefreshToken{}
	}
	f.byUser[userID] = model.RefreshToken{UserID: userID, Token: tok, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeTokens) FindByToken(_ context.Context, tok string) (*model.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, rt := range f.byUser {
		if rt.Token == tok {
			c := rt
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeTokens) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	delete(f.byUser, userID)
	return nil
}

func testAuth(t *testing.T, users *fakeUsers, tokens *fakeTokens) *Auth {
	t.Helper()
	codec, err := token.NewCodec(token.Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	// low bcrypt cost keeps the tests fast
	return NewAuth(users, tokens, codec, 4, zap.NewNop())
}

func registerAlice(t *testing.T, s *Auth) {
	t.Helper()
	err := s.Register(context.Background(), RegisterInput{
		Username: "alice",
		Password: "secret1",
		Name:     "Alice",
		Email:    "a@x.com",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
}

func TestAuth_Register_Validation(t *testing.T) {
	t.Parallel()
	s := testAuth(t, &fakeUsers{}, &fakeTokens{})
	ctx := context.Background()

	bad := []RegisterInput{
		{},
		{Username: "alice", Password: "secret1", Name: "Alice"},                                        // missing email
		{Username: "al", Password: "secret1", Name: "Alice", Email: "a@x.com"},                         // short username
		{Username: "alice", Password: "12345", Name: "Alice", Email: "a@x.com"},                        // short password
		{Username: "alice", Password: "secret1", Name: "Alice1", Email: "a@x.com"},                     // digit in name
		{Username: "alice", Password: "secret1", Name: "Alice", Email: "not-an-email"},                 // bad email
		{Username: "alice", Password: "secret1", Name: "Alice", LastName: "X", Email: "a@x.com"},       // short last name
		{Username: "alice", Password: "secret1", Name: "Alice", LastName: "Sm1th", Email: "a@x.com"},   // digit in last name
	}
	for i, in := range bad {
		if err := s.Register(ctx, in); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("case %d: want ErrValidation, got %v", i, err)
		}
	}
}

func TestAuth_Register_DuplicateAndHash(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{}
	s := testAuth(t, users, &fakeTokens{})
	ctx := context.Background()

	registerAlice(t, s)

	u := users.byName["alice"]
	if u == nil {
		t.Fatalf("user not stored")
	}
	if u.PwdHash == "secret1" || u.PwdHash == "" {
		t.Fatalf("password stored unhashed: %q", u.PwdHash)
	}
	if !pkgcrypto.VerifyPassword("secret1", u.PwdHash) {
		t.Fatalf("stored hash does not verify")
	}
	if u.Role != model.RoleDefault {
		t.Fatalf("role=%q, want DEFAULT", u.Role)
	}

	err := s.Register(ctx, RegisterInput{Username: "alice", Password: "secret2", Name: "Alice", Email: "other@x.com"})
	if !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists on duplicate username, got %v", err)
	}
	err = s.Register(ctx, RegisterInput{Username: "alicetwo", Password: "secret2", Name: "Alice", Email: "a@x.com"})
	if !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists on duplicate email, got %v", err)
	}
}

func TestAuth_Login_CredentialChecks(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{}
	s := testAuth(t, users, &fakeTokens{})
	ctx := context.Background()
	registerAlice(t, s)

	if _, err := s.Login(ctx, "", ""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation on empty input, got %v", err)
	}

	// unknown identifier and wrong password are indistinguishable
	_, errUnknown := s.Login(ctx, "nobody", "secret1")
	_, errWrongPw := s.Login(ctx, "alice", "wrong")
	if !errors.Is(errUnknown, errs.ErrInvalidCredentials) || !errors.Is(errWrongPw, errs.ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials for both, got %v / %v", errUnknown, errWrongPw)
	}

	users.getErr = errors.New("db down")
	if _, err := s.Login(ctx, "alice", "secret1"); errors.Is(err, errs.ErrInvalidCredentials) || err == nil {
		t.Fatalf("store failure must not masquerade as bad credentials, got %v", err)
	}
	users.getErr = nil

	// login by username and by email both work
	for _, ident := range []string{"alice", "a@x.com"} {
		pair, err := s.Login(ctx, ident, "secret1")
		if err != nil {
			t.Fatalf("Login(%s): %v", ident, err)
		}
		if pair.AccessToken == "" || pair.RefreshToken == "" || pair.ExpiresIn != 60 {
			t.Fatalf("Login(%s): bad pair %+v", ident, pair)
		}
	}
}

func TestAuth_Login_NoPartialPairOnStoreFailure(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{}
	tokens := &fakeTokens{}
	s := testAuth(t, users, tokens)
	ctx := context.Background()
	registerAlice(t, s)

	tokens.replaceErr = errors.New("insert failed")
	pair, err := s.Login(ctx, "alice", "secret1")
	if !errors.Is(err, errs.ErrTokenIssue) {
		t.Fatalf("want ErrTokenIssue, got %v", err)
	}
	if pair.AccessToken != "" || pair.RefreshToken != "" {
		t.Fatalf("partial credentials returned: %+v", pair)
	}
	if len(tokens.byUser) != 0 {
		t.Fatalf("store should hold no records, has %d", len(tokens.byUser))
	}
}

func TestAuth_SingleActiveTokenInvariant(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{}
	tokens := &fakeTokens{}
	s := testAuth(t, users, tokens)
	ctx := context.Background()
	registerAlice(t, s)

	var prev, last model.TokenPair
	for i := 0; i < 3; i++ {
		prev = last
		var err error
		last, err = s.Login(ctx, "alice", "secret1")
		if err != nil {
			t.Fatalf("login %d: %v", i+1, err)
		}
		if len(tokens.byUser) != 1 {
			t.Fatalf("after login %d: %d records, want exactly 1", i+1, len(tokens.byUser))
		}
	}

	userID := users.byName["alice"].ID
	if got := tokens.byUser[userID].Token; got != last.RefreshToken {
		t.Fatalf("stored token is not the latest login's")
	}

	// latest refresh token rotates fine
	pair, err := s.Refresh(ctx, last.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken != "" {
		t.Fatalf("rotation must issue access only, got %+v", pair)
	}

	// the superseded one is cryptographically valid but no longer stored
	if _, err := s.Refresh(ctx, prev.RefreshToken); !errors.Is(err, errs.ErrTokenNotRecognized) {
		t.Fatalf("superseded token: want ErrTokenNotRecognized, got %v", err)
	}
}

func TestAuth_Refresh_Rejections(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{}
	tokens := &fakeTokens{}
	s := testAuth(t, users, tokens)
	ctx := context.Background()
	registerAlice(t, s)

	if _, err := s.Refresh(ctx, ""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want ErrValidation on empty token, got %v", err)
	}
	if _, err := s.Refresh(ctx, "garbage"); !errors.Is(err, errs.ErrTokenMalformed) {
		t.Fatalf("want ErrTokenMalformed, got %v", err)
	}

	pair, err := s.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// an access token is not a refresh token
	if _, err := s.Refresh(ctx, pair.AccessToken); !errors.Is(err, errs.ErrTokenSignature) {
		t.Fatalf("want ErrTokenSignature, got %v", err)
	}

	// store-side expiry overrides the signature's embedded expiry
	userID := users.byName["alice"].ID
	rec := tokens.byUser[userID]
	rec.ExpiresAt = time.Now().Add(-time.Second)
	tokens.byUser[userID] = rec
	if _, err := s.Refresh(ctx, pair.RefreshToken); !errors.Is(err, errs.ErrTokenExpired) {
		t.Fatalf("want ErrTokenExpired via store record, got %v", err)
	}
	rec.ExpiresAt = time.Now().Add(time.Hour)
	tokens.byUser[userID] = rec

	// principal deleted between issue and refresh
	delete(users.byName, "alice")
	if _, err := s.Refresh(ctx, pair.RefreshToken); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound for missing user, got %v", err)
	}
}

func TestAuth_Refresh_AccessClaimsMatch(t *testing.T) {
	t.Parallel()
	users := &fakeUsers{}
	tokens := &fakeTokens{}
	s := testAuth(t, users, tokens)
	ctx := context.Background()
	registerAlice(t, s)

	pair, err := s.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	rotated, err := s.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	claims, err := s.codec.VerifyAccess(rotated.AccessToken)
	if err != nil {
		t.Fatalf("verify rotated access token: %v", err)
	}
	if claims.Username != "alice" || claims.Role != model.RoleDefault {
		t.Fatalf("rotated claims mismatch: %+v", claims)
	}
}
