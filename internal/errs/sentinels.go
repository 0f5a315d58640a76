// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers. Transport maps these to HTTP
// status codes; internal fault detail is never echoed to the caller.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (username or email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation indicates malformed or missing input fields.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials indicates an unknown identifier or a wrong password.
	// The two causes are deliberately indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrRateLimited indicates the caller exceeded a request budget.
	ErrRateLimited = errors.New("rate limited")

	// ErrTokenIssue indicates signing or the durable refresh-token write failed.
	// No partial credentials are returned when it occurs.
	ErrTokenIssue = errors.New("token issue failed")

	// ErrTokenMalformed indicates a token that could not be parsed.
	ErrTokenMalformed = errors.New("token malformed")

	// ErrTokenSignature indicates a token signed with the wrong secret.
	ErrTokenSignature = errors.New("token signature invalid")

	// ErrTokenExpired indicates a token past its expiry, by its own claims
	// or by the stored record.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenNotRecognized indicates a refresh token absent from the store:
	// superseded by a newer login, or never issued here.
	ErrTokenNotRecognized = errors.New("token not recognized")
)
