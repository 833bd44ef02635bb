package auth

import "errors"

// Domain errors for the auth package.
var (
	// ErrTokenInvalid is returned when a token fails signature, expiry,
	// or required-claim validation.
	ErrTokenInvalid = errors.New("auth: invalid token")

	// ErrTokenMissing is returned when no bearer token is present.
	ErrTokenMissing = errors.New("auth: missing token")
)
