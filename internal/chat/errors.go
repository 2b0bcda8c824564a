package chat

import "errors"

var (
	// ErrValidation indicates a required field was missing from a request.
	ErrValidation = errors.New("missing required field")

	// ErrDuplicateUser indicates the email is already registered.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrInvalidCredentials indicates no user matched the login pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
