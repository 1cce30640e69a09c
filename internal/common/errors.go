// Package common defines the sentinel errors shared by the service and
// HTTP layers. Callers match them with errors.Is; anything that matches
// none of them is treated as internal and never detailed to the client.
package common

import "errors"

var (
	// ErrNotFound covers both genuinely missing rows and identifiers
	// that fail to decode: an unparseable or mistagged id must look
	// exactly like a missing resource.
	ErrNotFound = errors.New("requested resource not found")

	// ErrAccountExists reports a sign-up against a taken email.
	ErrAccountExists = errors.New("account already exists")

	// ErrLoggedOff means no usable identity: missing, expired or
	// unparseable token, or an account that no longer exists.
	ErrLoggedOff = errors.New("sign in to continue")

	// ErrInvalidCredentials covers both a wrong password and an unknown
	// account. The two are indistinguishable to the caller on purpose.
	ErrInvalidCredentials = errors.New("wrong email or password")

	// ErrUnauthorized means the caller is known but lacks the role.
	ErrUnauthorized = errors.New("no permission for the resource")
)

// ValidationError reports which structural rule a field failed.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Validation builds a ValidationError with the given reason.
func Validation(reason string) error { return &ValidationError{Reason: reason} }

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
