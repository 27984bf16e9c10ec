package auth

import "errors"

var (
	// ErrInvalidCredentials is deliberately generic: it covers both an
	// unknown email and a wrong password so the login endpoint cannot be
	// used to enumerate accounts.
	ErrInvalidCredentials = errors.New("auth: invalid email or password")

	// ErrAccountDeactivated is the one intentional exception to generic
	// login failures; a deactivated account is not a secret to its owner.
	ErrAccountDeactivated = errors.New("auth: account is deactivated")

	// ErrInvalidToken covers a bad signature, a missing or expired session
	// and a deactivated owner alike.
	ErrInvalidToken = errors.New("auth: invalid or expired token")

	// ErrPasswordMismatch is returned from ChangePassword; the caller is
	// already authenticated so there is no need for genericity.
	ErrPasswordMismatch = errors.New("auth: current password is incorrect")

	// ErrForbidden marks an authenticated caller acting outside their
	// authority on a resource they are allowed to know exists.
	ErrForbidden = errors.New("auth: forbidden")

	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
	ErrInvalidInput  = errors.New("auth: invalid input")
)
