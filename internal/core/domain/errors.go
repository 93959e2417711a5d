package domain

import "errors"

// ErrorKind is the machine-readable category of an AuthError.
type ErrorKind string

const (
	KindInvalidEmail       ErrorKind = "invalid_email"
	KindPasswordTooShort   ErrorKind = "password_too_short"
	KindPasswordBlank      ErrorKind = "password_blank"
	KindPasswordMismatch   ErrorKind = "password_mismatch"
	KindAlreadyRegistered  ErrorKind = "already_registered"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindInvalidToken       ErrorKind = "invalid_token"
)

// MinPasswordLength is the minimum number of characters a password must have.
const MinPasswordLength = 8

// AuthError is an expected, caller-recoverable outcome of an auth operation.
// Two AuthErrors match under errors.Is when their kinds are equal.
type AuthError struct {
	Kind    ErrorKind
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// Is reports whether target is an AuthError of the same kind.
func (e *AuthError) Is(target error) bool {
	var t *AuthError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidEmail       = &AuthError{Kind: KindInvalidEmail, Message: "Please enter a valid email address"}
	ErrPasswordTooShort   = &AuthError{Kind: KindPasswordTooShort, Message: "Password must be at least 8 characters"}
	ErrPasswordBlank      = &AuthError{Kind: KindPasswordBlank, Message: "Password cannot be empty or whitespace only"}
	ErrPasswordMismatch   = &AuthError{Kind: KindPasswordMismatch, Message: "Passwords do not match"}
	ErrAlreadyRegistered  = &AuthError{Kind: KindAlreadyRegistered, Message: "Email already registered"}
	ErrInvalidCredentials = &AuthError{Kind: KindInvalidCredentials, Message: "Invalid credentials"}
	ErrInvalidToken       = &AuthError{Kind: KindInvalidToken, Message: "Invalid or expired token"}
)

// Store-level outcomes. The auth service translates these before they reach a
// caller so account existence is never leaked.
var (
	ErrDuplicateEmail  = errors.New("account with this email already exists")
	ErrAccountNotFound = errors.New("account not found")
)

// IsValidation reports whether err is one of the input validation kinds.
func IsValidation(err error) bool {
	var ae *AuthError
	if !errors.As(err, &ae) {
		return false
	}
	switch ae.Kind {
	case KindInvalidEmail, KindPasswordTooShort, KindPasswordBlank, KindPasswordMismatch:
		return true
	}
	return false
}
