package errors

import (
	"errors"
	"fmt"
)

// Common error types for the training-center auth core.
//
// Several distinct failure causes deliberately collapse into a single
// sentinel so that callers cannot distinguish them (and therefore cannot
// leak the distinction to clients): every token defect is ErrInvalidToken,
// every unusable refresh token (missing, revoked, expired) is
// ErrTokenNotUsable, and every failed code exchange (missing, already
// redeemed, expired) is ErrNoPendingExchange.
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrWeakPassword       = errors.New("password does not meet requirements")
	ErrAccountSuspended   = errors.New("account suspended")

	// Token errors
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenNotUsable = errors.New("refresh token not usable")

	// Code bridge errors
	ErrNoPendingExchange = errors.New("no pending exchange")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
