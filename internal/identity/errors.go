// Package identity is the phone-number identity provider: the user
// directory, one-time-code challenges and signed sessions.
package identity

import "errors"

var (
	ErrUserNotFound     = errors.New("auth/user-not-found")
	ErrUserExists       = errors.New("auth/phone-number-already-exists")
	ErrInvalidPhone     = errors.New("auth/invalid-phone-number")
	ErrInvalidCode      = errors.New("auth/invalid-verification-code")
	ErrChallengeExpired = errors.New("auth/code-expired")
	ErrTooManyRequests  = errors.New("auth/too-many-requests")
	ErrInvalidSession   = errors.New("auth/invalid-session")
)

var codes = []error{
	ErrUserNotFound,
	ErrUserExists,
	ErrInvalidPhone,
	ErrInvalidCode,
	ErrChallengeExpired,
	ErrTooManyRequests,
	ErrInvalidSession,
}

// Code returns the provider error code carried by err, or "auth/internal-error".
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c) {
			return c.Error()
		}
	}
	return "auth/internal-error"
}
