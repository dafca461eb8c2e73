package passcode

import "errors"

var (
	// ErrNoCodeIssued is returned when verification is attempted but no
	// code is outstanding for the slot.
	ErrNoCodeIssued = errors.New("no verification code issued")

	// ErrCodeExpired is returned when the outstanding code's expiry has
	// passed. Expiry is inclusive: a code checked at exactly its
	// expiry instant is expired.
	ErrCodeExpired = errors.New("verification code has expired")

	// ErrLockedOut is returned once the failed-attempt cap is reached;
	// the code is unusable until a fresh one is issued.
	ErrLockedOut = errors.New("too many failed attempts, request a new code")

	// ErrInvalidCode is returned when the submitted code does not match
	// the outstanding one.
	ErrInvalidCode = errors.New("invalid verification code")
)
