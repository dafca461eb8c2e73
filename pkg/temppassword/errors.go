package temppassword

import "errors"

var (
	// ErrNotRequired is returned when a temporary-password token is
	// presented for an account that no longer has a temporary password
	// (stale token use).
	ErrNotRequired = errors.New("temporary password not required")

	// ErrUserNotFound is returned when the account referenced by a
	// valid token no longer exists.
	ErrUserNotFound = errors.New("user not found")

	// ErrPasswordMismatch is returned when the new password and its
	// confirmation differ. Checked before any token verification.
	ErrPasswordMismatch = errors.New("passwords do not match")
)
