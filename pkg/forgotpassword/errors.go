package forgotpassword

import "errors"

var (
	// ErrEmailNotFound is returned when neither the student nor the
	// staff store knows the address.
	ErrEmailNotFound = errors.New("email not found")

	// ErrUserNotFound is returned when the account referenced by a
	// valid token no longer exists.
	ErrUserNotFound = errors.New("user not found")

	// ErrPasswordMismatch is returned when the new password and its
	// confirmation differ. Checked before any token verification.
	ErrPasswordMismatch = errors.New("passwords do not match")
)
