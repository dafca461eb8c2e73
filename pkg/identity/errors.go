package identity

import "errors"

var (
	// ErrNotFound is returned when an id, staff id, e-number or email
	// lookup matches no account.
	ErrNotFound = errors.New("account not found")

	// ErrDuplicate is returned when a create would violate a unique
	// field (staff id, e-number or email).
	ErrDuplicate = errors.New("account already exists")

	// ErrNoSuchSlot is returned when a recovery slot is requested that
	// the account kind does not carry.
	ErrNoSuchSlot = errors.New("recovery slot not available for account kind")
)
