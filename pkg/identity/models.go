package identity

import (
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes the two account populations. Every internal id
// belongs to exactly one kind; there is no cross-kind id collision
// because each kind lives in its own table.
type Kind string

const (
	KindStaff   Kind = "staff"
	KindStudent Kind = "student"
)

// Role is the coarse permission level carried in token claims.
// Students always have RoleStudent; staff accounts are either
// RoleStaff or RoleAdmin.
type Role string

const (
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Slot names one of the independent recovery flows an account can have
// in progress. Staff accounts carry both slots, students only the
// forgot-password one.
type Slot string

const (
	SlotTempPassword   Slot = "temp_password"
	SlotForgotPassword Slot = "forgot_password"
)

// Ref points at one account of a known kind.
type Ref struct {
	Kind Kind
	ID   uuid.UUID
}

// RecoveryState is the hashed-code/expiry/attempt-counter triple backing
// one recovery flow. CodeHash is always a bcrypt hash, never the raw
// 6-digit code. An empty CodeHash or nil CodeExpiresAt means no code is
// outstanding.
type RecoveryState struct {
	CodeHash       string
	CodeExpiresAt  *time.Time
	FailedAttempts int
}

// Issued reports whether a code is currently outstanding for this slot.
func (s RecoveryState) Issued() bool {
	return s.CodeHash != "" && s.CodeExpiresAt != nil
}

// StaffAccount is a staff or admin identity. PasswordHash stays empty
// until an admin approves the originating staff request; approval also
// assigns a system-generated temporary password.
type StaffAccount struct {
	ID                  uuid.UUID
	StaffID             string
	FullName            string
	Email               string
	Role                Role
	PasswordHash        string
	Approved            bool
	IsPasswordTemporary bool
	TempPassword        RecoveryState
	ForgotPassword      RecoveryState
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Ref returns the staff account's identity reference.
func (a StaffAccount) Ref() Ref {
	return Ref{Kind: KindStaff, ID: a.ID}
}

// RecoveryState returns the slot's state. Unknown slots yield a zero
// state, which reads as "no code issued".
func (a *StaffAccount) RecoveryState(slot Slot) RecoveryState {
	switch slot {
	case SlotTempPassword:
		return a.TempPassword
	case SlotForgotPassword:
		return a.ForgotPassword
	}
	return RecoveryState{}
}

// SetRecoveryState replaces the slot's state.
func (a *StaffAccount) SetRecoveryState(slot Slot, st RecoveryState) {
	switch slot {
	case SlotTempPassword:
		a.TempPassword = st
	case SlotForgotPassword:
		a.ForgotPassword = st
	}
}

// StudentAccount is a self-registered student identity. Students choose
// their own password at registration, so the temporary-password flow
// does not apply to them.
type StudentAccount struct {
	ID             uuid.UUID
	ENumber        string
	FullName       string
	Email          string
	PasswordHash   string
	ForgotPassword RecoveryState
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Ref returns the student account's identity reference.
func (a StudentAccount) Ref() Ref {
	return Ref{Kind: KindStudent, ID: a.ID}
}
