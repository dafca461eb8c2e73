package identity

import (
	"context"

	"github.com/google/uuid"
)

// StaffRepository defines the persistence contract for staff accounts.
// Implementations confine side effects to the backing store; no
// business rules live here.
type StaffRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (StaffAccount, error)
	FindByStaffID(ctx context.Context, staffID string) (StaffAccount, error)
	FindByEmail(ctx context.Context, email string) (StaffAccount, error)
	Create(ctx context.Context, account StaffAccount) (StaffAccount, error)
	Save(ctx context.Context, account StaffAccount) (StaffAccount, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	UpdateRecoveryState(ctx context.Context, id uuid.UUID, slot Slot, st RecoveryState) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// StudentRepository defines the persistence contract for student
// accounts. Students carry only the forgot-password recovery slot.
type StudentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (StudentAccount, error)
	FindByENumber(ctx context.Context, eNumber string) (StudentAccount, error)
	FindByEmail(ctx context.Context, email string) (StudentAccount, error)
	Create(ctx context.Context, account StudentAccount) (StudentAccount, error)
	Save(ctx context.Context, account StudentAccount) (StudentAccount, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	UpdateRecoveryState(ctx context.Context, id uuid.UUID, st RecoveryState) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// RecoveryStore routes recovery-state reads and writes to the right
// repository for a Ref. It satisfies the passcode engine's store
// contract without the engine knowing about account kinds' tables.
type RecoveryStore struct {
	staff    StaffRepository
	students StudentRepository
}

// NewRecoveryStore creates a RecoveryStore over the two repositories.
func NewRecoveryStore(staff StaffRepository, students StudentRepository) *RecoveryStore {
	return &RecoveryStore{staff: staff, students: students}
}

// GetState loads the slot's recovery state for the referenced account.
func (s *RecoveryStore) GetState(ctx context.Context, ref Ref, slot Slot) (RecoveryState, error) {
	switch ref.Kind {
	case KindStudent:
		if slot != SlotForgotPassword {
			return RecoveryState{}, ErrNoSuchSlot
		}
		student, err := s.students.GetByID(ctx, ref.ID)
		if err != nil {
			return RecoveryState{}, err
		}
		return student.ForgotPassword, nil
	default:
		account, err := s.staff.GetByID(ctx, ref.ID)
		if err != nil {
			return RecoveryState{}, err
		}
		return account.RecoveryState(slot), nil
	}
}

// PutState persists the slot's recovery state for the referenced
// account as a single per-identity update.
func (s *RecoveryStore) PutState(ctx context.Context, ref Ref, slot Slot, st RecoveryState) error {
	switch ref.Kind {
	case KindStudent:
		if slot != SlotForgotPassword {
			return ErrNoSuchSlot
		}
		return s.students.UpdateRecoveryState(ctx, ref.ID, st)
	default:
		return s.staff.UpdateRecoveryState(ctx, ref.ID, slot, st)
	}
}
