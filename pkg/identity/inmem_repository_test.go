package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaffCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemStaffRepository()

	created, err := repo.Create(ctx, StaffAccount{
		StaffID:  "ST-1001",
		FullName: "Test Person",
		Email:    "staff@esoft.com",
		Role:     RoleStaff,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.StaffID, byID.StaffID)

	byStaffID, err := repo.FindByStaffID(ctx, "ST-1001")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byStaffID.ID)

	// Email lookup is case-insensitive
	byEmail, err := repo.FindByEmail(ctx, "STAFF@esoft.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.FindByStaffID(ctx, "ST-9999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStaffCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemStaffRepository()

	_, err := repo.Create(ctx, StaffAccount{StaffID: "ST-1001", Email: "staff@esoft.com"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, StaffAccount{StaffID: "ST-1001", Email: "other@esoft.com"})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = repo.Create(ctx, StaffAccount{StaffID: "ST-1002", Email: "Staff@esoft.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestStaffSaveAndUpdatePasswordHash(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemStaffRepository()

	created, err := repo.Create(ctx, StaffAccount{StaffID: "ST-1001", Email: "staff@esoft.com"})
	require.NoError(t, err)

	created.Approved = true
	created.IsPasswordTemporary = true
	saved, err := repo.Save(ctx, created)
	require.NoError(t, err)
	assert.True(t, saved.Approved)
	assert.True(t, saved.UpdatedAt.After(saved.CreatedAt) || saved.UpdatedAt.Equal(saved.CreatedAt))

	require.NoError(t, repo.UpdatePasswordHash(ctx, created.ID, "new-hash"))
	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.True(t, got.IsPasswordTemporary)

	_, err = repo.Save(ctx, StaffAccount{ID: uuid.New()})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.UpdatePasswordHash(ctx, uuid.New(), "x"), ErrNotFound)
}

func TestStaffRecoverySlots(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemStaffRepository()

	created, err := repo.Create(ctx, StaffAccount{StaffID: "ST-1001", Email: "staff@esoft.com"})
	require.NoError(t, err)

	expiresAt := time.Now().UTC().Add(10 * time.Minute)
	st := RecoveryState{CodeHash: "hash", CodeExpiresAt: &expiresAt, FailedAttempts: 1}

	// The two slots are independent
	require.NoError(t, repo.UpdateRecoveryState(ctx, created.ID, SlotTempPassword, st))
	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash", got.TempPassword.CodeHash)
	assert.Empty(t, got.ForgotPassword.CodeHash)

	require.NoError(t, repo.UpdateRecoveryState(ctx, created.ID, SlotForgotPassword, st))
	got, err = repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash", got.ForgotPassword.CodeHash)

	assert.ErrorIs(t, repo.UpdateRecoveryState(ctx, created.ID, Slot("bogus"), st), ErrNoSuchSlot)
}

func TestStaffDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemStaffRepository()

	created, err := repo.Create(ctx, StaffAccount{StaffID: "ST-1001", Email: "staff@esoft.com"})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), ErrNotFound)
}

func TestStudentCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemStudentRepository()

	created, err := repo.Create(ctx, StudentAccount{
		ENumber:  "E123456",
		FullName: "Test Student",
		Email:    "student@esoft.com",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	byENumber, err := repo.FindByENumber(ctx, "E123456")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byENumber.ID)

	byEmail, err := repo.FindByEmail(ctx, "Student@esoft.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = repo.Create(ctx, StudentAccount{ENumber: "E123456", Email: "other@esoft.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestStudentRecoveryState(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemStudentRepository()

	created, err := repo.Create(ctx, StudentAccount{ENumber: "E123456", Email: "student@esoft.com"})
	require.NoError(t, err)

	expiresAt := time.Now().UTC().Add(10 * time.Minute)
	require.NoError(t, repo.UpdateRecoveryState(ctx, created.ID, RecoveryState{CodeHash: "hash", CodeExpiresAt: &expiresAt}))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.ForgotPassword.Issued())

	require.NoError(t, repo.UpdateRecoveryState(ctx, created.ID, RecoveryState{}))
	got, err = repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.ForgotPassword.Issued())
}

func TestRecoveryStoreRouting(t *testing.T) {
	ctx := context.Background()
	staffRepo := NewInMemStaffRepository()
	studentRepo := NewInMemStudentRepository()
	store := NewRecoveryStore(staffRepo, studentRepo)

	staff, err := staffRepo.Create(ctx, StaffAccount{StaffID: "ST-1001", Email: "staff@esoft.com"})
	require.NoError(t, err)
	student, err := studentRepo.Create(ctx, StudentAccount{ENumber: "E123456", Email: "student@esoft.com"})
	require.NoError(t, err)

	expiresAt := time.Now().UTC().Add(10 * time.Minute)
	st := RecoveryState{CodeHash: "hash", CodeExpiresAt: &expiresAt}

	require.NoError(t, store.PutState(ctx, staff.Ref(), SlotTempPassword, st))
	got, err := store.GetState(ctx, staff.Ref(), SlotTempPassword)
	require.NoError(t, err)
	assert.Equal(t, "hash", got.CodeHash)

	require.NoError(t, store.PutState(ctx, student.Ref(), SlotForgotPassword, st))
	got, err = store.GetState(ctx, student.Ref(), SlotForgotPassword)
	require.NoError(t, err)
	assert.Equal(t, "hash", got.CodeHash)

	// Students have no temp-password slot
	err = store.PutState(ctx, student.Ref(), SlotTempPassword, st)
	assert.ErrorIs(t, err, ErrNoSuchSlot)
	_, err = store.GetState(ctx, student.Ref(), SlotTempPassword)
	assert.ErrorIs(t, err, ErrNoSuchSlot)
}
