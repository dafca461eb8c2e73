package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemStaffRepository implements StaffRepository using in-memory
// storage. Useful for tests and local development without a database.
type InMemStaffRepository struct {
	mutex    sync.RWMutex
	accounts map[uuid.UUID]StaffAccount
}

// NewInMemStaffRepository creates a new in-memory staff repository.
func NewInMemStaffRepository() *InMemStaffRepository {
	return &InMemStaffRepository{
		accounts: make(map[uuid.UUID]StaffAccount),
	}
}

// GetByID retrieves a staff account by internal id.
func (r *InMemStaffRepository) GetByID(ctx context.Context, id uuid.UUID) (StaffAccount, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	account, exists := r.accounts[id]
	if !exists {
		return StaffAccount{}, ErrNotFound
	}
	return account, nil
}

// FindByStaffID retrieves a staff account by its human-facing staff id.
func (r *InMemStaffRepository) FindByStaffID(ctx context.Context, staffID string) (StaffAccount, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, account := range r.accounts {
		if account.StaffID == staffID {
			return account, nil
		}
	}
	return StaffAccount{}, ErrNotFound
}

// FindByEmail retrieves a staff account by email.
func (r *InMemStaffRepository) FindByEmail(ctx context.Context, email string) (StaffAccount, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, account := range r.accounts {
		if strings.EqualFold(account.Email, email) {
			return account, nil
		}
	}
	return StaffAccount{}, ErrNotFound
}

// Create inserts a new staff account.
func (r *InMemStaffRepository) Create(ctx context.Context, account StaffAccount) (StaffAccount, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, existing := range r.accounts {
		if existing.StaffID == account.StaffID || strings.EqualFold(existing.Email, account.Email) {
			return StaffAccount{}, ErrDuplicate
		}
	}

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	r.accounts[account.ID] = account
	return account, nil
}

// Save persists all mutable fields of an existing staff account.
func (r *InMemStaffRepository) Save(ctx context.Context, account StaffAccount) (StaffAccount, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.accounts[account.ID]; !exists {
		return StaffAccount{}, ErrNotFound
	}
	account.UpdatedAt = time.Now().UTC()
	r.accounts[account.ID] = account
	return account, nil
}

// UpdatePasswordHash replaces the password hash for a staff account.
func (r *InMemStaffRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	account, exists := r.accounts[id]
	if !exists {
		return ErrNotFound
	}
	account.PasswordHash = hash
	account.UpdatedAt = time.Now().UTC()
	r.accounts[id] = account
	return nil
}

// UpdateRecoveryState writes one recovery slot.
func (r *InMemStaffRepository) UpdateRecoveryState(ctx context.Context, id uuid.UUID, slot Slot, st RecoveryState) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	account, exists := r.accounts[id]
	if !exists {
		return ErrNotFound
	}
	switch slot {
	case SlotTempPassword, SlotForgotPassword:
		account.SetRecoveryState(slot, st)
	default:
		return ErrNoSuchSlot
	}
	account.UpdatedAt = time.Now().UTC()
	r.accounts[id] = account
	return nil
}

// Delete removes a staff account.
func (r *InMemStaffRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.accounts[id]; !exists {
		return ErrNotFound
	}
	delete(r.accounts, id)
	return nil
}

// InMemStudentRepository implements StudentRepository using in-memory
// storage.
type InMemStudentRepository struct {
	mutex    sync.RWMutex
	accounts map[uuid.UUID]StudentAccount
}

// NewInMemStudentRepository creates a new in-memory student repository.
func NewInMemStudentRepository() *InMemStudentRepository {
	return &InMemStudentRepository{
		accounts: make(map[uuid.UUID]StudentAccount),
	}
}

// GetByID retrieves a student account by internal id.
func (r *InMemStudentRepository) GetByID(ctx context.Context, id uuid.UUID) (StudentAccount, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	account, exists := r.accounts[id]
	if !exists {
		return StudentAccount{}, ErrNotFound
	}
	return account, nil
}

// FindByENumber retrieves a student account by e-number.
func (r *InMemStudentRepository) FindByENumber(ctx context.Context, eNumber string) (StudentAccount, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, account := range r.accounts {
		if account.ENumber == eNumber {
			return account, nil
		}
	}
	return StudentAccount{}, ErrNotFound
}

// FindByEmail retrieves a student account by email.
func (r *InMemStudentRepository) FindByEmail(ctx context.Context, email string) (StudentAccount, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, account := range r.accounts {
		if strings.EqualFold(account.Email, email) {
			return account, nil
		}
	}
	return StudentAccount{}, ErrNotFound
}

// Create inserts a new student account.
func (r *InMemStudentRepository) Create(ctx context.Context, account StudentAccount) (StudentAccount, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, existing := range r.accounts {
		if existing.ENumber == account.ENumber || strings.EqualFold(existing.Email, account.Email) {
			return StudentAccount{}, ErrDuplicate
		}
	}

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	r.accounts[account.ID] = account
	return account, nil
}

// Save persists all mutable fields of an existing student account.
func (r *InMemStudentRepository) Save(ctx context.Context, account StudentAccount) (StudentAccount, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.accounts[account.ID]; !exists {
		return StudentAccount{}, ErrNotFound
	}
	account.UpdatedAt = time.Now().UTC()
	r.accounts[account.ID] = account
	return account, nil
}

// UpdatePasswordHash replaces the password hash for a student account.
func (r *InMemStudentRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	account, exists := r.accounts[id]
	if !exists {
		return ErrNotFound
	}
	account.PasswordHash = hash
	account.UpdatedAt = time.Now().UTC()
	r.accounts[id] = account
	return nil
}

// UpdateRecoveryState writes the forgot-password slot.
func (r *InMemStudentRepository) UpdateRecoveryState(ctx context.Context, id uuid.UUID, st RecoveryState) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	account, exists := r.accounts[id]
	if !exists {
		return ErrNotFound
	}
	account.ForgotPassword = st
	account.UpdatedAt = time.Now().UTC()
	r.accounts[id] = account
	return nil
}

// Delete removes a student account.
func (r *InMemStudentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.accounts[id]; !exists {
		return ErrNotFound
	}
	delete(r.accounts, id)
	return nil
}
