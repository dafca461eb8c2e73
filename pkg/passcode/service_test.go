package passcode

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esoft-edu/campus-idm/pkg/identity"
	"github.com/esoft-edu/campus-idm/pkg/password"
)

type memStore struct {
	states map[string]identity.RecoveryState
}

func newMemStore() *memStore {
	return &memStore{states: make(map[string]identity.RecoveryState)}
}

func (m *memStore) key(ref identity.Ref, slot identity.Slot) string {
	return string(ref.Kind) + "/" + ref.ID.String() + "/" + string(slot)
}

func (m *memStore) GetState(ctx context.Context, ref identity.Ref, slot identity.Slot) (identity.RecoveryState, error) {
	return m.states[m.key(ref, slot)], nil
}

func (m *memStore) PutState(ctx context.Context, ref identity.Ref, slot identity.Slot, st identity.RecoveryState) error {
	m.states[m.key(ref, slot)] = st
	return nil
}

// brokenStore refuses writes once broken is set, simulating a store
// outage after a code was issued.
type brokenStore struct {
	*memStore
	broken bool
}

func (b *brokenStore) PutState(ctx context.Context, ref identity.Ref, slot identity.Slot, st identity.RecoveryState) error {
	if b.broken {
		return errors.New("store unavailable")
	}
	return b.memStore.PutState(ctx, ref, slot, st)
}

func testRef() identity.Ref {
	return identity.Ref{Kind: identity.KindStaff, ID: uuid.New()}
}

func TestIssueAndVerify(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewService(store, password.NewBcryptHasher())
	ref := testRef()

	issued, err := svc.Issue(ctx, ref, identity.SlotTempPassword)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), issued.RawCode)
	assert.True(t, issued.ExpiresAt.After(time.Now()))

	// Only the hash is stored
	st := store.states[store.key(ref, identity.SlotTempPassword)]
	assert.NotEqual(t, issued.RawCode, st.CodeHash)
	assert.NotEmpty(t, st.CodeHash)

	err = svc.Verify(ctx, ref, identity.SlotTempPassword, issued.RawCode)
	assert.NoError(t, err)

	// Success leaves the slot intact so the caller can gate further
	// steps on it until the flow completes
	err = svc.Verify(ctx, ref, identity.SlotTempPassword, issued.RawCode)
	assert.NoError(t, err)
}

func TestVerifyWithoutIssue(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemStore(), password.NewBcryptHasher())

	err := svc.Verify(ctx, testRef(), identity.SlotForgotPassword, "123456")
	assert.ErrorIs(t, err, ErrNoCodeIssued)
}

func TestVerifyExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	now := time.Now().UTC()
	clock := func() time.Time { return now }
	svc := NewService(store, password.NewBcryptHasher(), WithClock(clock))
	ref := testRef()

	issued, err := svc.Issue(ctx, ref, identity.SlotForgotPassword)
	require.NoError(t, err)

	// One second before expiry still verifies
	now = issued.ExpiresAt.Add(-time.Second)
	assert.NoError(t, svc.Verify(ctx, ref, identity.SlotForgotPassword, issued.RawCode))

	// Exactly at the expiry instant the code is already dead
	now = issued.ExpiresAt
	assert.ErrorIs(t, svc.Verify(ctx, ref, identity.SlotForgotPassword, issued.RawCode), ErrCodeExpired)

	now = issued.ExpiresAt.Add(time.Second)
	assert.ErrorIs(t, svc.Verify(ctx, ref, identity.SlotForgotPassword, issued.RawCode), ErrCodeExpired)
}

func TestVerifyLockout(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewService(store, password.NewBcryptHasher())
	ref := testRef()

	issued, err := svc.Issue(ctx, ref, identity.SlotForgotPassword)
	require.NoError(t, err)

	wrong := "000000"
	if issued.RawCode == wrong {
		wrong = "999999"
	}

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, svc.Verify(ctx, ref, identity.SlotForgotPassword, wrong), ErrInvalidCode)
	}

	// Fourth attempt is locked out even with the correct code
	assert.ErrorIs(t, svc.Verify(ctx, ref, identity.SlotForgotPassword, issued.RawCode), ErrLockedOut)

	// A fresh issue resets the counter
	issued, err = svc.Issue(ctx, ref, identity.SlotForgotPassword)
	require.NoError(t, err)
	assert.NoError(t, svc.Verify(ctx, ref, identity.SlotForgotPassword, issued.RawCode))
}

func TestVerifyUncountedAttemptIsNotAMismatch(t *testing.T) {
	ctx := context.Background()
	store := &brokenStore{memStore: newMemStore()}
	svc := NewService(store, password.NewBcryptHasher())
	ref := testRef()

	issued, err := svc.Issue(ctx, ref, identity.SlotForgotPassword)
	require.NoError(t, err)

	wrong := "000000"
	if issued.RawCode == wrong {
		wrong = "999999"
	}

	// When the counter cannot be persisted the guess surfaces as an
	// internal failure, not ErrInvalidCode
	store.broken = true
	err = svc.Verify(ctx, ref, identity.SlotForgotPassword, wrong)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCode)

	// The correct code still verifies once the store recovers
	store.broken = false
	assert.NoError(t, svc.Verify(ctx, ref, identity.SlotForgotPassword, issued.RawCode))
}

func TestReissueReplacesCode(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewService(store, password.NewBcryptHasher())
	ref := testRef()

	first, err := svc.Issue(ctx, ref, identity.SlotTempPassword)
	require.NoError(t, err)
	second, err := svc.Issue(ctx, ref, identity.SlotTempPassword)
	require.NoError(t, err)

	if first.RawCode != second.RawCode {
		// The old code is a wrong code now, not an expired one
		assert.ErrorIs(t, svc.Verify(ctx, ref, identity.SlotTempPassword, first.RawCode), ErrInvalidCode)
	}
	assert.NoError(t, svc.Verify(ctx, ref, identity.SlotTempPassword, second.RawCode))
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewService(store, password.NewBcryptHasher())
	ref := testRef()

	issued, err := svc.Issue(ctx, ref, identity.SlotTempPassword)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, ref, identity.SlotTempPassword))
	assert.ErrorIs(t, svc.Verify(ctx, ref, identity.SlotTempPassword, issued.RawCode), ErrNoCodeIssued)
}

func TestGenerateCodeRange(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		require.GreaterOrEqual(t, code, "100000")
		require.LessOrEqual(t, code, "999999")
	}
}
