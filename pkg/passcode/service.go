// Package passcode implements the one-time-code engine shared by the
// recovery flows: generate, hash, store, verify and expire 6-digit
// codes bound to an account's recovery slot.
package passcode

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/esoft-edu/campus-idm/pkg/identity"
	"github.com/esoft-edu/campus-idm/pkg/password"
)

// StateStore loads and persists one recovery slot per account. The
// identity package provides the implementation that routes a Ref to
// the right repository.
type StateStore interface {
	GetState(ctx context.Context, ref identity.Ref, slot identity.Slot) (identity.RecoveryState, error)
	PutState(ctx context.Context, ref identity.Ref, slot identity.Slot, st identity.RecoveryState) error
}

// IssuedCode is the result of issuing a fresh code. RawCode is handed
// to the caller exactly once for delivery; only its hash is persisted.
type IssuedCode struct {
	RawCode   string
	ExpiresAt time.Time
}

// Service manages the issue/verify/clear cycle for one-time codes.
type Service struct {
	store       StateStore
	hasher      password.Hasher
	expiry      time.Duration
	maxAttempts int
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithExpiry overrides the default 10-minute code lifetime.
func WithExpiry(d time.Duration) Option {
	return func(s *Service) { s.expiry = d }
}

// WithMaxAttempts overrides the default 3-attempt cap.
func WithMaxAttempts(n int) Option {
	return func(s *Service) { s.maxAttempts = n }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a passcode service with a 10-minute code lifetime
// and a 3-attempt cap.
func NewService(store StateStore, hasher password.Hasher, opts ...Option) *Service {
	s := &Service{
		store:       store,
		hasher:      hasher,
		expiry:      10 * time.Minute,
		maxAttempts: 3,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue generates a uniformly random 6-digit code, stores its hash
// with a fresh expiry in the given slot and resets the attempt
// counter. Any previously outstanding code for the slot is replaced.
func (s *Service) Issue(ctx context.Context, ref identity.Ref, slot identity.Slot) (IssuedCode, error) {
	raw, err := generateCode()
	if err != nil {
		return IssuedCode{}, fmt.Errorf("failed to generate code: %w", err)
	}

	hash, err := s.hasher.Hash(raw)
	if err != nil {
		return IssuedCode{}, fmt.Errorf("failed to hash code: %w", err)
	}

	expiresAt := s.now().UTC().Add(s.expiry)
	st := identity.RecoveryState{
		CodeHash:       hash,
		CodeExpiresAt:  &expiresAt,
		FailedAttempts: 0,
	}
	if err := s.store.PutState(ctx, ref, slot, st); err != nil {
		return IssuedCode{}, fmt.Errorf("failed to store code: %w", err)
	}

	slog.Info("Issued verification code", "kind", ref.Kind, "slot", slot, "expiresAt", expiresAt)
	return IssuedCode{RawCode: raw, ExpiresAt: expiresAt}, nil
}

// Verify checks a candidate code against the slot's outstanding one.
// On mismatch the failed-attempt counter is persisted before the error
// is returned. On success the slot is left intact; the caller decides
// when to Clear it.
func (s *Service) Verify(ctx context.Context, ref identity.Ref, slot identity.Slot, candidate string) error {
	st, err := s.store.GetState(ctx, ref, slot)
	if err != nil {
		return err
	}

	if !st.Issued() {
		return ErrNoCodeIssued
	}
	if !s.now().UTC().Before(*st.CodeExpiresAt) {
		return ErrCodeExpired
	}
	if st.FailedAttempts >= s.maxAttempts {
		return ErrLockedOut
	}

	match, err := s.hasher.Verify(candidate, st.CodeHash)
	if err != nil {
		return fmt.Errorf("failed to verify code: %w", err)
	}
	if !match {
		st.FailedAttempts++
		// An attempt that cannot be counted must not be reported as a
		// clean mismatch, or the cap never advances.
		if putErr := s.store.PutState(ctx, ref, slot, st); putErr != nil {
			return fmt.Errorf("failed to persist attempt counter: %w", putErr)
		}
		return ErrInvalidCode
	}

	return nil
}

// Clear wipes the slot so a verified code cannot be replayed. Must be
// called after a recovery flow's terminal success.
func (s *Service) Clear(ctx context.Context, ref identity.Ref, slot identity.Slot) error {
	return s.store.PutState(ctx, ref, slot, identity.RecoveryState{})
}

// generateCode draws a uniform 6-digit decimal code from crypto/rand.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
