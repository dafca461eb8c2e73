// Package temppassword implements the forced password-change flow a
// staff or admin account enters after logging in with a
// system-generated temporary password. The entry point is the
// temp-password token minted by the login service, not an email
// lookup; completing the flow permanently clears the temporary flag.
package temppassword

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/esoft-edu/campus-idm/pkg/identity"
	"github.com/esoft-edu/campus-idm/pkg/notification"
	"github.com/esoft-edu/campus-idm/pkg/passcode"
	"github.com/esoft-edu/campus-idm/pkg/password"
	"github.com/esoft-edu/campus-idm/pkg/tokens"
)

// SendCodeResult is the step-1 response.
type SendCodeResult struct {
	ExpiresInSeconds int
}

// Config carries the flow's tunables.
type Config struct {
	ResetTokenTTL time.Duration
	SupportEmail  string
}

// DefaultConfig returns the standard 15-minute reset-token lifetime.
func DefaultConfig() Config {
	return Config{
		ResetTokenTTL: 15 * time.Minute,
		SupportEmail:  "support@esoft.com",
	}
}

// Service orchestrates the temporary-password flow.
type Service struct {
	staff    identity.StaffRepository
	codes    *passcode.Service
	tokens   *tokens.Service
	hasher   password.Hasher
	notifier *notification.NotificationManager
	cfg      Config
}

// NewService creates a temporary-password service.
func NewService(
	staff identity.StaffRepository,
	codes *passcode.Service,
	tokenSvc *tokens.Service,
	hasher password.Hasher,
	notifier *notification.NotificationManager,
	cfg Config,
) *Service {
	return &Service{
		staff:    staff,
		codes:    codes,
		tokens:   tokenSvc,
		hasher:   hasher,
		notifier: notifier,
		cfg:      cfg,
	}
}

// SendCode validates the temporary session token and mails a fresh
// 6-digit code against the temp-password slot.
func (s *Service) SendCode(ctx context.Context, temporarySessionToken string) (SendCodeResult, error) {
	account, err := s.resolveSession(ctx, temporarySessionToken)
	if err != nil {
		return SendCodeResult{}, err
	}

	issued, err := s.codes.Issue(ctx, account.Ref(), identity.SlotTempPassword)
	if err != nil {
		return SendCodeResult{}, err
	}

	// Delivery failure must not roll back the stored code.
	s.sendCodeEmail(account, issued)

	slog.Info("Temporary-password code sent", "staffId", account.StaffID)
	return SendCodeResult{
		ExpiresInSeconds: int(time.Until(issued.ExpiresAt).Seconds()),
	}, nil
}

// VerifyCode checks the mailed code and, on success, returns the reset
// token for the final step.
func (s *Service) VerifyCode(ctx context.Context, temporarySessionToken, code string) (string, error) {
	account, err := s.resolveSession(ctx, temporarySessionToken)
	if err != nil {
		return "", err
	}

	if err := s.codes.Verify(ctx, account.Ref(), identity.SlotTempPassword, code); err != nil {
		return "", err
	}

	claims := tokens.Claims{
		Kind:    identity.KindStaff,
		Role:    account.Role,
		Purpose: tokens.PurposeTempPasswordReset,
		StaffID: account.StaffID,
	}
	claims.Subject = account.ID.String()

	resetToken, _, err := s.tokens.Issue(claims, s.cfg.ResetTokenTTL)
	if err != nil {
		return "", err
	}

	slog.Info("Temporary-password code verified", "staffId", account.StaffID)
	return resetToken, nil
}

// SetNewPassword finishes the flow: persists the new password hash,
// exits the temporary-password state for good and clears the slot.
func (s *Service) SetNewPassword(ctx context.Context, resetToken, newPassword, confirmNewPassword string) error {
	if newPassword != confirmNewPassword {
		return ErrPasswordMismatch
	}

	claims, err := s.tokens.VerifyPurpose(resetToken, tokens.PurposeTempPasswordReset)
	if err != nil {
		return err
	}

	account, err := s.staffByClaims(ctx, claims)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	account.PasswordHash = hash
	account.IsPasswordTemporary = false
	account.TempPassword = identity.RecoveryState{}
	if _, err := s.staff.Save(ctx, account); err != nil {
		return err
	}

	s.sendChangedEmail(account)

	slog.Info("Temporary password replaced", "staffId", account.StaffID)
	return nil
}

// resolveSession verifies the temp-password entry token and rejects
// stale tokens for accounts that already completed the flow.
func (s *Service) resolveSession(ctx context.Context, temporarySessionToken string) (identity.StaffAccount, error) {
	claims, err := s.tokens.VerifyPurpose(temporarySessionToken, tokens.PurposeTempPassword)
	if err != nil {
		return identity.StaffAccount{}, err
	}

	account, err := s.staffByClaims(ctx, claims)
	if err != nil {
		return identity.StaffAccount{}, err
	}

	if !account.IsPasswordTemporary {
		return identity.StaffAccount{}, ErrNotRequired
	}
	return account, nil
}

func (s *Service) staffByClaims(ctx context.Context, claims tokens.Claims) (identity.StaffAccount, error) {
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return identity.StaffAccount{}, tokens.ErrInvalidToken
	}

	account, err := s.staff.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return identity.StaffAccount{}, ErrUserNotFound
		}
		return identity.StaffAccount{}, err
	}
	return account, nil
}

func (s *Service) sendCodeEmail(account identity.StaffAccount, issued passcode.IssuedCode) {
	if s.notifier == nil {
		return
	}
	minutes := int(time.Until(issued.ExpiresAt).Round(time.Minute).Minutes())
	err := s.notifier.Send(notification.VerificationCodeNotice, notification.NotificationData{
		To: account.Email,
		Data: map[string]string{
			"FullName":     account.FullName,
			"Code":         issued.RawCode,
			"ExpiresIn":    strconv.Itoa(minutes) + " minutes",
			"SupportEmail": s.cfg.SupportEmail,
		},
	})
	if err != nil {
		slog.Error("Email sending failed, but code was saved", "err", err)
	}
}

func (s *Service) sendChangedEmail(account identity.StaffAccount) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Send(notification.PasswordChangedNotice, notification.NotificationData{
		To: account.Email,
		Data: map[string]string{
			"FullName":     account.FullName,
			"AccountID":    account.StaffID,
			"SupportEmail": s.cfg.SupportEmail,
		},
	})
	if err != nil {
		slog.Error("Confirmation email sending failed", "err", err)
	}
}
