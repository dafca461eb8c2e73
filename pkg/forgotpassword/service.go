// Package forgotpassword implements the self-service recovery flow:
// request a code by email, verify it, set a new password. It works for
// staff and students alike; the kind is auto-detected at the entry
// point and carried in the step tokens from then on.
package forgotpassword

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

// resolved is the kind-neutral view of an account the flow operates on.
type resolved struct {
	ref      identity.Ref
	role     identity.Role
	fullName string
	email    string
	publicID string
}

// RequestCodeResult is the step-1 response.
type RequestCodeResult struct {
	VerificationToken string
	ExpiresInSeconds  int
}

// Config carries the flow's tunables.
type Config struct {
	VerificationTokenTTL time.Duration
	ResetTokenTTL        time.Duration
	SupportEmail         string
}

// DefaultConfig returns the standard 15-minute step-token lifetimes.
func DefaultConfig() Config {
	return Config{
		VerificationTokenTTL: 15 * time.Minute,
		ResetTokenTTL:        15 * time.Minute,
		SupportEmail:         "support@esoft.com",
	}
}

// Service orchestrates the forgot-password flow.
type Service struct {
	staff    identity.StaffRepository
	students identity.StudentRepository
	codes    *passcode.Service
	tokens   *tokens.Service
	hasher   password.Hasher
	notifier *notification.NotificationManager
	cfg      Config
}

// NewService creates a forgot-password service.
func NewService(
	staff identity.StaffRepository,
	students identity.StudentRepository,
	codes *passcode.Service,
	tokenSvc *tokens.Service,
	hasher password.Hasher,
	notifier *notification.NotificationManager,
	cfg Config,
) *Service {
	return &Service{
		staff:    staff,
		students: students,
		codes:    codes,
		tokens:   tokenSvc,
		hasher:   hasher,
		notifier: notifier,
		cfg:      cfg,
	}
}

// RequestCode starts the flow: issues a 6-digit code against the
// forgot-password slot, emails it, and returns a verification token
// scoping the next step to this account.
func (s *Service) RequestCode(ctx context.Context, email string) (RequestCodeResult, error) {
	account, err := s.resolveByEmail(ctx, email)
	if err != nil {
		return RequestCodeResult{}, err
	}

	issued, err := s.codes.Issue(ctx, account.ref, identity.SlotForgotPassword)
	if err != nil {
		return RequestCodeResult{}, err
	}

	// Delivery failure must not roll back the stored code.
	s.sendCodeEmail(account, issued)

	claims := tokens.Claims{
		Kind:    account.ref.Kind,
		Role:    account.role,
		Purpose: tokens.PurposeForgotVerification,
	}
	claims.Subject = account.ref.ID.String()

	token, _, err := s.tokens.Issue(claims, s.cfg.VerificationTokenTTL)
	if err != nil {
		return RequestCodeResult{}, err
	}

	slog.Info("Forgot-password code requested", "kind", account.ref.Kind)
	return RequestCodeResult{
		VerificationToken: token,
		ExpiresInSeconds:  int(issued.ExpiresAt.Sub(time.Now().UTC()).Seconds()),
	}, nil
}

// VerifyCode checks the mailed code against the slot and, on success,
// returns the reset token for the final step. The slot is left intact
// until the flow completes.
func (s *Service) VerifyCode(ctx context.Context, verificationToken, code string) (string, error) {
	claims, err := s.tokens.VerifyPurpose(verificationToken, tokens.PurposeForgotVerification)
	if err != nil {
		return "", err
	}

	account, err := s.resolveByClaims(ctx, claims)
	if err != nil {
		return "", err
	}

	if err := s.codes.Verify(ctx, account.ref, identity.SlotForgotPassword, code); err != nil {
		return "", err
	}

	resetClaims := tokens.Claims{
		Kind:    account.ref.Kind,
		Role:    account.role,
		Purpose: tokens.PurposeForgotReset,
	}
	resetClaims.Subject = account.ref.ID.String()

	resetToken, _, err := s.tokens.Issue(resetClaims, s.cfg.ResetTokenTTL)
	if err != nil {
		return "", err
	}

	slog.Info("Forgot-password code verified", "kind", account.ref.Kind)
	return resetToken, nil
}

// SetNewPassword finishes the flow: persists the new password hash and
// clears the forgot-password slot so the code cannot be replayed.
func (s *Service) SetNewPassword(ctx context.Context, resetToken, newPassword, confirmNewPassword string) error {
	if newPassword != confirmNewPassword {
		return ErrPasswordMismatch
	}

	claims, err := s.tokens.VerifyPurpose(resetToken, tokens.PurposeForgotReset)
	if err != nil {
		return err
	}

	account, err := s.resolveByClaims(ctx, claims)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if account.ref.Kind == identity.KindStudent {
		err = s.students.UpdatePasswordHash(ctx, account.ref.ID, hash)
	} else {
		err = s.staff.UpdatePasswordHash(ctx, account.ref.ID, hash)
	}
	if err != nil {
		return err
	}

	if err := s.codes.Clear(ctx, account.ref, identity.SlotForgotPassword); err != nil {
		slog.Error("Failed to clear recovery slot", "err", err, "kind", account.ref.Kind)
	}

	s.sendChangedEmail(account)

	slog.Info("Forgot-password reset completed", "kind", account.ref.Kind)
	return nil
}

func (s *Service) resolveByEmail(ctx context.Context, email string) (resolved, error) {
	student, err := s.students.FindByEmail(ctx, email)
	if err == nil {
		return resolved{
			ref:      student.Ref(),
			role:     identity.RoleStudent,
			fullName: student.FullName,
			email:    student.Email,
			publicID: student.ENumber,
		}, nil
	}
	if !errors.Is(err, identity.ErrNotFound) {
		return resolved{}, err
	}

	staff, err := s.staff.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return resolved{}, ErrEmailNotFound
		}
		return resolved{}, err
	}
	return resolved{
		ref:      staff.Ref(),
		role:     staff.Role,
		fullName: staff.FullName,
		email:    staff.Email,
		publicID: staff.StaffID,
	}, nil
}

func (s *Service) resolveByClaims(ctx context.Context, claims tokens.Claims) (resolved, error) {
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return resolved{}, tokens.ErrInvalidToken
	}

	if claims.Kind == identity.KindStudent {
		student, err := s.students.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				return resolved{}, ErrUserNotFound
			}
			return resolved{}, err
		}
		return resolved{
			ref:      student.Ref(),
			role:     identity.RoleStudent,
			fullName: student.FullName,
			email:    student.Email,
			publicID: student.ENumber,
		}, nil
	}

	staff, err := s.staff.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return resolved{}, ErrUserNotFound
		}
		return resolved{}, err
	}
	return resolved{
		ref:      staff.Ref(),
		role:     staff.Role,
		fullName: staff.FullName,
		email:    staff.Email,
		publicID: staff.StaffID,
	}, nil
}

func (s *Service) sendCodeEmail(account resolved, issued passcode.IssuedCode) {
	if s.notifier == nil {
		return
	}
	minutes := int(time.Until(issued.ExpiresAt).Round(time.Minute).Minutes())
	err := s.notifier.Send(notification.VerificationCodeNotice, notification.NotificationData{
		To: account.email,
		Data: map[string]string{
			"FullName":     account.fullName,
			"Code":         issued.RawCode,
			"ExpiresIn":    strconv.Itoa(minutes) + " minutes",
			"SupportEmail": s.cfg.SupportEmail,
		},
	})
	if err != nil {
		slog.Error("Email sending failed, but code was saved", "err", err)
	}
}

func (s *Service) sendChangedEmail(account resolved) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Send(notification.PasswordChangedNotice, notification.NotificationData{
		To: account.email,
		Data: map[string]string{
			"FullName":     account.fullName,
			"AccountID":    account.publicID,
			"SupportEmail": s.cfg.SupportEmail,
		},
	})
	if err != nil {
		slog.Error("Confirmation email sending failed", "err", err)
	}
}
