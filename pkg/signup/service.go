// Package signup handles account onboarding: staff-request submission
// and admin approval on one side, student self-registration on the
// other. Approval is what gives a staff account its first (temporary)
// password and feeds the login flow its invariant that approved staff
// always have a password hash.
package signup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/esoft-edu/campus-idm/pkg/identity"
	"github.com/esoft-edu/campus-idm/pkg/notification"
	"github.com/esoft-edu/campus-idm/pkg/password"
	"github.com/esoft-edu/campus-idm/pkg/utils"
)

var (
	// ErrAlreadyApproved is returned when approving a staff request
	// that has already been approved.
	ErrAlreadyApproved = errors.New("staff request already approved")

	// ErrInvalidRole is returned for roles outside staff/admin.
	ErrInvalidRole = errors.New("invalid role")
)

const tempPasswordLength = 12

// StaffRequestParams is the submission payload for a new staff account.
type StaffRequestParams struct {
	StaffID  string
	FullName string
	Email    string
	Role     identity.Role
}

// StudentParams is the self-registration payload.
type StudentParams struct {
	ENumber  string
	FullName string
	Email    string
	Password string
}

// Service implements onboarding.
type Service struct {
	staff        identity.StaffRepository
	students     identity.StudentRepository
	hasher       password.Hasher
	notifier     *notification.NotificationManager
	supportEmail string
}

// NewService creates a signup service.
func NewService(staff identity.StaffRepository, students identity.StudentRepository, hasher password.Hasher, notifier *notification.NotificationManager, supportEmail string) *Service {
	return &Service{
		staff:        staff,
		students:     students,
		hasher:       hasher,
		notifier:     notifier,
		supportEmail: supportEmail,
	}
}

// SubmitStaffRequest creates an unapproved staff account with no
// password. It cannot log in until an admin approves it.
func (s *Service) SubmitStaffRequest(ctx context.Context, params StaffRequestParams) (identity.StaffAccount, error) {
	role := params.Role
	if role == "" {
		role = identity.RoleStaff
	}
	if role != identity.RoleStaff && role != identity.RoleAdmin {
		return identity.StaffAccount{}, ErrInvalidRole
	}

	account, err := s.staff.Create(ctx, identity.StaffAccount{
		StaffID:  params.StaffID,
		FullName: params.FullName,
		Email:    params.Email,
		Role:     role,
	})
	if err != nil {
		return identity.StaffAccount{}, err
	}

	slog.Info("Staff request submitted", "staffId", account.StaffID, "role", account.Role)
	return account, nil
}

// ApproveStaffRequest approves a pending staff account: it assigns a
// system-generated temporary password, marks the password temporary
// and emails the password to the staff member. First login will force
// a password change.
func (s *Service) ApproveStaffRequest(ctx context.Context, id uuid.UUID) (identity.StaffAccount, error) {
	account, err := s.staff.GetByID(ctx, id)
	if err != nil {
		return identity.StaffAccount{}, err
	}
	if account.Approved {
		return identity.StaffAccount{}, ErrAlreadyApproved
	}

	tempPassword := utils.GenerateRandomString(tempPasswordLength)
	hash, err := s.hasher.Hash(tempPassword)
	if err != nil {
		return identity.StaffAccount{}, fmt.Errorf("failed to hash temporary password: %w", err)
	}

	account.PasswordHash = hash
	account.Approved = true
	account.IsPasswordTemporary = true
	account, err = s.staff.Save(ctx, account)
	if err != nil {
		return identity.StaffAccount{}, err
	}

	// Delivery failure must not roll back the approval.
	s.sendTemporaryPasswordEmail(account, tempPassword)

	slog.Info("Staff request approved", "staffId", account.StaffID)
	return account, nil
}

// RegisterStudent creates a student account with a user-chosen
// password. Students never enter the temporary-password flow.
func (s *Service) RegisterStudent(ctx context.Context, params StudentParams) (identity.StudentAccount, error) {
	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return identity.StudentAccount{}, fmt.Errorf("failed to hash password: %w", err)
	}

	account, err := s.students.Create(ctx, identity.StudentAccount{
		ENumber:      params.ENumber,
		FullName:     params.FullName,
		Email:        params.Email,
		PasswordHash: hash,
	})
	if err != nil {
		return identity.StudentAccount{}, err
	}

	slog.Info("Student registered", "eNumber", account.ENumber)
	return account, nil
}

// DeleteStaff removes a staff account. Peripheral CRUD; the core
// lifecycle never hard-deletes.
func (s *Service) DeleteStaff(ctx context.Context, id uuid.UUID) error {
	return s.staff.Delete(ctx, id)
}

func (s *Service) sendTemporaryPasswordEmail(account identity.StaffAccount, tempPassword string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Send(notification.TemporaryPasswordNotice, notification.NotificationData{
		To: account.Email,
		Data: map[string]string{
			"FullName":     account.FullName,
			"StaffID":      account.StaffID,
			"TempPassword": tempPassword,
			"SupportEmail": s.supportEmail,
		},
	})
	if err != nil {
		slog.Error("Temporary password email failed, approval stands", "err", err, "staffId", account.StaffID)
	}
}
