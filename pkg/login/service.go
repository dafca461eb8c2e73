// Package login implements the credential check and token issuance
// that every session starts with: lookup, approval gate, password
// verification, then either an access token or the forced
// temporary-password branch.
package login

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/esoft-edu/campus-idm/pkg/identity"
	"github.com/esoft-edu/campus-idm/pkg/password"
	"github.com/esoft-edu/campus-idm/pkg/tokens"
)

var (
	// ErrInvalidCredentials is deliberately generic: a missing account,
	// a missing password hash and a wrong password all surface the
	// same way so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotApproved is returned for a known staff account whose
	// staff request has not been approved yet. Admins bypass the gate.
	ErrNotApproved = errors.New("staff request not approved yet")
)

// StaffSummary is the identity snippet returned with a staff login.
type StaffSummary struct {
	StaffID             string        `json:"staffId"`
	FullName            string        `json:"fullName"`
	Email               string        `json:"email"`
	Role                identity.Role `json:"role"`
	IsPasswordTemporary bool          `json:"isPasswordTemporary"`
}

// StudentSummary is the identity snippet returned with a student login.
type StudentSummary struct {
	ENumber  string `json:"eNumber"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// Result is the outcome of a successful credential check: either an
// access grant or the temporary-password challenge, never both.
type Result struct {
	ForcePasswordChange   bool
	TemporarySessionToken string
	TokenType             string
	Token                 string
	ExpiresIn             int64
	Staff                 *StaffSummary
	Student               *StudentSummary
}

// Config carries the tunable token lifetimes.
type Config struct {
	AccessTTL     time.Duration
	RememberMeTTL time.Duration
	TempTokenTTL  time.Duration
}

// DefaultConfig returns the standard lifetimes: 1-day sessions, 7-day
// remembered sessions, 30-minute temporary-password windows.
func DefaultConfig() Config {
	return Config{
		AccessTTL:     24 * time.Hour,
		RememberMeTTL: 7 * 24 * time.Hour,
		TempTokenTTL:  30 * time.Minute,
	}
}

// Service is the login state machine.
type Service struct {
	staff    identity.StaffRepository
	students identity.StudentRepository
	tokens   *tokens.Service
	hasher   password.Hasher
	cfg      Config
}

// NewService creates a login service.
func NewService(staff identity.StaffRepository, students identity.StudentRepository, tokenSvc *tokens.Service, hasher password.Hasher, cfg Config) *Service {
	return &Service{
		staff:    staff,
		students: students,
		tokens:   tokenSvc,
		hasher:   hasher,
		cfg:      cfg,
	}
}

// LoginStaff authenticates a staff or admin account by staff id.
func (s *Service) LoginStaff(ctx context.Context, staffID, rawPassword string, rememberMe bool) (Result, error) {
	account, err := s.staff.FindByStaffID(ctx, staffID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return Result{}, ErrInvalidCredentials
		}
		return Result{}, err
	}

	// Admins are implicitly trusted; only plain staff wait on approval.
	if account.Role == identity.RoleStaff && !account.Approved {
		return Result{}, ErrNotApproved
	}

	if account.PasswordHash == "" {
		return Result{}, ErrInvalidCredentials
	}

	match, err := s.hasher.Verify(rawPassword, account.PasswordHash)
	if err != nil {
		return Result{}, err
	}
	if !match {
		return Result{}, ErrInvalidCredentials
	}

	if account.IsPasswordTemporary {
		return s.temporaryPasswordChallenge(account)
	}

	claims := tokens.Claims{
		Kind:     identity.KindStaff,
		Role:     account.Role,
		Purpose:  tokens.PurposeAccess,
		StaffID:  account.StaffID,
		FullName: account.FullName,
		Email:    account.Email,
	}
	claims.Subject = account.ID.String()

	ttl := s.cfg.AccessTTL
	if rememberMe {
		ttl = s.cfg.RememberMeTTL
	}
	token, _, err := s.tokens.Issue(claims, ttl)
	if err != nil {
		return Result{}, err
	}

	tokenType := "staffToken"
	if account.Role == identity.RoleAdmin {
		tokenType = "adminToken"
	}

	slog.Info("Staff login succeeded", "staffId", account.StaffID, "role", account.Role, "rememberMe", rememberMe)
	return Result{
		TokenType: tokenType,
		Token:     token,
		ExpiresIn: int64(ttl.Seconds()),
		Staff: &StaffSummary{
			StaffID:             account.StaffID,
			FullName:            account.FullName,
			Email:               account.Email,
			Role:                account.Role,
			IsPasswordTemporary: account.IsPasswordTemporary,
		},
	}, nil
}

// LoginStudent authenticates a student account by e-number. Students
// have no approval gate and no temporary-password branch.
func (s *Service) LoginStudent(ctx context.Context, eNumber, rawPassword string, rememberMe bool) (Result, error) {
	account, err := s.students.FindByENumber(ctx, eNumber)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return Result{}, ErrInvalidCredentials
		}
		return Result{}, err
	}

	if account.PasswordHash == "" {
		return Result{}, ErrInvalidCredentials
	}

	match, err := s.hasher.Verify(rawPassword, account.PasswordHash)
	if err != nil {
		return Result{}, err
	}
	if !match {
		return Result{}, ErrInvalidCredentials
	}

	claims := tokens.Claims{
		Kind:     identity.KindStudent,
		Role:     identity.RoleStudent,
		Purpose:  tokens.PurposeAccess,
		ENumber:  account.ENumber,
		FullName: account.FullName,
		Email:    account.Email,
	}
	claims.Subject = account.ID.String()

	ttl := s.cfg.AccessTTL
	if rememberMe {
		ttl = s.cfg.RememberMeTTL
	}
	token, _, err := s.tokens.Issue(claims, ttl)
	if err != nil {
		return Result{}, err
	}

	slog.Info("Student login succeeded", "eNumber", account.ENumber, "rememberMe", rememberMe)
	return Result{
		TokenType: "studentToken",
		Token:     token,
		ExpiresIn: int64(ttl.Seconds()),
		Student: &StudentSummary{
			ENumber:  account.ENumber,
			FullName: account.FullName,
			Email:    account.Email,
		},
	}, nil
}

// temporaryPasswordChallenge issues the short-lived entry token for
// the forced-change flow. No access token is minted on this branch.
func (s *Service) temporaryPasswordChallenge(account identity.StaffAccount) (Result, error) {
	claims := tokens.Claims{
		Kind:    identity.KindStaff,
		Role:    account.Role,
		Purpose: tokens.PurposeTempPassword,
		StaffID: account.StaffID,
	}
	claims.Subject = account.ID.String()

	token, _, err := s.tokens.Issue(claims, s.cfg.TempTokenTTL)
	if err != nil {
		return Result{}, err
	}

	slog.Info("Temporary password change required", "staffId", account.StaffID)
	return Result{
		ForcePasswordChange:   true,
		TemporarySessionToken: token,
	}, nil
}
