// Package tokens mints and validates the signed, purpose-tagged JWTs
// that move the login and recovery flows forward. Each role signs with
// its own independent secret, so a token minted for one population can
// never validate against another's key.
package tokens

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/esoft-edu/campus-idm/pkg/identity"
)

// Purpose restricts which flow step may accept a token. A token
// presented to a step expecting a different purpose is rejected even
// when its signature and expiry are valid.
type Purpose string

const (
	PurposeAccess             Purpose = "access"
	PurposeTempPassword       Purpose = "temp-password"
	PurposeTempPasswordReset  Purpose = "temp-password-reset"
	PurposeForgotVerification Purpose = "forgot-password-verification"
	PurposeForgotReset        Purpose = "forgot-password-reset"
)

var (
	// ErrInvalidToken covers malformed input, bad signatures and
	// expired tokens alike; callers surface all three identically.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrWrongPurpose is returned when a structurally valid token
	// carries the wrong purpose tag for the step it was presented to.
	ErrWrongPurpose = errors.New("token not valid for this operation")
)

// Claims is the payload carried by every token this service signs.
// Kind and Role double as the key-selection tag during verification.
type Claims struct {
	Kind     identity.Kind `json:"kind"`
	Role     identity.Role `json:"role"`
	Purpose  Purpose       `json:"purpose"`
	StaffID  string        `json:"staffId,omitempty"`
	ENumber  string        `json:"eNumber,omitempty"`
	FullName string        `json:"fullName,omitempty"`
	Email    string        `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Secrets holds the role-keyed signing keys. Each is an independent,
// non-derivable value injected at construction, never read from the
// environment inside this package.
type Secrets struct {
	Staff   string
	Admin   string
	Student string
}

// Service implements the token issuer.
type Service struct {
	secrets Secrets
	issuer  string
}

// NewService creates a token service with the given secrets.
func NewService(secrets Secrets, issuer string) *Service {
	return &Service{secrets: secrets, issuer: issuer}
}

// secretFor selects the signing key for a claim set. Both
// temp-password purposes sign with the staff secret regardless of the
// admin role, matching the entry token the login flow hands out.
func (s *Service) secretFor(claims Claims) []byte {
	switch claims.Purpose {
	case PurposeTempPassword, PurposeTempPasswordReset:
		return []byte(s.secrets.Staff)
	}

	switch {
	case claims.Kind == identity.KindStudent:
		return []byte(s.secrets.Student)
	case claims.Role == identity.RoleAdmin:
		return []byte(s.secrets.Admin)
	default:
		return []byte(s.secrets.Staff)
	}
}

// Issue signs a token for the claims with the role-appropriate secret.
func (s *Service) Issue(claims Claims, lifetime time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.Subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    s.issuer,
		ID:        uuid.New().String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretFor(claims))
	if err != nil {
		slog.Error("Failed to sign token", "err", err, "purpose", claims.Purpose)
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify validates a token in two phases: an unsigned decode to learn
// which secret applies from the kind/role tag, then a full signature
// and expiry check with that secret. Nothing from the untrusted
// envelope is used beyond key selection.
func (s *Service) Verify(tokenStr string) (Claims, error) {
	var envelope Claims
	_, _, err := jwt.NewParser().ParseUnverified(tokenStr, &envelope)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	secret := s.secretFor(envelope)

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims,
		func(t *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}

// VerifyPurpose validates a token and additionally requires the given
// purpose tag.
func (s *Service) VerifyPurpose(tokenStr string, purpose Purpose) (Claims, error) {
	claims, err := s.Verify(tokenStr)
	if err != nil {
		return Claims{}, err
	}
	if claims.Purpose != purpose {
		return Claims{}, ErrWrongPurpose
	}
	return claims, nil
}
