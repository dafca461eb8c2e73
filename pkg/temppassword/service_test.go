package temppassword

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esoft-edu/campus-idm/pkg/identity"
	"github.com/esoft-edu/campus-idm/pkg/login"
	"github.com/esoft-edu/campus-idm/pkg/notification"
	"github.com/esoft-edu/campus-idm/pkg/passcode"
	"github.com/esoft-edu/campus-idm/pkg/password"
	"github.com/esoft-edu/campus-idm/pkg/tokens"
)

type fixture struct {
	staff    *identity.InMemStaffRepository
	students *identity.InMemStudentRepository
	hasher   password.Hasher
	tokens   *tokens.Service
	codes    *passcode.Service
	mock     *notification.MockNotifier
	svc      *Service
	logins   *login.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		staff:    identity.NewInMemStaffRepository(),
		students: identity.NewInMemStudentRepository(),
		hasher:   password.NewBcryptHasher(),
		mock:     &notification.MockNotifier{},
	}
	f.tokens = tokens.NewService(tokens.Secrets{
		Staff:   "staff-secret",
		Admin:   "admin-secret",
		Student: "student-secret",
	}, "test-issuer")
	f.codes = passcode.NewService(identity.NewRecoveryStore(f.staff, f.students), f.hasher)

	manager, err := notification.NewNotificationManagerWithOptions(
		notification.WithDefaultTemplates(),
	)
	require.NoError(t, err)
	manager.RegisterNotifier(notification.EmailSystem, f.mock)

	f.svc = NewService(f.staff, f.codes, f.tokens, f.hasher, manager, DefaultConfig())
	f.logins = login.NewService(f.staff, f.students, f.tokens, f.hasher, login.DefaultConfig())
	return f
}

// seedAndLogin creates an approved staff account holding a temporary
// password and logs in to obtain the temporary session token, the same
// way a browser would enter the flow.
func (f *fixture) seedAndLogin(t *testing.T) (identity.StaffAccount, string) {
	t.Helper()
	ctx := context.Background()

	hash, err := f.hasher.Hash("temp-pwd-123")
	require.NoError(t, err)
	account, err := f.staff.Create(ctx, identity.StaffAccount{
		StaffID:             "ST-1001",
		FullName:            "Test Person",
		Email:               "staff@esoft.com",
		Role:                identity.RoleStaff,
		PasswordHash:        hash,
		Approved:            true,
		IsPasswordTemporary: true,
	})
	require.NoError(t, err)

	result, err := f.logins.LoginStaff(ctx, "ST-1001", "temp-pwd-123", false)
	require.NoError(t, err)
	require.True(t, result.ForcePasswordChange)
	return account, result.TemporarySessionToken
}

func (f *fixture) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.mock.SentNotifications)
	code := f.mock.SentNotifications[len(f.mock.SentNotifications)-1].Data["Code"]
	require.Len(t, code, 6)
	return code
}

func TestTemporaryPasswordEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	account, sessionToken := f.seedAndLogin(t)

	sent, err := f.svc.SendCode(ctx, sessionToken)
	require.NoError(t, err)
	assert.Greater(t, sent.ExpiresInSeconds, 0)
	assert.LessOrEqual(t, sent.ExpiresInSeconds, int((10 * time.Minute).Seconds()))
	assert.Equal(t, "staff@esoft.com", f.mock.SentNotifications[0].To)

	resetToken, err := f.svc.VerifyCode(ctx, sessionToken, f.lastCode(t))
	require.NoError(t, err)
	assert.NotEmpty(t, resetToken)

	require.NoError(t, f.svc.SetNewPassword(ctx, resetToken, "chosen-password", "chosen-password"))

	// The temporary flag is gone and the slot is wiped
	updated, err := f.staff.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, updated.IsPasswordTemporary)
	assert.False(t, updated.TempPassword.Issued())

	match, err := f.hasher.Verify("chosen-password", updated.PasswordHash)
	require.NoError(t, err)
	assert.True(t, match)

	// The next login is a normal one
	result, err := f.logins.LoginStaff(ctx, "ST-1001", "chosen-password", false)
	require.NoError(t, err)
	assert.False(t, result.ForcePasswordChange)
	assert.Equal(t, "staffToken", result.TokenType)
}

func TestSendCodeAfterFlowCompleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, sessionToken := f.seedAndLogin(t)

	_, err := f.svc.SendCode(ctx, sessionToken)
	require.NoError(t, err)
	resetToken, err := f.svc.VerifyCode(ctx, sessionToken, f.lastCode(t))
	require.NoError(t, err)
	require.NoError(t, f.svc.SetNewPassword(ctx, resetToken, "chosen-password", "chosen-password"))

	// The old session token is structurally valid but the account no
	// longer needs a password change
	_, err = f.svc.SendCode(ctx, sessionToken)
	assert.ErrorIs(t, err, ErrNotRequired)
}

func TestSendCodeRejectsAccessToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	account, _ := f.seedAndLogin(t)

	claims := tokens.Claims{
		Kind:    identity.KindStaff,
		Role:    account.Role,
		Purpose: tokens.PurposeAccess,
		StaffID: account.StaffID,
	}
	claims.Subject = account.ID.String()
	accessToken, _, err := f.tokens.Issue(claims, time.Hour)
	require.NoError(t, err)

	_, err = f.svc.SendCode(ctx, accessToken)
	assert.ErrorIs(t, err, tokens.ErrWrongPurpose)
}

func TestVerifyCodeWrongCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, sessionToken := f.seedAndLogin(t)

	_, err := f.svc.SendCode(ctx, sessionToken)
	require.NoError(t, err)

	wrong := "000000"
	if f.lastCode(t) == wrong {
		wrong = "999999"
	}
	_, err = f.svc.VerifyCode(ctx, sessionToken, wrong)
	assert.ErrorIs(t, err, passcode.ErrInvalidCode)
}

func TestVerifyCodeWithoutSend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, sessionToken := f.seedAndLogin(t)

	_, err := f.svc.VerifyCode(ctx, sessionToken, "123456")
	assert.ErrorIs(t, err, passcode.ErrNoCodeIssued)
}

func TestSetNewPasswordMismatch(t *testing.T) {
	f := newFixture(t)

	err := f.svc.SetNewPassword(context.Background(), "whatever", "one", "two")
	assert.ErrorIs(t, err, ErrPasswordMismatch)
}

func TestSetNewPasswordRejectsSessionToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, sessionToken := f.seedAndLogin(t)

	// The entry token must not be accepted at the final step
	err := f.svc.SetNewPassword(ctx, sessionToken, "chosen-password", "chosen-password")
	assert.ErrorIs(t, err, tokens.ErrWrongPurpose)
}
