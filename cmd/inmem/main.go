// Package main runs the identity service without a database using
// in-memory repositories. Useful for quick development, demos and
// learning the API without PostgreSQL. All data is lost on shutdown;
// for production use cmd/campusidm.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/tendant/chi-demo/app"

	"github.com/esoft-edu/campus-idm/pkg/forgotpassword"
	forgotpasswordapi "github.com/esoft-edu/campus-idm/pkg/forgotpassword/api"
	"github.com/esoft-edu/campus-idm/pkg/identity"
	"github.com/esoft-edu/campus-idm/pkg/login"
	loginapi "github.com/esoft-edu/campus-idm/pkg/login/api"
	"github.com/esoft-edu/campus-idm/pkg/notification"
	"github.com/esoft-edu/campus-idm/pkg/passcode"
	"github.com/esoft-edu/campus-idm/pkg/password"
	"github.com/esoft-edu/campus-idm/pkg/signup"
	signupapi "github.com/esoft-edu/campus-idm/pkg/signup/api"
	"github.com/esoft-edu/campus-idm/pkg/temppassword"
	temppasswordapi "github.com/esoft-edu/campus-idm/pkg/temppassword/api"
	"github.com/esoft-edu/campus-idm/pkg/tokens"
)

const issuer = "campus-idm-dev"

// logNotifier prints outgoing notices to the log so codes and
// temporary passwords are visible without an SMTP server.
type logNotifier struct{}

func (n *logNotifier) Send(noticeType notification.NoticeType, data notification.NotificationData, template notification.NoticeTemplate) error {
	slog.Info("Notice", "type", noticeType, "to", data.To, "data", data.Data)
	return nil
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting in-memory identity service (no database required)")
	slog.Info(strings.Repeat("=", 60))

	staffRepo := identity.NewInMemStaffRepository()
	studentRepo := identity.NewInMemStudentRepository()

	hasher := password.NewBcryptHasher()

	seedInitialData(staffRepo, studentRepo, hasher)

	secrets := tokens.Secrets{
		Staff:   "inmem-dev-staff-secret",
		Admin:   "inmem-dev-admin-secret",
		Student: "inmem-dev-student-secret",
	}
	tokenService := tokens.NewService(secrets, issuer)

	// Codes and temp passwords land in the log instead of a mailbox.
	notificationManager, err := notification.NewNotificationManagerWithOptions(
		notification.WithDefaultTemplates(),
	)
	if err != nil {
		slog.Error("Failed creating notification manager", "err", err)
		os.Exit(-1)
	}
	notificationManager.RegisterNotifier(notification.EmailSystem, &logNotifier{})

	codeService := passcode.NewService(
		identity.NewRecoveryStore(staffRepo, studentRepo),
		hasher,
	)

	loginService := login.NewService(staffRepo, studentRepo, tokenService, hasher, login.DefaultConfig())
	forgotService := forgotpassword.NewService(
		staffRepo, studentRepo, codeService, tokenService, hasher, notificationManager, forgotpassword.DefaultConfig(),
	)
	tempService := temppassword.NewService(
		staffRepo, codeService, tokenService, hasher, notificationManager, temppassword.DefaultConfig(),
	)
	signupService := signup.NewService(
		staffRepo, studentRepo, hasher, notificationManager, "support@esoft.com",
	)

	server := app.NewApp(app.WithPort(4000))

	server.R.Mount("/login", loginapi.Routes(loginapi.NewHandler(loginService)))
	server.R.Mount("/forgot-password", forgotpasswordapi.Routes(forgotpasswordapi.NewHandler(forgotService)))
	server.R.Mount("/temp-password", temppasswordapi.Routes(temppasswordapi.NewHandler(tempService)))
	server.R.Mount("/signup", signupapi.Routes(signupapi.NewHandler(signupService)))

	slog.Info(strings.Repeat("=", 60))
	slog.Info("In-memory identity service ready on :4000")
	slog.Info("")
	slog.Info("Test credentials:")
	slog.Info("  Staff:   staffId ST-1001, password password123")
	slog.Info("  Student: eNumber E123456, password password123")
	slog.Info("")
	slog.Info("Endpoints:")
	slog.Info("  POST /login                   - Staff/admin login")
	slog.Info("  POST /login/student           - Student login")
	slog.Info("  POST /forgot-password/request - Start password recovery")
	slog.Info("  POST /signup/staff-request    - Submit a staff request")
	slog.Info(strings.Repeat("=", 60))

	server.Run()
}

func seedInitialData(staffRepo *identity.InMemStaffRepository, studentRepo *identity.InMemStudentRepository, hasher password.Hasher) {
	ctx := context.Background()

	hash, err := hasher.Hash("password123")
	if err != nil {
		slog.Error("Failed hashing seed password", "err", err)
		os.Exit(-1)
	}

	admin, err := staffRepo.Create(ctx, identity.StaffAccount{
		StaffID:      "ST-1001",
		FullName:     "Dev Admin",
		Email:        "admin@esoft.com",
		Role:         identity.RoleAdmin,
		PasswordHash: hash,
		Approved:     true,
	})
	if err != nil {
		slog.Error("Failed seeding admin", "err", err)
		os.Exit(-1)
	}
	slog.Info("Seeded admin", "id", admin.ID, "staffId", admin.StaffID)

	student, err := studentRepo.Create(ctx, identity.StudentAccount{
		ENumber:      "E123456",
		FullName:     "Dev Student",
		Email:        "student@esoft.com",
		PasswordHash: hash,
	})
	if err != nil {
		slog.Error("Failed seeding student", "err", err)
		os.Exit(-1)
	}
	slog.Info("Seeded student", "id", student.ID, "eNumber", student.ENumber)
}
