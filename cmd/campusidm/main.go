package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jinzhu/copier"
	"github.com/joho/godotenv"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"

	"github.com/esoft-edu/campus-idm/pkg/forgotpassword"
	forgotpasswordapi "github.com/esoft-edu/campus-idm/pkg/forgotpassword/api"
	"github.com/esoft-edu/campus-idm/pkg/identity"
	"github.com/esoft-edu/campus-idm/pkg/login"
	loginapi "github.com/esoft-edu/campus-idm/pkg/login/api"
	"github.com/esoft-edu/campus-idm/pkg/notification"
	"github.com/esoft-edu/campus-idm/pkg/passcode"
	"github.com/esoft-edu/campus-idm/pkg/password"
	"github.com/esoft-edu/campus-idm/pkg/ratelimit"
	"github.com/esoft-edu/campus-idm/pkg/signup"
	signupapi "github.com/esoft-edu/campus-idm/pkg/signup/api"
	"github.com/esoft-edu/campus-idm/pkg/temppassword"
	temppasswordapi "github.com/esoft-edu/campus-idm/pkg/temppassword/api"
	"github.com/esoft-edu/campus-idm/pkg/tokens"
)

type IdmDbConfig struct {
	Host     string `env:"IDM_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"IDM_PG_PORT" env-default:"5432"`
	Database string `env:"IDM_PG_DATABASE" env-default:"campus_idm"`
	User     string `env:"IDM_PG_USER" env-default:"idm"`
	Password string `env:"IDM_PG_PASSWORD" env-default:"pwd"`
}

type JwtConfig struct {
	StaffSecret   string        `env:"JWT_STAFF_SECRET" env-default:"very-secure-staff-secret"`
	AdminSecret   string        `env:"JWT_ADMIN_SECRET" env-default:"very-secure-admin-secret"`
	StudentSecret string        `env:"JWT_STUDENT_SECRET" env-default:"very-secure-student-secret"`
	Issuer        string        `env:"JWT_ISSUER" env-default:"campus-idm"`
	AccessTTL     time.Duration `env:"JWT_ACCESS_TTL" env-default:"24h"`
	RememberMeTTL time.Duration `env:"JWT_REMEMBER_ME_TTL" env-default:"168h"`
	TempTokenTTL  time.Duration `env:"JWT_TEMP_TOKEN_TTL" env-default:"30m"`
}

type EmailConfig struct {
	Host     string `env:"EMAIL_HOST" env-default:"localhost"`
	Port     int    `env:"EMAIL_PORT" env-default:"1025"`
	Username string `env:"EMAIL_USERNAME" env-default:"noreply@esoft.com"`
	Password string `env:"EMAIL_PASSWORD" env-default:"pwd"`
	From     string `env:"EMAIL_FROM" env-default:"noreply@esoft.com"`
	TLS      bool   `env:"EMAIL_TLS" env-default:"false"`
}

type RateLimitConfig struct {
	Enabled         bool    `env:"RATELIMIT_ENABLED" env-default:"true"`
	PerIPCapacity   int     `env:"RATELIMIT_PER_IP_CAPACITY" env-default:"100"`
	PerIPRefillRate float64 `env:"RATELIMIT_PER_IP_REFILL_RATE" env-default:"1.67"`
}

type RecoveryConfig struct {
	CodeExpiry   time.Duration `env:"RECOVERY_CODE_EXPIRY" env-default:"10m"`
	MaxAttempts  int           `env:"RECOVERY_CODE_MAX_ATTEMPTS" env-default:"3"`
	SupportEmail string        `env:"SUPPORT_EMAIL" env-default:"support@esoft.com"`
}

type Config struct {
	IdmDbConfig     IdmDbConfig
	AppConfig       app.AppConfig
	JwtConfig       JwtConfig
	EmailConfig     EmailConfig
	RateLimitConfig RateLimitConfig
	RecoveryConfig  RecoveryConfig
}

func (d IdmDbConfig) toDbConfig() dbutils.DbConfig {
	dbConfig := dbutils.DbConfig{}
	copier.Copy(&dbConfig, &d)
	return dbConfig
}

// loadEnvFile loads a .env file from the working directory if present.
// Variables already set in the environment win.
func loadEnvFile() {
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		return
	}
	if err := godotenv.Load(".env"); err != nil {
		slog.Error("Failed to load .env file", "err", err)
	}
}

func main() {

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	loadEnvFile()

	config := Config{}
	cleanenv.ReadEnv(&config)

	server := app.DefaultApp()

	app.RegisterHealthzRoutes(server.R)

	if config.RateLimitConfig.Enabled {
		rateLimitConfig := ratelimit.DefaultConfig()
		rateLimitConfig.PerIPCapacity = config.RateLimitConfig.PerIPCapacity
		rateLimitConfig.PerIPRefillRate = config.RateLimitConfig.PerIPRefillRate
		server.R.Use(ratelimit.NewMiddleware(rateLimitConfig).Handler)
	}

	dbConfig := config.IdmDbConfig.toDbConfig()
	pool, err := dbutils.NewDbPool(context.Background(), dbConfig)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
		os.Exit(-1)
	}

	staffRepo := identity.NewPostgresStaffRepository(pool)
	studentRepo := identity.NewPostgresStudentRepository(pool)

	notificationManager, err := notification.NewNotificationManagerWithOptions(
		notification.WithSMTP(notification.SMTPConfig{
			Host:     config.EmailConfig.Host,
			Port:     config.EmailConfig.Port,
			TLS:      config.EmailConfig.TLS,
			Username: config.EmailConfig.Username,
			Password: config.EmailConfig.Password,
			From:     config.EmailConfig.From,
		}),
		notification.WithDefaultTemplates(),
	)
	if err != nil {
		slog.Error("Failed creating notification manager", "err", err)
		os.Exit(-1)
	}

	hasher := password.NewBcryptHasher()

	codeService := passcode.NewService(
		identity.NewRecoveryStore(staffRepo, studentRepo),
		hasher,
		passcode.WithExpiry(config.RecoveryConfig.CodeExpiry),
		passcode.WithMaxAttempts(config.RecoveryConfig.MaxAttempts),
	)

	tokenService := tokens.NewService(tokens.Secrets{
		Staff:   config.JwtConfig.StaffSecret,
		Admin:   config.JwtConfig.AdminSecret,
		Student: config.JwtConfig.StudentSecret,
	}, config.JwtConfig.Issuer)

	loginConfig := login.Config{
		AccessTTL:     config.JwtConfig.AccessTTL,
		RememberMeTTL: config.JwtConfig.RememberMeTTL,
		TempTokenTTL:  config.JwtConfig.TempTokenTTL,
	}
	loginService := login.NewService(staffRepo, studentRepo, tokenService, hasher, loginConfig)

	forgotConfig := forgotpassword.DefaultConfig()
	forgotConfig.SupportEmail = config.RecoveryConfig.SupportEmail
	forgotService := forgotpassword.NewService(
		staffRepo, studentRepo, codeService, tokenService, hasher, notificationManager, forgotConfig,
	)

	tempConfig := temppassword.DefaultConfig()
	tempConfig.SupportEmail = config.RecoveryConfig.SupportEmail
	tempService := temppassword.NewService(
		staffRepo, codeService, tokenService, hasher, notificationManager, tempConfig,
	)

	signupService := signup.NewService(
		staffRepo, studentRepo, hasher, notificationManager, config.RecoveryConfig.SupportEmail,
	)

	server.R.Mount("/login", loginapi.Routes(loginapi.NewHandler(loginService)))
	server.R.Mount("/forgot-password", forgotpasswordapi.Routes(forgotpasswordapi.NewHandler(forgotService)))
	server.R.Mount("/temp-password", temppasswordapi.Routes(temppasswordapi.NewHandler(tempService)))
	server.R.Mount("/signup", signupapi.Routes(signupapi.NewHandler(signupService)))

	server.Run()
}
