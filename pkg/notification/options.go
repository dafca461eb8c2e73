package notification

import (
	"embed"
	"log/slog"
)

//go:embed templates/*
var templateFiles embed.FS

func loadTemplate(filename string) string {
	content, err := templateFiles.ReadFile(filename)
	if err != nil {
		slog.Error("Error reading template file!", "err", err, "filename", filename)
		return ""
	}
	return string(content)
}

// NotificationManagerOption is a function that configures a NotificationManager.
type NotificationManagerOption func(*NotificationManager) error

// WithSMTP adds an email notifier with the provided SMTP configuration.
func WithSMTP(config SMTPConfig) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		emailNotifier, err := NewEmailNotifier(config)
		if err != nil {
			return err
		}
		nm.RegisterNotifier(EmailSystem, emailNotifier)
		return nil
	}
}

// WithVerificationCodeTemplate registers the 6-digit code email.
func WithVerificationCodeTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(VerificationCodeNotice, EmailSystem, NoticeTemplate{
			Subject: "Your verification code",
			Html:    loadTemplate("templates/email/verification_code.html"),
		})
	}
}

// WithPasswordChangedTemplate registers the change confirmation email.
func WithPasswordChangedTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(PasswordChangedNotice, EmailSystem, NoticeTemplate{
			Subject: "Password changed successfully",
			Html:    loadTemplate("templates/email/password_changed.html"),
		})
	}
}

// WithTemporaryPasswordTemplate registers the approval email carrying
// the system-generated temporary password.
func WithTemporaryPasswordTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(TemporaryPasswordNotice, EmailSystem, NoticeTemplate{
			Subject: "Your account has been approved",
			Html:    loadTemplate("templates/email/temporary_password.html"),
		})
	}
}

// WithDefaultTemplates registers all default notification templates.
func WithDefaultTemplates() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		options := []NotificationManagerOption{
			WithVerificationCodeTemplate(),
			WithPasswordChangedTemplate(),
			WithTemporaryPasswordTemplate(),
		}

		for _, opt := range options {
			if err := opt(nm); err != nil {
				return err
			}
		}
		return nil
	}
}

// NewNotificationManagerWithOptions creates a manager with the provided options.
func NewNotificationManagerWithOptions(opts ...NotificationManagerOption) (*NotificationManager, error) {
	notificationManager := NewNotificationManager()

	for _, opt := range opts {
		if err := opt(notificationManager); err != nil {
			return nil, err
		}
	}

	return notificationManager, nil
}
