package notification

import (
	"testing"
)

func TestNewNotificationManager(t *testing.T) {
	nm := NewNotificationManager()
	if nm == nil {
		t.Fatal("NewNotificationManager returned nil")
	}
	if nm.notifiers == nil {
		t.Error("notifiers map not initialized")
	}
	if nm.notificationRegistry == nil {
		t.Error("notificationRegistry map not initialized")
	}
}

func TestRegisterNotifier(t *testing.T) {
	nm := NewNotificationManager()
	mockNotifier := &MockNotifier{}

	nm.RegisterNotifier(EmailSystem, mockNotifier)
	if n, exists := nm.notifiers[EmailSystem]; !exists {
		t.Error("Notifier not registered")
	} else if n != mockNotifier {
		t.Error("Wrong notifier registered")
	}

	// Re-registering overwrites
	newMockNotifier := &MockNotifier{}
	nm.RegisterNotifier(EmailSystem, newMockNotifier)
	if n := nm.notifiers[EmailSystem]; n != newMockNotifier {
		t.Error("Notifier not overwritten")
	}
}

func TestRegisterNotification(t *testing.T) {
	nm := NewNotificationManager()

	tests := []struct {
		name        string
		noticeType  NoticeType
		system      NotificationSystem
		template    NoticeTemplate
		shouldError bool
	}{
		{
			name:        "Valid registration with both Text and Html",
			noticeType:  ExampleNotice,
			system:      EmailSystem,
			template:    NoticeTemplate{Subject: "Example", Text: "body", Html: "<p>body</p>"},
			shouldError: false,
		},
		{
			name:        "Valid registration with Text only",
			noticeType:  ExampleNotice,
			system:      EmailSystem,
			template:    NoticeTemplate{Subject: "Example", Text: "body"},
			shouldError: false,
		},
		{
			name:        "Valid registration with Html only",
			noticeType:  ExampleNotice,
			system:      EmailSystem,
			template:    NoticeTemplate{Subject: "Example", Html: "<p>body</p>"},
			shouldError: false,
		},
		{
			name:        "Empty notice type",
			noticeType:  "",
			system:      EmailSystem,
			template:    NoticeTemplate{Subject: "Example", Text: "body"},
			shouldError: true,
		},
		{
			name:        "Empty system",
			noticeType:  ExampleNotice,
			system:      "",
			template:    NoticeTemplate{Subject: "Example", Text: "body"},
			shouldError: true,
		},
		{
			name:        "Empty subject",
			noticeType:  ExampleNotice,
			system:      EmailSystem,
			template:    NoticeTemplate{Text: "body"},
			shouldError: true,
		},
		{
			name:        "No content",
			noticeType:  ExampleNotice,
			system:      EmailSystem,
			template:    NoticeTemplate{Subject: "Example"},
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := nm.RegisterNotification(tt.noticeType, tt.system, tt.template)
			if tt.shouldError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.shouldError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if !tt.shouldError {
				if template, exists := nm.notificationRegistry[tt.noticeType][tt.system]; !exists {
					t.Error("Template not registered")
				} else if template.Subject != tt.template.Subject {
					t.Errorf("Wrong subject registered. Got %s, want %s", template.Subject, tt.template.Subject)
				}
			}
		})
	}
}

func TestSend(t *testing.T) {
	nm := NewNotificationManager()
	mockNotifier := &MockNotifier{}

	nm.RegisterNotifier(EmailSystem, mockNotifier)
	err := nm.RegisterNotification(ExampleNotice, EmailSystem, NoticeTemplate{
		Subject: "Example", Text: "body", Html: "<p>body</p>",
	})
	if err != nil {
		t.Fatalf("Failed to register notification: %v", err)
	}

	data := NotificationData{
		To:   "user@example.com",
		Data: map[string]string{"FullName": "Test Person"},
	}
	if err := nm.Send(ExampleNotice, data); err != nil {
		t.Errorf("Failed to send notification: %v", err)
	}

	if len(mockNotifier.SentNotifications) != 1 {
		t.Fatal("Notification not sent")
	}
	sent := mockNotifier.SentNotifications[0]
	if sent.To != data.To {
		t.Error("Notification recipient mismatch")
	}
	if sent.Data["FullName"] != "Test Person" {
		t.Error("Notification data mismatch")
	}
	if mockNotifier.SentTypes[0] != ExampleNotice {
		t.Error("Notification type mismatch")
	}
}

func TestSendErrors(t *testing.T) {
	nm := NewNotificationManager()

	// Unregistered notice type
	if err := nm.Send("unregistered", NotificationData{}); err == nil {
		t.Error("Expected error for unregistered notice type")
	}

	// Template registered but no notifier for the system
	err := nm.RegisterNotification(ExampleNotice, EmailSystem, NoticeTemplate{Subject: "Example", Text: "body"})
	if err != nil {
		t.Fatalf("Failed to register notification: %v", err)
	}
	err = nm.Send(ExampleNotice, NotificationData{})
	if err == nil {
		t.Error("Expected error for missing notifier")
	} else if err.Error() != "no notifier registered for system: email" {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestDefaultTemplates(t *testing.T) {
	nm, err := NewNotificationManagerWithOptions(WithDefaultTemplates())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	for _, noticeType := range []NoticeType{VerificationCodeNotice, PasswordChangedNotice, TemporaryPasswordNotice} {
		template, exists := nm.notificationRegistry[noticeType][EmailSystem]
		if !exists {
			t.Errorf("No email template registered for %s", noticeType)
			continue
		}
		if template.Subject == "" || template.Html == "" {
			t.Errorf("Incomplete template for %s", noticeType)
		}
	}
}
