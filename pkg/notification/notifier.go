package notification

// NotificationSystem represents a delivery channel (e.g. email).
type NotificationSystem string

// NoticeType names one registered notification (e.g. "verification_code").
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"

	VerificationCodeNotice  NoticeType = "verification_code"
	PasswordChangedNotice   NoticeType = "password_changed"
	TemporaryPasswordNotice NoticeType = "temporary_password"
	ExampleNotice           NoticeType = "example"
)

// NotificationData is the per-send payload: a recipient plus the
// fields substituted into the registered template.
type NotificationData struct {
	To   string
	Data map[string]string
}

// NoticeTemplate holds the subject and body templates for one notice
// on one system. Html and Text are html/template sources.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

// Notifier delivers a rendered notice over one system.
type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
