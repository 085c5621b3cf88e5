package email

// Notifier is what the rest of the backend needs from the mailer.
type Notifier interface {
	SendWelcomeEmail(to string, data WelcomeEmailData) error
	SendSubscriptionStartedEmail(to string, data SubscriptionEmailData) error
	SendSubscriptionCancelledEmail(to string, data SubscriptionCancelledData) error
	SendSubscriptionExpiryWarning(to string, data SubscriptionExpiryWarningData) error
	SendDowngradeNotice(to string, data DowngradeNoticeData) error
}

// Nop discards every message. It is used when no API key is configured.
type Nop struct{}

func (Nop) SendWelcomeEmail(string, WelcomeEmailData) error                           { return nil }
func (Nop) SendSubscriptionStartedEmail(string, SubscriptionEmailData) error          { return nil }
func (Nop) SendSubscriptionCancelledEmail(string, SubscriptionCancelledData) error    { return nil }
func (Nop) SendSubscriptionExpiryWarning(string, SubscriptionExpiryWarningData) error { return nil }
func (Nop) SendDowngradeNotice(string, DowngradeNoticeData) error                     { return nil }

var (
	_ Notifier = (*EmailService)(nil)
	_ Notifier = Nop{}
)
