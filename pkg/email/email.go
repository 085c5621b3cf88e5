package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const resendBaseURL = "https://api.resend.com"

var ErrMissingAPIKey = errors.New("resend API key is required")

// EmailService sends transactional mail through the Resend API.
type EmailService struct {
	client    *resty.Client
	from      string
	templates *template.Template
	log       *zap.Logger
}

type EmailData struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Html    string `json:"html"`
}

type resendError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Template data structures
type WelcomeEmailData struct {
	StoreName   string
	StoreURL    string
	PlanName    string
	TrialEndsAt *time.Time
}

type SubscriptionEmailData struct {
	StoreName   string
	PlanName    string
	MaxProducts int
	MaxOrders   int
	RenewsAt    *time.Time
}

type SubscriptionCancelledData struct {
	StoreName string
	PlanName  string
	EndsAt    *time.Time
}

type SubscriptionExpiryWarningData struct {
	StoreName  string
	PlanName   string
	DaysLeft   int
	ExpiryDate time.Time
	IsTrial    bool
}

type DowngradeNoticeData struct {
	StoreName   string
	FromPlan    string
	MaxProducts int
	MaxOrders   int
}

func NewEmailService(apiKey, from string, log *zap.Logger) (*EmailService, error) {
	return newEmailService(resendBaseURL, apiKey, from, log)
}

func newEmailService(baseURL, apiKey, from string, log *zap.Logger) (*EmailService, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if log == nil {
		log = zap.NewNop()
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("error loading email templates: %w", err)
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")

	return &EmailService{
		client:    client,
		from:      from,
		templates: templates,
		log:       log,
	}, nil
}

func (s *EmailService) sendTemplateEmail(to, subject, templateName string, data interface{}) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("template execution error: %w", err)
	}

	var apiErr resendError
	resp, err := s.client.R().
		SetBody(EmailData{
			From:    s.from,
			To:      to,
			Subject: subject,
			Html:    body.String(),
		}).
		SetError(&apiErr).
		Post("/emails")
	if err != nil {
		s.log.Error("email send failed", zap.String("to", to), zap.String("template", templateName), zap.Error(err))
		return fmt.Errorf("error sending email: %w", err)
	}
	if resp.IsError() {
		s.log.Error("resend API error",
			zap.String("to", to),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("message", apiErr.Message))
		return fmt.Errorf("resend API error: %d %s", resp.StatusCode(), apiErr.Message)
	}

	s.log.Info("email sent", zap.String("to", to), zap.String("template", templateName))
	return nil
}

func (s *EmailService) SendWelcomeEmail(to string, data WelcomeEmailData) error {
	return s.sendTemplateEmail(to, fmt.Sprintf("Welcome to %s", data.StoreName), "welcome.html", data)
}

func (s *EmailService) SendSubscriptionStartedEmail(to string, data SubscriptionEmailData) error {
	return s.sendTemplateEmail(to, fmt.Sprintf("Your %s plan is active", data.PlanName), "subscription_started.html", data)
}

func (s *EmailService) SendSubscriptionCancelledEmail(to string, data SubscriptionCancelledData) error {
	return s.sendTemplateEmail(to, "Your subscription has been cancelled", "subscription_cancelled.html", data)
}

func (s *EmailService) SendSubscriptionExpiryWarning(to string, data SubscriptionExpiryWarningData) error {
	subject := fmt.Sprintf("Your subscription expires in %d days", data.DaysLeft)
	if data.IsTrial {
		subject = fmt.Sprintf("Your trial ends in %d days", data.DaysLeft)
	}
	return s.sendTemplateEmail(to, subject, "subscription_expiry_warning.html", data)
}

func (s *EmailService) SendDowngradeNotice(to string, data DowngradeNoticeData) error {
	return s.sendTemplateEmail(to, fmt.Sprintf("%s moved to the Free plan", data.StoreName), "downgrade_notice.html", data)
}
