// Package notify delivers patient-facing emails about reservation changes.
package notify

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

const defaultFromName = "Agenda Clínica"

// EmailSender sends one email. SendGrid, SES and the stub are
// interchangeable.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a single-recipient email. HTML is optional.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
	HTML    string
}

// SendGridConfig holds SendGrid credentials and the sender identity.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// SendGridSender sends through the SendGrid v3 API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// NewSendGridSender returns nil when no API key is configured.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}
	html := msg.HTML
	if html == "" {
		html = msg.Body
	}
	message := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.fromEmail),
		msg.Subject,
		mail.NewEmail(msg.ToName, msg.To),
		msg.Body,
		html,
	)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid rejected email", "status", response.StatusCode, "body", response.Body)
		return fmt.Errorf("notify: sendgrid returned status %d", response.StatusCode)
	}
	s.logger.Info("email sent", "provider", "sendgrid", "subject", msg.Subject, "status", response.StatusCode)
	return nil
}

// StubEmailSender logs instead of sending. Used in development and tests.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	s.logger.Info("stub email sender: skipping send", "subject", msg.Subject)
	return nil
}

// SenderConfig selects and configures the email provider.
type SenderConfig struct {
	Provider  string
	SendGrid  SendGridConfig
	AWSRegion string
	SESFrom   string
	FromName  string
}

// NewSender builds the sender named by cfg.Provider ("sendgrid", "ses" or
// anything else for the stub). A provider without credentials falls back to
// the stub with a warning.
func NewSender(ctx context.Context, cfg SenderConfig, logger *logging.Logger) (EmailSender, error) {
	if logger == nil {
		logger = logging.Default()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "sendgrid":
		if cfg.SendGrid.FromName == "" {
			cfg.SendGrid.FromName = cfg.FromName
		}
		if sender := NewSendGridSender(cfg.SendGrid, logger); sender != nil {
			return sender, nil
		}
		logger.Warn("SENDGRID_API_KEY not set; emails disabled")
	case "ses":
		if cfg.SESFrom == "" {
			logger.Warn("SES_FROM_EMAIL not set; emails disabled")
			break
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("notify: load aws config: %w", err)
		}
		return NewSESSender(sesv2.NewFromConfig(awsCfg), SESConfig{FromEmail: cfg.SESFrom, FromName: cfg.FromName}, logger), nil
	}
	return NewStubEmailSender(logger), nil
}
