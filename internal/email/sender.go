// Package email renders and delivers LeadBridge notification emails.
package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"leadbridge/platform/config"
)

// Sender delivers one rendered HTML email.
type Sender interface {
	Send(ctx context.Context, toEmail, subject, htmlContent string) error
}

type NoopSender struct{}

func (NoopSender) Send(ctx context.Context, toEmail, subject, htmlContent string) error {
	return nil
}

// NewSender picks the delivery provider from configuration. Disabled email
// yields a NoopSender.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}
	if strings.TrimSpace(cfg.GetEmailFromAddress()) == "" {
		return nil, fmt.Errorf("email enabled but EMAIL_FROM_ADDRESS is empty")
	}

	switch cfg.GetEmailProvider() {
	case config.EmailProviderSMTP:
		if cfg.GetSMTPHost() == "" {
			return nil, fmt.Errorf("smtp provider selected but SMTP_HOST is empty")
		}
		return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(), cfg.GetEmailFromAddress(), cfg.GetEmailFromName()), nil
	case config.EmailProviderBrevo, "":
		if cfg.GetBrevoAPIKey() == "" {
			return nil, fmt.Errorf("brevo provider selected but BREVO_API_KEY is empty")
		}
		return NewBrevoSender(cfg.GetBrevoAPIKey(), cfg.GetEmailFromAddress(), cfg.GetEmailFromName(), 10*time.Second), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.GetEmailProvider())
	}
}
