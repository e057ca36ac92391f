package email

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/FayezAlshami/DTC/internal/app/config"
	"github.com/FayezAlshami/DTC/internal/platform/logger"
	"gopkg.in/gomail.v2"
)

type SMTPSender struct {
	dialer *gomail.Dialer
	sender string
	logger logger.Logger
}

func NewSMTPSender(cfg config.SMTPConfig, log logger.Logger) *SMTPSender {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.Encryption == "tls" {
		serverName := cfg.ServerName
		if serverName == "" {
			serverName = cfg.Host
		}
		dialer.TLSConfig = &tls.Config{ServerName: serverName}
	}
	return &SMTPSender{
		dialer: dialer,
		sender: cfg.SenderEmail,
		logger: log,
	}
}

// Send delivers one message, honoring ctx cancellation while the dial and
// write are in flight.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			s.logger.Errorf("Failed to send email to %s: %v", to, err)
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
