// Package mailer delivers contact notifications by SMTP, or logs them when
// no SMTP server is configured.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/powermaps/contact/internal/config"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type Message struct {
	To          []string
	ReplyTo     string
	ReplyToName string
	Subject     string
	HTMLBody    string
	TextBody    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New picks the SMTP sender when cfg.Host is set and the logging sender otherwise.
func New(cfg config.MailerConfig, log *zap.Logger) Sender {
	if cfg.Host == "" {
		log.Warn("MAILER_HOST not set, contact emails will only be logged")
		return NewLogSender(log)
	}
	return NewSMTPSender(cfg)
}

type SMTPSender struct {
	cfg    config.MailerConfig
	dialer *gomail.Dialer
}

var _ Sender = (*SMTPSender)(nil)

func NewSMTPSender(cfg config.MailerConfig) *SMTPSender {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Login, cfg.Password)

	dialer.TLSConfig = &tls.Config{
		ServerName: cfg.Host,
		MinVersion: tls.VersionTLS12,
	}

	return &SMTPSender{
		cfg:    cfg,
		dialer: dialer,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.dialer.DialAndSend(buildMessage(s.cfg, msg)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func buildMessage(cfg config.MailerConfig, msg Message) *gomail.Message {
	m := gomail.NewMessage(
		gomail.SetCharset("UTF-8"),
		gomail.SetEncoding(gomail.Base64),
	)

	m.SetAddressHeader("From", cfg.From, cfg.FromName)
	m.SetHeader("To", msg.To...)
	if msg.ReplyTo != "" {
		m.SetAddressHeader("Reply-To", msg.ReplyTo, msg.ReplyToName)
	}
	m.SetHeader("Subject", msg.Subject)

	if msg.TextBody != "" {
		m.SetBody("text/plain", msg.TextBody)
		m.AddAlternative("text/html", msg.HTMLBody)
	} else {
		m.SetBody("text/html", msg.HTMLBody)
	}

	return m
}

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	log *zap.Logger
}

var _ Sender = (*LogSender)(nil)

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.log.Info("email not sent, no SMTP server configured",
		zap.Strings("to", msg.To),
		zap.String("reply_to", msg.ReplyTo),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.TextBody),
	)
	return nil
}
