// Package mailer содержит реализации pkg/mailer.EmailSender.
package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"gym-app/internal/config"
	"gym-app/pkg/logger"
	"gym-app/pkg/mailer"
)

var (
	_ mailer.EmailSender = (*SMTPSender)(nil)
	_ mailer.EmailSender = (*LogSender)(nil)
)

// SMTPSender отправляет письма через net/smtp.
type SMTPSender struct {
	cfg    *config.EmailConfig
	logger logger.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender создаёт новый SMTP-отправитель на основе EmailConfig.
func NewSMTPSender(cfg *config.EmailConfig, logger logger.Logger) *SMTPSender {
	return &SMTPSender{
		cfg:    cfg,
		logger: logger,
		send:   smtp.SendMail,
	}
}

// SendEmailVerification отправляет ссылку подтверждения email.
func (s *SMTPSender) SendEmailVerification(ctx context.Context, email, name, link string) error {
	body := fmt.Sprintf("Hola %s,\n\nConfirma tu email en el siguiente enlace:\n%s\n\nSi no te has registrado, ignora este mensaje.", name, link)
	return s.deliver(ctx, "verification", email, "Confirma tu email", body)
}

// SendPasswordReset отправляет ссылку сброса пароля.
func (s *SMTPSender) SendPasswordReset(ctx context.Context, email, name, link string) error {
	body := fmt.Sprintf("Hola %s,\n\nPara restablecer tu contraseña abre el siguiente enlace:\n%s\n\nEl enlace caduca en poco tiempo.", name, link)
	return s.deliver(ctx, "password_reset", email, "Restablecer contraseña", body)
}

// deliver отправляет письмо. net/smtp не принимает контекст, поэтому
// отменённый контекст проверяется только перед отправкой.
func (s *SMTPSender) deliver(ctx context.Context, kind, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.SMTPHost, strconv.Itoa(s.cfg.SMTPPort))
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}

	msg := buildMessage(s.cfg.FromEmail, to, subject, body)
	if err := s.send(addr, auth, s.cfg.FromEmail, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send %s email: %w", kind, err)
	}

	s.logger.Info("email sent", map[string]any{"kind": kind, "email": to})
	return nil
}

func buildMessage(from, to, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}

// LogSender пишет ссылки в лог вместо отправки. Используется при EMAIL_ENABLED=false.
type LogSender struct {
	logger logger.Logger
}

// NewLogSender создаёт LogSender.
func NewLogSender(logger logger.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendEmailVerification(_ context.Context, email, _, link string) error {
	s.logger.Info("email disabled, verification link", map[string]any{"email": email, "link": link})
	return nil
}

func (s *LogSender) SendPasswordReset(_ context.Context, email, _, link string) error {
	s.logger.Info("email disabled, password reset link", map[string]any{"email": email, "link": link})
	return nil
}

// New выбирает отправителя по конфигурации.
func New(cfg *config.EmailConfig, logger logger.Logger) mailer.EmailSender {
	if !cfg.Enabled {
		return NewLogSender(logger)
	}
	return NewSMTPSender(cfg, logger)
}
