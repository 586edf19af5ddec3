package mailer

import "context"

// EmailSender описывает контракт для отправки писем со ссылками подтверждения.
type EmailSender interface {
	// SendEmailVerification отправляет ссылку подтверждения email после регистрации.
	SendEmailVerification(ctx context.Context, email, name, link string) error

	// SendPasswordReset отправляет ссылку для сброса пароля.
	SendPasswordReset(ctx context.Context, email, name, link string) error
}
