// Package mail отвечает за отправку писем: коды подтверждения,
// восстановление пароля и обращения в поддержку.
package mail

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/ignatzorin/escrow-backend/internal/config"
)

// Mailer отправляет письма.
type Mailer interface {
	SendVerificationCode(to, code string) error
	SendPasswordResetCode(to, code string) error
	SendContractInvite(to, contractTitle, clientName string) error
	SendContactMessage(fromName, fromEmail, subject, body string) error
}

// SMTPMailer отправляет письма через SMTP.
type SMTPMailer struct {
	dialer       *gomail.Dialer
	from         string
	contactInbox string
}

// NewSMTPMailer создаёт SMTP-отправитель из конфигурации.
func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		dialer:       gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:         cfg.MailFrom,
		contactInbox: cfg.ContactInbox,
	}
}

// SendVerificationCode отправляет код подтверждения email.
func (m *SMTPMailer) SendVerificationCode(to, code string) error {
	subject := "Подтверждение email"
	body := fmt.Sprintf("Ваш код подтверждения: %s\n\nКод действует 15 минут.", code)
	return m.send(to, subject, body)
}

// SendPasswordResetCode отправляет код восстановления пароля.
func (m *SMTPMailer) SendPasswordResetCode(to, code string) error {
	subject := "Восстановление пароля"
	body := fmt.Sprintf("Ваш код восстановления пароля: %s\n\nЕсли вы не запрашивали восстановление, проигнорируйте это письмо.", code)
	return m.send(to, subject, body)
}

// SendContractInvite приглашает исполнителя в контракт.
func (m *SMTPMailer) SendContractInvite(to, contractTitle, clientName string) error {
	subject := fmt.Sprintf("Приглашение в контракт «%s»", contractTitle)
	body := fmt.Sprintf("%s приглашает вас в контракт «%s».\n\nВойдите в личный кабинет, чтобы принять или отклонить приглашение.", clientName, contractTitle)
	return m.send(to, subject, body)
}

// SendContactMessage пересылает обращение пользователя в поддержку.
func (m *SMTPMailer) SendContactMessage(fromName, fromEmail, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.contactInbox)
	msg.SetHeader("Reply-To", fromEmail)
	msg.SetHeader("Subject", fmt.Sprintf("[Обращение] %s", subject))
	msg.SetBody("text/plain", fmt.Sprintf("От: %s <%s>\n\n%s", fromName, fromEmail, body))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("mail: отправка обращения %w", err)
	}
	return nil
}

func (m *SMTPMailer) send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("mail: отправка письма %w", err)
	}
	return nil
}

// NoopMailer используется, когда SMTP не настроен: письма не отправляются.
type NoopMailer struct{}

func (NoopMailer) SendVerificationCode(string, string) error               { return nil }
func (NoopMailer) SendPasswordResetCode(string, string) error              { return nil }
func (NoopMailer) SendContractInvite(string, string, string) error         { return nil }
func (NoopMailer) SendContactMessage(string, string, string, string) error { return nil }
