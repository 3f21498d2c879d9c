package services

import (
	"fmt"
	"html"
	"time"

	"paylio/config"
	"paylio/utils"

	"gopkg.in/gomail.v2"
)

// EmailService предоставляет методы для отправки email
type EmailService struct {
	dialer  *gomail.Dialer
	from    string
	enabled bool
}

// NewEmailService создает новый экземпляр EmailService.
// При SMTP_ENABLED=false письма только логируются.
func NewEmailService(cfg *config.Config) *EmailService {
	dialer := gomail.NewDialer(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Username,
		cfg.SMTP.Password,
	)

	return &EmailService{
		dialer:  dialer,
		from:    cfg.SMTP.From,
		enabled: cfg.SMTP.Enabled,
	}
}

// SendEmail отправляет email
func (s *EmailService) SendEmail(to, subject, body string) error {
	if !s.enabled {
		utils.LogDebug("SMTP отключен, письмо %q для %s не отправлено", subject, to)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("ошибка отправки email: %v", err)
	}

	return nil
}

// SendKYCSubmitted уведомляет клиента о том, что анкета KYC принята на проверку
func (s *EmailService) SendKYCSubmitted(to, fullName string) error {
	subject := "KYC form received"
	body := fmt.Sprintf(`
		<h2>Hello, %s</h2>
		<p>Your KYC form was submitted successfully and is now in review.</p>
		<p>Date: %s</p>
	`, html.EscapeString(fullName), time.Now().Format("02.01.2006 15:04:05"))

	return s.SendEmail(to, subject, body)
}
