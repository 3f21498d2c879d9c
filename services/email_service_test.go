package services

import (
	"testing"

	"paylio/config"
)

func TestEmailServiceDisabledSkipsDelivery(t *testing.T) {
	cfg := &config.Config{}
	cfg.SMTP.Enabled = false
	// Недоступный адрес: при попытке соединения тест упал бы с ошибкой
	cfg.SMTP.Host = "127.0.0.1"
	cfg.SMTP.Port = 1
	cfg.SMTP.From = "noreply@example.com"

	svc := NewEmailService(cfg)
	if err := svc.SendKYCSubmitted("client@example.com", "Jane <Doe>"); err != nil {
		t.Errorf("SendKYCSubmitted() error = %v, want nil when SMTP is disabled", err)
	}
}

func TestEmailServiceEnabledReportsDialError(t *testing.T) {
	cfg := &config.Config{}
	cfg.SMTP.Enabled = true
	cfg.SMTP.Host = "127.0.0.1"
	cfg.SMTP.Port = 1
	cfg.SMTP.From = "noreply@example.com"

	svc := NewEmailService(cfg)
	if err := svc.SendEmail("client@example.com", "subject", "<p>body</p>"); err == nil {
		t.Error("SendEmail() error = nil, want dial error")
	}
}
