package email

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/mediminder/mediminder-api/pkg/logger"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// Service mails dose reminders to configured caregiver addresses. It is an
// optional delivery channel: with no host or recipients configured the
// dispatcher simply skips it.
type Service struct {
	dialer *gomail.Dialer
	cfg    Config
	logger *logger.Logger
}

func NewService(cfg Config, log *logger.Logger) *Service {
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	return &Service{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		cfg:    cfg,
		logger: log.WithComponent("email"),
	}
}

func (s *Service) Enabled() bool {
	return s.cfg.Host != "" && len(s.cfg.To) > 0
}

// SendDoseReminder mails one reminder to every configured recipient.
func (s *Service) SendDoseReminder(title, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", s.cfg.To...)
	m.SetHeader("Subject", title)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send reminder email: %w", err)
	}
	s.logger.Debug("reminder email sent", "recipients", len(s.cfg.To))
	return nil
}
