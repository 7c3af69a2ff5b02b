package mailer

import (
	"context"
	"time"

	"taskflow/pkg/config"
	"taskflow/pkg/logger"
)

// Reminder is an overdue notice addressed to a single recipient.
type Reminder struct {
	To       string    `json:"to"`
	Kind     string    `json:"kind"`
	Title    string    `json:"title"`
	DueDate  time.Time `json:"due_date"`
	EntityID string    `json:"entity_id"`
	Link     string    `json:"link,omitempty"`
}

type Sender interface {
	SendReminder(ctx context.Context, r Reminder) error
}

// New returns an SMTP sender when SMTP_HOST is configured and a sender that
// only logs otherwise.
func New(cfg *config.Config, log *logger.Logger) Sender {
	if cfg.SMTPHost == "" {
		log.Warn("SMTP_HOST not set, reminder emails will only be logged")
		return &LogSender{logger: log}
	}
	return NewSMTPSender(SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		TLS:      cfg.SMTPTLS,
	})
}

type LogSender struct {
	logger *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{logger: log}
}

func (s *LogSender) SendReminder(_ context.Context, r Reminder) error {
	s.logger.Info("[MAIL] would send %s reminder for %q to %s", r.Kind, r.Title, r.To)
	return nil
}
