package entity

import "time"

type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxProcessed OutboxStatus = "processed"
	OutboxFailed    OutboxStatus = "failed"
)

const EventOverdueReminder = "overdue_reminder"

// OutboxMessage is a queued side effect, currently always a reminder email.
type OutboxMessage struct {
	ID            string
	EventType     string
	Payload       []byte
	Status        OutboxStatus
	RetryCount    int
	LastError     string
	NextAttemptAt *time.Time
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}
