package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OutboxEventModel struct {
	ID            string         `gorm:"column:id;type:uuid;primaryKey"`
	EventType     string         `gorm:"column:event_type;type:varchar(50);not null"`
	Payload       datatypes.JSON `gorm:"column:payload;not null"`
	Status        string         `gorm:"column:status;type:varchar(20);not null;default:'pending';index:idx_outbox_status_created,priority:1"`
	RetryCount    int            `gorm:"column:retry_count;not null;default:0"`
	LastError     string         `gorm:"column:last_error;type:text"`
	NextAttemptAt *time.Time     `gorm:"column:next_attempt_at"`
	CreatedAt     time.Time      `gorm:"column:created_at;index:idx_outbox_status_created,priority:2"`
	ProcessedAt   *time.Time     `gorm:"column:processed_at"`
}

func (OutboxEventModel) TableName() string {
	return "outbox_events"
}

func (o *OutboxEventModel) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}

// All lists the models owned by the notification service.
func All() []interface{} {
	return []interface{}{
		&NotificationModel{},
		&NotificationRecipientModel{},
		&OutboxEventModel{},
	}
}
