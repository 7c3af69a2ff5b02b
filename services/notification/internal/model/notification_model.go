package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationModel rows are unique per (entity_id, type, due_date). Rows
// without a due date never collide because NULLs are distinct.
type NotificationModel struct {
	ID          string                       `gorm:"column:id;type:uuid;primaryKey"`
	Type        string                       `gorm:"column:type;type:varchar(50);not null;uniqueIndex:idx_notifications_dedup_key,priority:2"`
	Message     string                       `gorm:"column:message;type:text;not null"`
	EntityID    string                       `gorm:"column:entity_id;type:varchar(64);uniqueIndex:idx_notifications_dedup_key,priority:1"`
	EntityModel string                       `gorm:"column:entity_model;type:varchar(30)"`
	DueDate     *time.Time                   `gorm:"column:due_date;uniqueIndex:idx_notifications_dedup_key,priority:3"`
	Metadata    datatypes.JSONMap            `gorm:"column:metadata"`
	Recipients  []NotificationRecipientModel `gorm:"foreignKey:NotificationID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time                    `gorm:"column:created_at;index"`
}

func (NotificationModel) TableName() string {
	return "notifications"
}

func (n *NotificationModel) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

type NotificationRecipientModel struct {
	NotificationID string     `gorm:"column:notification_id;type:uuid;primaryKey"`
	UserID         string     `gorm:"column:user_id;type:uuid;primaryKey;index:idx_notification_recipients_user_read,priority:1"`
	IsRead         bool       `gorm:"column:is_read;not null;default:false;index:idx_notification_recipients_user_read,priority:2"`
	ReadAt         *time.Time `gorm:"column:read_at"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
}

func (NotificationRecipientModel) TableName() string {
	return "notification_recipients"
}
