package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleMember UserRole = "member"
	RoleAdmin  UserRole = "admin"
)

type User struct {
	ID                      string            `gorm:"type:uuid;primary_key" json:"id"`
	Email                   string            `gorm:"uniqueIndex;not null" json:"email"`
	Username                string            `gorm:"uniqueIndex;not null" json:"username"`
	Password                string            `gorm:"not null" json:"-"`
	Role                    UserRole          `gorm:"type:varchar(20);default:'member'" json:"role"`
	NotificationPreferences datatypes.JSONMap `json:"notification_preferences"`
	CreatedAt               time.Time         `json:"created_at"`
	UpdatedAt               time.Time         `json:"updated_at"`
	DeletedAt               gorm.DeletedAt    `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// WantsNotification reports whether the user accepts notifications of the
// given type. Only an explicit false opts out.
func (u *User) WantsNotification(notificationType string) bool {
	if u.NotificationPreferences == nil {
		return true
	}
	v, ok := u.NotificationPreferences[notificationType]
	if !ok {
		return true
	}
	enabled, isBool := v.(bool)
	return !isBool || enabled
}
