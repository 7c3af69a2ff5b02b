package persistent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskflow/services/notification/internal/entity"
	"taskflow/services/notification/internal/model"

	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) (*entity.Notification, error)
	FindByKey(ctx context.Context, entityID string, notificationType entity.Type, dueDate time.Time) (*entity.Notification, error)
	GetByID(ctx context.Context, id string) (*entity.Notification, error)
	ListForRecipient(ctx context.Context, filter entity.ListFilter) ([]*entity.Notification, int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id, userID string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error)
	DeleteForRecipient(ctx context.Context, id, userID string) error
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create stores the record and its recipient rows in one transaction.
// A record with an existing (entity_id, type, due_date) key yields ErrDuplicate.
func (r *notificationRepository) Create(ctx context.Context, n *entity.Notification) (*entity.Notification, error) {
	m := ToNotificationModel(n)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(m).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return ToNotificationEntity(m), nil
}

func (r *notificationRepository) FindByKey(ctx context.Context, entityID string, notificationType entity.Type, dueDate time.Time) (*entity.Notification, error) {
	var m model.NotificationModel
	err := r.db.WithContext(ctx).
		Where("entity_id = ? AND type = ? AND due_date = ?", entityID, string(notificationType), dueDate.UTC()).
		Preload("Recipients").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find notification by key: %w", err)
	}
	return ToNotificationEntity(&m), nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*entity.Notification, error) {
	var m model.NotificationModel
	if err := r.db.WithContext(ctx).Preload("Recipients").Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return ToNotificationEntity(&m), nil
}

func addressedTo(userID string, read *bool) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Joins("JOIN notification_recipients nr ON nr.notification_id = notifications.id").
			Where("nr.user_id = ?", userID)
		if read != nil {
			db = db.Where("nr.is_read = ?", *read)
		}
		return db
	}
}

// ListForRecipient returns the user's page of notifications, newest first,
// each carrying only that user's recipient row.
func (r *notificationRepository) ListForRecipient(ctx context.Context, filter entity.ListFilter) ([]*entity.Notification, int64, error) {
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&model.NotificationModel{}).Scopes(addressedTo(filter.UserID, filter.Read)).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	var models []model.NotificationModel
	err := db.Select("notifications.*").
		Scopes(addressedTo(filter.UserID, filter.Read)).
		Preload("Recipients", "user_id = ?", filter.UserID).
		Order("notifications.created_at DESC").
		Order("notifications.id").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&models).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	notifications := make([]*entity.Notification, len(models))
	for i := range models {
		notifications[i] = ToNotificationEntity(&models[i]).ForRecipient(filter.UserID)
	}
	return notifications, total, nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.NotificationRecipientModel{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flips only userID's read flag. Marking an already read entry is a no-op.
func (r *notificationRepository) MarkRead(ctx context.Context, id, userID string, at time.Time) error {
	var recipient model.NotificationRecipientModel
	db := r.db.WithContext(ctx)
	if err := db.Where("notification_id = ? AND user_id = ?", id, userID).First(&recipient).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to find recipient: %w", err)
	}
	if recipient.IsRead {
		return nil
	}

	readAt := at.UTC()
	err := db.Model(&model.NotificationRecipientModel{}).
		Where("notification_id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": readAt}).Error
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.NotificationRecipientModel{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at.UTC()})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark all notifications read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteForRecipient removes userID from the record and drops the record
// once nobody is left on it.
func (r *notificationRepository) DeleteForRecipient(ctx context.Context, id, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("notification_id = ? AND user_id = ?", id, userID).Delete(&model.NotificationRecipientModel{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete recipient: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		var remaining int64
		if err := tx.Model(&model.NotificationRecipientModel{}).Where("notification_id = ?", id).Count(&remaining).Error; err != nil {
			return fmt.Errorf("failed to count recipients: %w", err)
		}
		if remaining == 0 {
			if err := tx.Where("id = ?", id).Delete(&model.NotificationModel{}).Error; err != nil {
				return fmt.Errorf("failed to delete notification: %w", err)
			}
		}
		return nil
	})
}
