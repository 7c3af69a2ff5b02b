package persistent

import (
	"context"
	"fmt"
	"time"

	"taskflow/services/notification/internal/entity"
	"taskflow/services/notification/internal/model"

	"gorm.io/gorm"
)

type OutboxRepository interface {
	Enqueue(ctx context.Context, messages []*entity.OutboxMessage) error
	FetchDue(ctx context.Context, now time.Time, limit int) ([]*entity.OutboxMessage, error)
	MarkProcessed(ctx context.Context, id string, at time.Time) error
	MarkRetry(ctx context.Context, id string, retryCount int, lastError string, nextAttemptAt time.Time) error
	MarkFailed(ctx context.Context, id string, retryCount int, lastError string) error
}

type outboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Enqueue(ctx context.Context, messages []*entity.OutboxMessage) error {
	if len(messages) == 0 {
		return nil
	}

	rows := make([]*model.OutboxEventModel, len(messages))
	for i, msg := range messages {
		rows[i] = ToOutboxModel(msg)
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to enqueue outbox events: %w", err)
	}
	for i, row := range rows {
		messages[i].ID = row.ID
		messages[i].CreatedAt = row.CreatedAt
	}
	return nil
}

// FetchDue returns pending events whose next attempt time has come, oldest first.
func (r *outboxRepository) FetchDue(ctx context.Context, now time.Time, limit int) ([]*entity.OutboxMessage, error) {
	var rows []model.OutboxEventModel
	err := r.db.WithContext(ctx).
		Where("status = ?", string(entity.OutboxPending)).
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now.UTC()).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outbox events: %w", err)
	}

	messages := make([]*entity.OutboxMessage, len(rows))
	for i := range rows {
		messages[i] = ToOutboxEntity(&rows[i])
	}
	return messages, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, map[string]interface{}{
		"status":       string(entity.OutboxProcessed),
		"processed_at": at.UTC(),
		"last_error":   "",
	})
}

func (r *outboxRepository) MarkRetry(ctx context.Context, id string, retryCount int, lastError string, nextAttemptAt time.Time) error {
	return r.update(ctx, id, map[string]interface{}{
		"retry_count":     retryCount,
		"last_error":      lastError,
		"next_attempt_at": nextAttemptAt.UTC(),
	})
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string, retryCount int, lastError string) error {
	return r.update(ctx, id, map[string]interface{}{
		"status":      string(entity.OutboxFailed),
		"retry_count": retryCount,
		"last_error":  lastError,
	})
}

func (r *outboxRepository) update(ctx context.Context, id string, values map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.OutboxEventModel{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return fmt.Errorf("failed to update outbox event %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

