package persistent

import (
	"encoding/json"
	"time"

	"taskflow/pkg/models"
	"taskflow/services/notification/internal/entity"
	"taskflow/services/notification/internal/model"

	"gorm.io/datatypes"
)

func ToNotificationEntity(m *model.NotificationModel) *entity.Notification {
	if m == nil {
		return nil
	}

	n := &entity.Notification{
		ID:          m.ID,
		Type:        entity.Type(m.Type),
		Message:     m.Message,
		EntityID:    m.EntityID,
		EntityModel: m.EntityModel,
		DueDate:     m.DueDate,
		CreatedAt:   m.CreatedAt,
	}
	if len(m.Metadata) > 0 {
		n.Metadata = entity.Metadata(m.Metadata)
	}
	for _, r := range m.Recipients {
		n.Recipients = append(n.Recipients, entity.RecipientState{
			UserID: r.UserID,
			IsRead: r.IsRead,
			ReadAt: r.ReadAt,
		})
	}
	return n
}

func ToNotificationModel(e *entity.Notification) *model.NotificationModel {
	if e == nil {
		return nil
	}

	m := &model.NotificationModel{
		ID:          e.ID,
		Type:        string(e.Type),
		Message:     e.Message,
		EntityID:    e.EntityID,
		EntityModel: e.EntityModel,
		DueDate:     utcPtr(e.DueDate),
		CreatedAt:   e.CreatedAt,
	}
	if len(e.Metadata) > 0 {
		m.Metadata = datatypes.JSONMap(e.Metadata)
	}
	for _, r := range e.Recipients {
		m.Recipients = append(m.Recipients, model.NotificationRecipientModel{
			UserID: r.UserID,
			IsRead: r.IsRead,
			ReadAt: r.ReadAt,
		})
	}
	return m
}

func ToUserProfile(m *models.User) *entity.UserProfile {
	if m == nil {
		return nil
	}

	profile := &entity.UserProfile{
		ID:          m.ID,
		Email:       m.Email,
		Username:    m.Username,
		Preferences: make(map[string]bool, len(m.NotificationPreferences)),
	}
	for key := range m.NotificationPreferences {
		profile.Preferences[key] = m.WantsNotification(key)
	}
	return profile
}

func ToOutboxEntity(m *model.OutboxEventModel) *entity.OutboxMessage {
	if m == nil {
		return nil
	}

	return &entity.OutboxMessage{
		ID:            m.ID,
		EventType:     m.EventType,
		Payload:       []byte(m.Payload),
		Status:        entity.OutboxStatus(m.Status),
		RetryCount:    m.RetryCount,
		LastError:     m.LastError,
		NextAttemptAt: m.NextAttemptAt,
		CreatedAt:     m.CreatedAt,
		ProcessedAt:   m.ProcessedAt,
	}
}

func ToOutboxModel(e *entity.OutboxMessage) *model.OutboxEventModel {
	if e == nil {
		return nil
	}

	status := string(e.Status)
	if status == "" {
		status = string(entity.OutboxPending)
	}
	return &model.OutboxEventModel{
		ID:            e.ID,
		EventType:     e.EventType,
		Payload:       datatypes.JSON(json.RawMessage(e.Payload)),
		Status:        status,
		RetryCount:    e.RetryCount,
		LastError:     e.LastError,
		NextAttemptAt: utcPtr(e.NextAttemptAt),
		CreatedAt:     e.CreatedAt,
		ProcessedAt:   e.ProcessedAt,
	}
}

func taskToItem(m *models.Task) *entity.TrackedItem {
	return &entity.TrackedItem{
		ID:        m.ID,
		Kind:      entity.KindTask,
		Title:     m.Title,
		DueDate:   derefTime(m.DueDate),
		Status:    string(m.Status),
		OwnerID:   m.OwnerID,
		IsOverdue: m.IsOverdue,
	}
}

func subTaskToItem(m *models.SubTask) *entity.TrackedItem {
	return &entity.TrackedItem{
		ID:        m.ID,
		Kind:      entity.KindSubTask,
		Title:     m.Title,
		DueDate:   derefTime(m.DueDate),
		Status:    string(m.Status),
		OwnerID:   m.OwnerID,
		IsOverdue: m.IsOverdue,
	}
}

func projectToItem(m *models.Project) *entity.TrackedItem {
	return &entity.TrackedItem{
		ID:        m.ID,
		Kind:      entity.KindProject,
		Title:     m.Title,
		DueDate:   derefTime(m.DueDate),
		Status:    string(m.Status),
		OwnerID:   m.OwnerID,
		MemberIDs: memberIDs(m.Members),
		IsOverdue: m.IsOverdue,
	}
}

func subProjectToItem(m *models.SubProject) *entity.TrackedItem {
	return &entity.TrackedItem{
		ID:        m.ID,
		Kind:      entity.KindSubProject,
		Title:     m.Title,
		DueDate:   derefTime(m.DueDate),
		Status:    string(m.Status),
		OwnerID:   m.OwnerID,
		MemberIDs: memberIDs(m.Members),
		IsOverdue: m.IsOverdue,
	}
}

func memberIDs(members []models.Member) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	return ids
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
