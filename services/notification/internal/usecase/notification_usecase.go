package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskflow/pkg/logger"
	"taskflow/services/notification/internal/entity"
	"taskflow/services/notification/internal/metrics"
	"taskflow/services/notification/internal/realtime"
	"taskflow/services/notification/internal/repo/persistent"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

var (
	ErrNotFound    = errors.New("notification not found")
	ErrUserMissing = errors.New("user not found")
	ErrUnknownType = errors.New("unknown notification type")
)

// CreateNotificationRequest describes one triggering event.
type CreateNotificationRequest struct {
	RecipientIDs []string
	Type         entity.Type
	Message      string
	EntityID     string
	EntityModel  string
	DueDate      *time.Time
	Metadata     entity.Metadata
}

// DispatchResult tells a caller what became of one request. Notification is
// set whenever a record was stored, even if the live push then failed.
type DispatchResult struct {
	Notification *entity.Notification
	// Outcome is one of the metrics.Outcome* values.
	Outcome string
	PushErr error
}

// Stored reports whether this call wrote a new record.
func (r DispatchResult) Stored() bool {
	return r.Notification != nil
}

// Dispatcher creates notifications. It never returns an error: the cause of
// anything not sent has been logged.
type Dispatcher interface {
	Dispatch(ctx context.Context, req CreateNotificationRequest) DispatchResult
	// CreateNotification returns the record only when it was stored and
	// pushed, nil otherwise.
	CreateNotification(ctx context.Context, req CreateNotificationRequest) *entity.Notification
}

type NotificationUseCase interface {
	Dispatcher
	GetNotifications(ctx context.Context, userID string, page, limit int, read *bool) (*entity.Page, error)
	GetUnreadCount(ctx context.Context, userID string) (int64, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) error
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
	DeleteNotification(ctx context.Context, userID, notificationID string) error
	GetPreferences(ctx context.Context, userID string) (map[string]bool, error)
	UpdatePreferences(ctx context.Context, userID string, prefs map[string]bool) (map[string]bool, error)
}

type notificationUseCase struct {
	notificationRepo persistent.NotificationRepository
	userRepo         persistent.UserRepository
	publisher        realtime.Publisher
	logger           *logger.Logger
	now              func() time.Time
}

// NewNotificationUseCase wires the use case. publisher may be nil, in which
// case notifications are stored but not pushed.
func NewNotificationUseCase(notificationRepo persistent.NotificationRepository, userRepo persistent.UserRepository, publisher realtime.Publisher, logger *logger.Logger) NotificationUseCase {
	return &notificationUseCase{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		publisher:        publisher,
		logger:           logger,
		now:              time.Now,
	}
}

func (uc *notificationUseCase) CreateNotification(ctx context.Context, req CreateNotificationRequest) *entity.Notification {
	result := uc.Dispatch(ctx, req)
	if result.Outcome != metrics.OutcomeCreated {
		return nil
	}
	return result.Notification
}

func (uc *notificationUseCase) Dispatch(ctx context.Context, req CreateNotificationRequest) DispatchResult {
	result := uc.dispatch(ctx, req)
	metrics.Notifications.WithLabelValues(string(req.Type), result.Outcome).Inc()
	return result
}

func (uc *notificationUseCase) dispatch(ctx context.Context, req CreateNotificationRequest) DispatchResult {
	recipients := normalizeRecipients(req.RecipientIDs)
	if len(recipients) == 0 {
		uc.logger.Warn("[DISPATCH] No recipients for %s on %s", req.Type, req.EntityID)
		return DispatchResult{Outcome: metrics.OutcomeInvalid}
	}
	if !req.Type.Valid() {
		uc.logger.Error("[DISPATCH] Unknown notification type %q for entity %s", req.Type, req.EntityID)
		return DispatchResult{Outcome: metrics.OutcomeInvalid}
	}
	if req.Type.RequiresDueDate() && req.DueDate == nil {
		uc.logger.Error("[DISPATCH] %s for entity %s requires a due date", req.Type, req.EntityID)
		return DispatchResult{Outcome: metrics.OutcomeInvalid}
	}

	profiles, err := uc.userRepo.FindByIDs(ctx, recipients)
	if err != nil {
		uc.logger.Error("[DISPATCH] Failed to load preferences for %s: %v", req.Type, err)
		return DispatchResult{Outcome: metrics.OutcomeError}
	}

	var accepted []string
	for _, id := range recipients {
		// Unknown users have no stored preference, so they default to deliver.
		if profiles[id].Wants(req.Type) {
			accepted = append(accepted, id)
		}
	}
	if len(accepted) == 0 {
		uc.logger.Debug("[DISPATCH] All recipients opted out of %s for entity %s", req.Type, req.EntityID)
		return DispatchResult{Outcome: metrics.OutcomeSuppressed}
	}

	notification := &entity.Notification{
		Type:        req.Type,
		Message:     req.Message,
		EntityID:    req.EntityID,
		EntityModel: req.EntityModel,
		DueDate:     req.DueDate,
		Metadata:    req.Metadata,
		CreatedAt:   uc.now().UTC(),
	}
	for _, id := range accepted {
		notification.Recipients = append(notification.Recipients, entity.RecipientState{UserID: id})
	}

	created, err := uc.notificationRepo.Create(ctx, notification)
	if err != nil {
		if errors.Is(err, persistent.ErrDuplicate) {
			uc.logger.Info("[DISPATCH] %s for entity %s already exists, skipping", req.Type, req.EntityID)
			return DispatchResult{Outcome: metrics.OutcomeDuplicate}
		}
		uc.logger.Error("[DISPATCH] Failed to store %s for entity %s: %v", req.Type, req.EntityID, err)
		return DispatchResult{Outcome: metrics.OutcomeError}
	}

	if err := uc.emit(ctx, created); err != nil {
		uc.logger.Error("[DISPATCH] Failed to push %s %s: %v", created.Type, created.ID, err)
		return DispatchResult{Notification: created, Outcome: metrics.OutcomeError, PushErr: err}
	}

	uc.logger.Info("[DISPATCH] Created %s %s for %d recipient(s)", created.Type, created.ID, len(accepted))
	return DispatchResult{Notification: created, Outcome: metrics.OutcomeCreated}
}

// emit pushes the notification and then the fresh unread count to every
// recipient. Every recipient is attempted; the first error is returned.
func (uc *notificationUseCase) emit(ctx context.Context, n *entity.Notification) error {
	if uc.publisher == nil {
		return nil
	}

	var firstErr error
	for _, userID := range n.RecipientIDs() {
		if err := uc.publisher.PublishNotification(ctx, userID, n.ForRecipient(userID)); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := uc.pushUnreadCount(ctx, userID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (uc *notificationUseCase) pushUnreadCount(ctx context.Context, userID string) error {
	if uc.publisher == nil {
		return nil
	}
	count, err := uc.notificationRepo.UnreadCount(ctx, userID)
	if err != nil {
		return err
	}
	return uc.publisher.PublishUnreadCount(ctx, userID, count)
}

func (uc *notificationUseCase) GetNotifications(ctx context.Context, userID string, page, limit int, read *bool) (*entity.Page, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	notifications, total, err := uc.notificationRepo.ListForRecipient(ctx, entity.ListFilter{
		UserID: userID,
		Read:   read,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	unread, err := uc.notificationRepo.UnreadCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return &entity.Page{
		Notifications: notifications,
		Total:         total,
		Unread:        unread,
		Page:          page,
		Limit:         limit,
	}, nil
}

func (uc *notificationUseCase) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	return uc.notificationRepo.UnreadCount(ctx, userID)
}

func (uc *notificationUseCase) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	if err := uc.notificationRepo.MarkRead(ctx, notificationID, userID, uc.now()); err != nil {
		if errors.Is(err, persistent.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := uc.pushUnreadCount(ctx, userID); err != nil {
		uc.logger.Warn("Failed to push unread count to user %s: %v", userID, err)
	}
	return nil
}

func (uc *notificationUseCase) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	updated, err := uc.notificationRepo.MarkAllRead(ctx, userID, uc.now())
	if err != nil {
		return 0, err
	}

	if err := uc.pushUnreadCount(ctx, userID); err != nil {
		uc.logger.Warn("Failed to push unread count to user %s: %v", userID, err)
	}
	return updated, nil
}

func (uc *notificationUseCase) DeleteNotification(ctx context.Context, userID, notificationID string) error {
	if err := uc.notificationRepo.DeleteForRecipient(ctx, notificationID, userID); err != nil {
		if errors.Is(err, persistent.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := uc.pushUnreadCount(ctx, userID); err != nil {
		uc.logger.Warn("Failed to push unread count to user %s: %v", userID, err)
	}
	return nil
}

// GetPreferences returns the effective setting of every known type.
func (uc *notificationUseCase) GetPreferences(ctx context.Context, userID string) (map[string]bool, error) {
	profile, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, persistent.ErrNotFound) {
			return nil, ErrUserMissing
		}
		return nil, err
	}
	return effectivePreferences(profile), nil
}

func (uc *notificationUseCase) UpdatePreferences(ctx context.Context, userID string, prefs map[string]bool) (map[string]bool, error) {
	for key := range prefs {
		if !entity.Type(key).Valid() {
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, key)
		}
	}

	profile, err := uc.userRepo.UpdatePreferences(ctx, userID, prefs)
	if err != nil {
		if errors.Is(err, persistent.ErrNotFound) {
			return nil, ErrUserMissing
		}
		return nil, err
	}
	return effectivePreferences(profile), nil
}

func effectivePreferences(profile *entity.UserProfile) map[string]bool {
	prefs := make(map[string]bool)
	for _, t := range entity.AllTypes() {
		prefs[string(t)] = profile.Wants(t)
	}
	return prefs
}

// normalizeRecipients drops blanks and repeats, keeping first-seen order.
func normalizeRecipients(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
