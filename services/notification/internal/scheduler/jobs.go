package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskflow/pkg/mailer"
	"taskflow/services/notification/internal/entity"
	"taskflow/services/notification/internal/metrics"
	"taskflow/services/notification/internal/repo/persistent"
	"taskflow/services/notification/internal/usecase"
)

// Per-entity outcomes, also used as metric labels.
const (
	outcomeCreated = "created"
	outcomeSkipped = "skipped"
	outcomeNotSent = "not_sent"
	outcomeFailed  = "failed"
)

// DueSoonWindow returns the whole calendar day that lies days after now,
// from 00:00:00.000 to 23:59:59.999 in loc.
func DueSoonWindow(now time.Time, loc *time.Location, days int) (time.Time, time.Time) {
	target := now.In(loc).AddDate(0, 0, days)
	start := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return start, end
}

// RunDueSoon sends one reminder per entity due on the lookahead day.
func (s *Scheduler) RunDueSoon(ctx context.Context, now time.Time) *Report {
	report := &Report{Job: JobDueSoon, StartedAt: now}
	from, to := DueSoonWindow(now, s.cfg.Location, s.cfg.LookaheadDays)
	s.logger.Info("[DUE SOON] Scanning for items due between %s and %s", from.Format(time.RFC3339), to.Format(time.RFC3339))

	for _, kind := range entity.Kinds {
		err := s.scan(ctx, func(after *entity.Cursor) ([]*entity.TrackedItem, error) {
			return s.deps.Entities.FindDueBetween(ctx, kind, from, to, after, s.cfg.BatchLimit)
		}, func(item *entity.TrackedItem) {
			report.Scanned++
			outcome, err := s.remindDueSoon(ctx, item)
			if err != nil {
				s.logger.Error("[DUE SOON] %s %s: %v", kind, item.ID, err)
			}
			s.count(report, JobDueSoon, outcome)
		})
		if err != nil {
			s.logger.Error("[DUE SOON] Failed to query %s: %v", kind, err)
			report.KindErrors++
		}
	}

	s.logger.Info("[DUE SOON] Done: scanned=%d created=%d skipped=%d not_sent=%d failed=%d",
		report.Scanned, report.Created, report.Skipped, report.NotSent, report.Failed)
	return report
}

// scan walks every page that find returns, handing each item to handle.
// A non-positive BatchLimit means find returns everything in one call.
func (s *Scheduler) scan(ctx context.Context, find func(after *entity.Cursor) ([]*entity.TrackedItem, error), handle func(*entity.TrackedItem)) error {
	var after *entity.Cursor
	for {
		items, err := find(after)
		if err != nil {
			return err
		}
		for _, item := range items {
			handle(item)
		}
		if s.cfg.BatchLimit <= 0 || len(items) < s.cfg.BatchLimit {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		after = items[len(items)-1].Position()
	}
}

func (s *Scheduler) remindDueSoon(ctx context.Context, item *entity.TrackedItem) (outcome string, err error) {
	defer recoverEntity(&outcome, &err)

	notificationType := item.Kind.DueSoonType()
	exists, err := s.notified(ctx, item, notificationType)
	if err != nil {
		return outcomeFailed, err
	}
	if exists {
		return outcomeSkipped, nil
	}

	due := item.DueDate
	n := s.deps.Dispatcher.CreateNotification(ctx, usecase.CreateNotificationRequest{
		RecipientIDs: item.Recipients(),
		Type:         notificationType,
		Message:      entity.DueSoonMessage(item),
		EntityID:     item.ID,
		EntityModel:  string(item.Kind),
		DueDate:      &due,
		Metadata:     entity.Metadata{"isReminder": true},
	})
	if n == nil {
		return outcomeNotSent, nil
	}
	return outcomeCreated, nil
}

// RunOverdue notifies about unfinished items past their due date, queues
// reminder mail and re-asserts the overdue flag on every pass.
func (s *Scheduler) RunOverdue(ctx context.Context, now time.Time) *Report {
	report := &Report{Job: JobOverdue, StartedAt: now}

	for _, kind := range entity.Kinds {
		err := s.scan(ctx, func(after *entity.Cursor) ([]*entity.TrackedItem, error) {
			return s.deps.Entities.FindOverdue(ctx, kind, now, after, s.cfg.BatchLimit)
		}, func(item *entity.TrackedItem) {
			report.Scanned++
			outcome, err := s.alertOverdue(ctx, item, report)
			if err != nil {
				s.logger.Error("[OVERDUE] %s %s: %v", kind, item.ID, err)
			}
			s.count(report, JobOverdue, outcome)
		})
		if err != nil {
			s.logger.Error("[OVERDUE] Failed to query %s: %v", kind, err)
			report.KindErrors++
		}
	}

	s.logger.Info("[OVERDUE] Done: scanned=%d created=%d skipped=%d not_sent=%d flagged=%d mailed=%d failed=%d",
		report.Scanned, report.Created, report.Skipped, report.NotSent, report.Flagged, report.Mailed, report.Failed)
	return report
}

// alertOverdue mails every resolved recipient, opted out or not, but only on
// the pass that stores the overdue notification. Items whose recipients all
// opted out store nothing and so are never mailed.
func (s *Scheduler) alertOverdue(ctx context.Context, item *entity.TrackedItem, report *Report) (outcome string, err error) {
	defer recoverEntity(&outcome, &err)

	notificationType := item.Kind.OverdueType()
	exists, err := s.notified(ctx, item, notificationType)
	if err != nil {
		return outcomeFailed, err
	}

	outcome = outcomeSkipped
	if !exists {
		due := item.DueDate
		result := s.deps.Dispatcher.Dispatch(ctx, usecase.CreateNotificationRequest{
			RecipientIDs: item.Recipients(),
			Type:         notificationType,
			Message:      entity.OverdueMessage(item),
			EntityID:     item.ID,
			EntityModel:  string(item.Kind),
			DueDate:      &due,
			Metadata:     entity.Metadata{"isOverdue": true},
		})

		outcome = outcomeNotSent
		if result.Stored() {
			if result.PushErr == nil {
				outcome = outcomeCreated
			}
			mailed, err := s.enqueueReminders(ctx, item, item.Recipients())
			if err != nil {
				s.logger.Error("[OVERDUE] Failed to queue reminder mail for %s %s: %v", item.Kind, item.ID, err)
			}
			report.Mailed += mailed
		}
	}

	if err := s.deps.Entities.SetOverdue(ctx, item.Kind, item.ID); err != nil {
		return outcomeFailed, fmt.Errorf("failed to flag overdue: %w", err)
	}
	report.Flagged++
	return outcome, nil
}

func (s *Scheduler) notified(ctx context.Context, item *entity.TrackedItem, notificationType entity.Type) (bool, error) {
	_, err := s.deps.Notifications.FindByKey(ctx, item.ID, notificationType, item.DueDate)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, persistent.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check existing %s: %w", notificationType, err)
}

// enqueueReminders queues one mail per recipient that has an email address.
func (s *Scheduler) enqueueReminders(ctx context.Context, item *entity.TrackedItem, userIDs []string) (int, error) {
	if s.deps.Outbox == nil || len(userIDs) == 0 {
		return 0, nil
	}

	profiles, err := s.deps.Users.FindByIDs(ctx, userIDs)
	if err != nil {
		return 0, err
	}

	link := fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.cfg.AppBaseURL, "/"), item.Kind.Path(), item.ID)
	var messages []*entity.OutboxMessage
	for _, id := range userIDs {
		profile, ok := profiles[id]
		if !ok || profile.Email == "" {
			s.logger.Debug("[OVERDUE] No email for user %s, skipping mail", id)
			continue
		}

		payload, err := json.Marshal(mailer.Reminder{
			To:       profile.Email,
			Kind:     item.Kind.Label(),
			Title:    item.Title,
			DueDate:  item.DueDate,
			EntityID: item.ID,
			Link:     link,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to encode reminder: %w", err)
		}
		messages = append(messages, &entity.OutboxMessage{
			EventType: entity.EventOverdueReminder,
			Payload:   payload,
			Status:    entity.OutboxPending,
		})
	}

	if err := s.deps.Outbox.Enqueue(ctx, messages); err != nil {
		return 0, err
	}
	return len(messages), nil
}

func (s *Scheduler) count(report *Report, job, outcome string) {
	switch outcome {
	case outcomeCreated:
		report.Created++
	case outcomeSkipped:
		report.Skipped++
	case outcomeNotSent:
		report.NotSent++
	default:
		report.Failed++
	}
	metrics.JobEntities.WithLabelValues(job, outcome).Inc()
}

// recoverEntity turns a panic in one entity's handling into a failure so
// the rest of the batch still runs.
func recoverEntity(outcome *string, err *error) {
	if r := recover(); r != nil {
		*outcome = outcomeFailed
		*err = fmt.Errorf("panic: %v", r)
	}
}
