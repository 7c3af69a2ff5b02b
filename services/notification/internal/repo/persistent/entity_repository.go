package persistent

import (
	"context"
	"fmt"
	"time"

	"taskflow/pkg/models"
	"taskflow/services/notification/internal/entity"

	"gorm.io/gorm"
)

// EntityRepository reads and flags the four due-dated collections. Soft
// deleted rows are excluded by the models' DeletedAt scope.
//
// The finders return one page ordered by (due_date, id). A nil cursor starts
// at the beginning; passing the last item's Position resumes after it.
type EntityRepository interface {
	FindDueBetween(ctx context.Context, kind entity.EntityKind, from, to time.Time, after *entity.Cursor, limit int) ([]*entity.TrackedItem, error)
	FindOverdue(ctx context.Context, kind entity.EntityKind, now time.Time, after *entity.Cursor, limit int) ([]*entity.TrackedItem, error)
	SetOverdue(ctx context.Context, kind entity.EntityKind, id string) error
}

type entityRepository struct {
	db *gorm.DB
}

func NewEntityRepository(db *gorm.DB) EntityRepository {
	return &entityRepository{db: db}
}

func (r *entityRepository) FindDueBetween(ctx context.Context, kind entity.EntityKind, from, to time.Time, after *entity.Cursor, limit int) ([]*entity.TrackedItem, error) {
	query := r.db.WithContext(ctx).
		Where("due_date >= ? AND due_date <= ?", from.UTC(), to.UTC())
	return r.find(page(query, after), kind, limit)
}

// FindOverdue treats a missing status as unfinished.
func (r *entityRepository) FindOverdue(ctx context.Context, kind entity.EntityKind, now time.Time, after *entity.Cursor, limit int) ([]*entity.TrackedItem, error) {
	query := r.db.WithContext(ctx).
		Where("due_date < ?", now.UTC()).
		Where("(status IS NULL OR status <> ?)", string(models.StatusCompleted))
	return r.find(page(query, after), kind, limit)
}

func page(query *gorm.DB, after *entity.Cursor) *gorm.DB {
	if after != nil {
		due := after.DueDate.UTC()
		query = query.Where("(due_date > ? OR (due_date = ? AND id > ?))", due, due, after.ID)
	}
	return query.Order("due_date ASC").Order("id ASC")
}

func (r *entityRepository) find(query *gorm.DB, kind entity.EntityKind, limit int) ([]*entity.TrackedItem, error) {
	if limit > 0 {
		query = query.Limit(limit)
	}

	var items []*entity.TrackedItem
	switch kind {
	case entity.KindTask:
		var rows []models.Task
		if err := query.Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to query tasks: %w", err)
		}
		for i := range rows {
			items = append(items, taskToItem(&rows[i]))
		}
	case entity.KindSubTask:
		var rows []models.SubTask
		if err := query.Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to query subtasks: %w", err)
		}
		for i := range rows {
			items = append(items, subTaskToItem(&rows[i]))
		}
	case entity.KindProject:
		var rows []models.Project
		if err := query.Preload("Members").Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to query projects: %w", err)
		}
		for i := range rows {
			items = append(items, projectToItem(&rows[i]))
		}
	case entity.KindSubProject:
		var rows []models.SubProject
		if err := query.Preload("Members").Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to query subprojects: %w", err)
		}
		for i := range rows {
			items = append(items, subProjectToItem(&rows[i]))
		}
	default:
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
	return items, nil
}

// SetOverdue writes is_overdue = true even when it is already set.
func (r *entityRepository) SetOverdue(ctx context.Context, kind entity.EntityKind, id string) error {
	var target interface{}
	switch kind {
	case entity.KindTask:
		target = &models.Task{}
	case entity.KindSubTask:
		target = &models.SubTask{}
	case entity.KindProject:
		target = &models.Project{}
	case entity.KindSubProject:
		target = &models.SubProject{}
	default:
		return fmt.Errorf("unknown entity kind %q", kind)
	}

	result := r.db.WithContext(ctx).Model(target).Where("id = ?", id).Update("is_overdue", true)
	if result.Error != nil {
		return fmt.Errorf("failed to flag %s %s overdue: %w", kind, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
