package persistent

import (
	"context"
	"testing"
	"time"

	"taskflow/pkg/database"
	"taskflow/pkg/models"
	"taskflow/services/notification/internal/entity"
	"taskflow/services/notification/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, model.All()...))
	return db
}

func dueNotification(entityID string, due time.Time, recipients ...string) *entity.Notification {
	n := &entity.Notification{
		Type:        entity.TypeDueDateTask,
		Message:     "Reminder",
		EntityID:    entityID,
		EntityModel: string(entity.KindTask),
		DueDate:     &due,
		Metadata:    entity.Metadata{"isReminder": true},
	}
	for _, id := range recipients {
		n.Recipients = append(n.Recipients, entity.RecipientState{UserID: id})
	}
	return n
}

func TestNotificationRepository_CreateAndFindByKey(t *testing.T) {
	repo := NewNotificationRepository(newTestDB(t))
	ctx := context.Background()
	due := time.Date(2030, 3, 4, 9, 0, 0, 0, time.UTC)

	created, err := repo.Create(ctx, dueNotification("task-1", due, "u1", "u2"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Len(t, created.Recipients, 2)

	found, err := repo.FindByKey(ctx, "task-1", entity.TypeDueDateTask, due)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, true, found.Metadata["isReminder"])
	assert.ElementsMatch(t, []string{"u1", "u2"}, found.RecipientIDs())

	_, err = repo.FindByKey(ctx, "task-1", entity.TypeDueDateTask, due.Add(24*time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotificationRepository_CreateDuplicateKey(t *testing.T) {
	repo := NewNotificationRepository(newTestDB(t))
	ctx := context.Background()
	due := time.Date(2030, 3, 4, 9, 0, 0, 0, time.UTC)

	_, err := repo.Create(ctx, dueNotification("task-1", due, "u1"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, dueNotification("task-1", due, "u1"))
	assert.ErrorIs(t, err, ErrDuplicate)

	// A new due date is a new key
	_, err = repo.Create(ctx, dueNotification("task-1", due.Add(24*time.Hour), "u1"))
	assert.NoError(t, err)
}

func TestNotificationRepository_NoDueDateNeverCollides(t *testing.T) {
	repo := NewNotificationRepository(newTestDB(t))
	ctx := context.Background()

	invite := func() *entity.Notification {
		return &entity.Notification{
			Type:        entity.TypeProjectInvite,
			Message:     "You were invited",
			EntityID:    "project-1",
			EntityModel: string(entity.KindProject),
			Recipients:  []entity.RecipientState{{UserID: "u1"}},
		}
	}

	_, err := repo.Create(ctx, invite())
	require.NoError(t, err)
	_, err = repo.Create(ctx, invite())
	assert.NoError(t, err)
}

func TestNotificationRepository_ReadStateIsPerRecipient(t *testing.T) {
	repo := NewNotificationRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)

	n, err := repo.Create(ctx, dueNotification("task-1", now, "alice", "bob"))
	require.NoError(t, err)

	require.NoError(t, repo.MarkRead(ctx, n.ID, "alice", now))
	// Second call is a no-op
	require.NoError(t, repo.MarkRead(ctx, n.ID, "alice", now.Add(time.Minute)))

	unreadAlice, err := repo.UnreadCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), unreadAlice)

	unreadBob, err := repo.UnreadCount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), unreadBob)

	stored, err := repo.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, stored.ForRecipient("alice").IsRead)
	assert.False(t, stored.ForRecipient("bob").IsRead)

	err = repo.MarkRead(ctx, n.ID, "carol", now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotificationRepository_ListForRecipient(t *testing.T) {
	repo := NewNotificationRepository(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		n := dueNotification("task-"+string(rune('a'+i)), base.Add(time.Duration(i)*24*time.Hour), "u1", "u2")
		n.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		created, err := repo.Create(ctx, n)
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}
	_, err := repo.Create(ctx, dueNotification("other", base, "u2"))
	require.NoError(t, err)

	require.NoError(t, repo.MarkRead(ctx, ids[0], "u1", base))

	page, total, err := repo.ListForRecipient(ctx, entity.ListFilter{UserID: "u1", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)
	assert.Nil(t, page[0].Recipients)

	read := true
	readPage, readTotal, err := repo.ListForRecipient(ctx, entity.ListFilter{UserID: "u1", Read: &read, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), readTotal)
	require.Len(t, readPage, 1)
	assert.Equal(t, ids[0], readPage[0].ID)
	assert.True(t, readPage[0].IsRead)

	unread := false
	_, unreadTotal, err := repo.ListForRecipient(ctx, entity.ListFilter{UserID: "u2", Read: &unread, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(4), unreadTotal)
}

func TestNotificationRepository_MarkAllRead(t *testing.T) {
	repo := NewNotificationRepository(newTestDB(t))
	ctx := context.Background()
	due := time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)

	_, err := repo.Create(ctx, dueNotification("task-1", due, "u1", "u2"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, dueNotification("task-2", due, "u1"))
	require.NoError(t, err)

	updated, err := repo.MarkAllRead(ctx, "u1", due)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	unread, err := repo.UnreadCount(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestNotificationRepository_DeleteForRecipient(t *testing.T) {
	repo := NewNotificationRepository(newTestDB(t))
	ctx := context.Background()
	due := time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC)

	n, err := repo.Create(ctx, dueNotification("task-1", due, "u1", "u2"))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteForRecipient(ctx, n.ID, "u1"))
	stored, err := repo.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, stored.RecipientIDs())

	assert.ErrorIs(t, repo.DeleteForRecipient(ctx, n.ID, "u1"), ErrNotFound)

	require.NoError(t, repo.DeleteForRecipient(ctx, n.ID, "u2"))
	_, err = repo.GetByID(ctx, n.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func seedEntities(t *testing.T, db *gorm.DB, now time.Time) {
	t.Helper()
	dueSoon := now.Add(48 * time.Hour)
	past := now.Add(-24 * time.Hour)
	deletedAt := gorm.DeletedAt{Time: now, Valid: true}

	require.NoError(t, db.Create(&models.Task{ID: "task-soon", OwnerID: "u1", Title: "Soon", Status: models.StatusToDo, DueDate: &dueSoon}).Error)
	require.NoError(t, db.Create(&models.Task{ID: "task-late", OwnerID: "u1", Title: "Late", Status: models.StatusInProgress, DueDate: &past}).Error)
	require.NoError(t, db.Create(&models.Task{ID: "task-done", OwnerID: "u1", Title: "Done", Status: models.StatusCompleted, DueDate: &past}).Error)
	require.NoError(t, db.Create(&models.Task{ID: "task-gone", OwnerID: "u1", Title: "Gone", Status: models.StatusToDo, DueDate: &past, DeletedAt: deletedAt}).Error)
	require.NoError(t, db.Create(&models.Task{ID: "task-nodue", OwnerID: "u1", Title: "Whenever", Status: models.StatusToDo}).Error)

	require.NoError(t, db.Create(&models.Project{
		ID:      "project-late",
		OwnerID: "u1",
		Title:   "Launch",
		Status:  models.StatusInProgress,
		DueDate: &past,
		Members: []models.Member{{UserID: "u2"}, {UserID: "u3"}},
	}).Error)
}

func TestEntityRepository_FindOverdue(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)
	seedEntities(t, db, now)
	repo := NewEntityRepository(db)
	ctx := context.Background()

	tasks, err := repo.FindOverdue(ctx, entity.KindTask, now, nil, 100)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "task-late", tasks[0].ID)
	assert.Equal(t, entity.KindTask, tasks[0].Kind)

	projects, err := repo.FindOverdue(ctx, entity.KindProject, now, nil, 100)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.ElementsMatch(t, []string{"u2", "u3"}, projects[0].MemberIDs)
	assert.ElementsMatch(t, []string{"u1", "u2", "u3"}, projects[0].Recipients())

	subTasks, err := repo.FindOverdue(ctx, entity.KindSubTask, now, nil, 100)
	require.NoError(t, err)
	assert.Empty(t, subTasks)
}

func TestEntityRepository_FindDueBetween(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)
	seedEntities(t, db, now)
	repo := NewEntityRepository(db)

	from := time.Date(2030, 3, 3, 0, 0, 0, 0, time.UTC)
	to := time.Date(2030, 3, 3, 23, 59, 59, 999000000, time.UTC)
	items, err := repo.FindDueBetween(context.Background(), entity.KindTask, from, to, nil, 100)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "task-soon", items[0].ID)
	assert.True(t, items[0].DueDate.Equal(now.Add(48*time.Hour)))
}

func TestEntityRepository_FindRespectsLimit(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		due := now.Add(-time.Duration(i+1) * time.Hour)
		require.NoError(t, db.Create(&models.Task{OwnerID: "u1", Title: "Late", DueDate: &due}).Error)
	}

	items, err := NewEntityRepository(db).FindOverdue(context.Background(), entity.KindTask, now, nil, 3)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.True(t, items[0].DueDate.Before(items[1].DueDate))
}

func TestEntityRepository_FindOverdue_PagesWithCursor(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)
	sameDue := now.Add(-48 * time.Hour)
	later := now.Add(-time.Hour)
	for _, id := range []string{"task-c", "task-a", "task-b"} {
		require.NoError(t, db.Create(&models.Task{ID: id, OwnerID: "u1", Title: id, DueDate: &sameDue}).Error)
	}
	require.NoError(t, db.Create(&models.Task{ID: "task-d", OwnerID: "u1", Title: "task-d", DueDate: &later}).Error)
	repo := NewEntityRepository(db)
	ctx := context.Background()

	var seen []string
	var after *entity.Cursor
	for pages := 0; pages < 10; pages++ {
		items, err := repo.FindOverdue(ctx, entity.KindTask, now, after, 2)
		require.NoError(t, err)
		for _, item := range items {
			seen = append(seen, item.ID)
		}
		if len(items) < 2 {
			break
		}
		after = items[len(items)-1].Position()
	}

	assert.Equal(t, []string{"task-a", "task-b", "task-c", "task-d"}, seen)
}

func TestEntityRepository_FindDueBetween_PagesWithCursor(t *testing.T) {
	db := newTestDB(t)
	due := time.Date(2030, 3, 3, 9, 0, 0, 0, time.UTC)
	for _, id := range []string{"task-2", "task-1", "task-3"} {
		require.NoError(t, db.Create(&models.Task{ID: id, OwnerID: "u1", Title: id, DueDate: &due}).Error)
	}
	repo := NewEntityRepository(db)
	from := time.Date(2030, 3, 3, 0, 0, 0, 0, time.UTC)
	to := from.Add(24*time.Hour - time.Millisecond)

	first, err := repo.FindDueBetween(context.Background(), entity.KindTask, from, to, nil, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "task-1", first[0].ID)
	assert.Equal(t, "task-2", first[1].ID)

	rest, err := repo.FindDueBetween(context.Background(), entity.KindTask, from, to, first[1].Position(), 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "task-3", rest[0].ID)
}

func TestEntityRepository_FindOverdue_NullStatusIsUnfinished(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	require.NoError(t, db.Create(&models.Task{ID: "task-legacy", OwnerID: "u1", Title: "Legacy", DueDate: &past}).Error)
	require.NoError(t, db.Exec("UPDATE tasks SET status = NULL WHERE id = ?", "task-legacy").Error)

	items, err := NewEntityRepository(db).FindOverdue(context.Background(), entity.KindTask, now, nil, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "task-legacy", items[0].ID)
	assert.Empty(t, items[0].Status)
}

func TestEntityRepository_SetOverdue(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)
	seedEntities(t, db, now)
	repo := NewEntityRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.SetOverdue(ctx, entity.KindProject, "project-late"))
	require.NoError(t, repo.SetOverdue(ctx, entity.KindProject, "project-late"))

	var project models.Project
	require.NoError(t, db.First(&project, "id = ?", "project-late").Error)
	assert.True(t, project.IsOverdue)

	assert.ErrorIs(t, repo.SetOverdue(ctx, entity.KindSubProject, "missing"), ErrNotFound)
}

func TestUserRepository_Preferences(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.User{
		ID:                      "u1",
		Email:                   "u1@example.com",
		Username:                "u1",
		Password:                "x",
		NotificationPreferences: datatypes.JSONMap{"DUE_DATE_TASK": false},
	}).Error)
	repo := NewUserRepository(db)
	ctx := context.Background()

	profiles, err := repo.FindByIDs(ctx, []string{"u1", "ghost"})
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.False(t, profiles["u1"].Wants(entity.TypeDueDateTask))
	assert.Equal(t, "u1@example.com", profiles["u1"].Email)

	updated, err := repo.UpdatePreferences(ctx, "u1", map[string]bool{"OVERDUE_TASK": false, "DUE_DATE_TASK": true})
	require.NoError(t, err)
	assert.True(t, updated.Wants(entity.TypeDueDateTask))
	assert.False(t, updated.Wants(entity.TypeOverdueTask))

	reloaded, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"OVERDUE_TASK": false, "DUE_DATE_TASK": true}, reloaded.Preferences)

	_, err = repo.UpdatePreferences(ctx, "ghost", map[string]bool{"OVERDUE_TASK": false})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOutboxRepository_Lifecycle(t *testing.T) {
	repo := NewOutboxRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Date(2030, 3, 1, 12, 0, 0, 0, time.UTC)

	messages := []*entity.OutboxMessage{
		{EventType: entity.EventOverdueReminder, Payload: []byte(`{"to":"a@example.com"}`)},
		{EventType: entity.EventOverdueReminder, Payload: []byte(`{"to":"b@example.com"}`)},
	}
	require.NoError(t, repo.Enqueue(ctx, messages))
	assert.NotEmpty(t, messages[0].ID)

	due, err := repo.FetchDue(ctx, now, 10)
	require.NoError(t, err)
	assert.Len(t, due, 2)

	require.NoError(t, repo.MarkProcessed(ctx, messages[0].ID, now))
	require.NoError(t, repo.MarkRetry(ctx, messages[1].ID, 1, "smtp down", now.Add(time.Minute)))

	due, err = repo.FetchDue(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = repo.FetchDue(ctx, now.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 1, due[0].RetryCount)
	assert.Equal(t, "smtp down", due[0].LastError)
	assert.JSONEq(t, `{"to":"b@example.com"}`, string(due[0].Payload))

	require.NoError(t, repo.MarkFailed(ctx, messages[1].ID, 5, "gave up"))
	due, err = repo.FetchDue(ctx, now.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	assert.ErrorIs(t, repo.MarkProcessed(ctx, "missing", now), ErrNotFound)
}
