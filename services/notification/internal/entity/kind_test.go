package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntityKind_TypeMapping(t *testing.T) {
	cases := []struct {
		kind    EntityKind
		dueSoon Type
		overdue Type
		label   string
		path    string
	}{
		{KindTask, TypeDueDateTask, TypeOverdueTask, "Task", "tasks"},
		{KindSubTask, TypeDueDateSubTask, TypeOverdueSubTask, "Subtask", "subtasks"},
		{KindProject, TypeDueDateProject, TypeOverdueProject, "Project", "projects"},
		{KindSubProject, TypeDueDateSubProject, TypeOverdueSubProject, "Subproject", "subprojects"},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			assert.Equal(t, tc.dueSoon, tc.kind.DueSoonType())
			assert.Equal(t, tc.overdue, tc.kind.OverdueType())
			assert.Equal(t, tc.label, tc.kind.Label())
			assert.Equal(t, tc.path, tc.kind.Path())
		})
	}
}

func TestTrackedItem_Recipients(t *testing.T) {
	task := &TrackedItem{Kind: KindTask, OwnerID: "u1", MemberIDs: []string{"u2"}}
	assert.Equal(t, []string{"u1"}, task.Recipients())

	project := &TrackedItem{Kind: KindProject, OwnerID: "u1", MemberIDs: []string{"u2", "u1", "", "u3", "u2"}}
	assert.Equal(t, []string{"u1", "u2", "u3"}, project.Recipients())
}

func TestMessages(t *testing.T) {
	item := &TrackedItem{
		Kind:    KindSubProject,
		Title:   "Design review",
		DueDate: time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, `Reminder: Subproject "Design review" is due on Mar 4, 2030.`, DueSoonMessage(item))
	assert.Equal(t, `Overdue: Subproject "Design review" was due on Mar 4, 2030.`, OverdueMessage(item))
}

func TestType_Validation(t *testing.T) {
	assert.True(t, TypeProjectInvite.Valid())
	assert.False(t, Type("SOMETHING_ELSE").Valid())

	assert.True(t, TypeOverdueProject.RequiresDueDate())
	assert.True(t, TypeDueDateTask.RequiresDueDate())
	assert.False(t, TypeGroupChatCreated.RequiresDueDate())
	assert.Len(t, AllTypes(), 12)
}

func TestNotification_ForRecipient(t *testing.T) {
	n := &Notification{
		ID: "n1",
		Recipients: []RecipientState{
			{UserID: "u1", IsRead: true},
			{UserID: "u2"},
		},
	}

	assert.True(t, n.ForRecipient("u1").IsRead)
	assert.False(t, n.ForRecipient("u2").IsRead)
	assert.Nil(t, n.ForRecipient("u1").Recipients)
	assert.Equal(t, []string{"u1", "u2"}, n.RecipientIDs())
}

func TestUserProfile_Wants(t *testing.T) {
	var missing *UserProfile
	assert.True(t, missing.Wants(TypeDueDateTask))

	u := &UserProfile{Preferences: map[string]bool{
		string(TypeDueDateTask): false,
		string(TypeOverdueTask): true,
	}}
	assert.False(t, u.Wants(TypeDueDateTask))
	assert.True(t, u.Wants(TypeOverdueTask))
	assert.True(t, u.Wants(TypeProjectInvite))
}
