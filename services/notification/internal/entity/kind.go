package entity

import (
	"fmt"
	"time"
)

// EntityKind is one of the four due-dated collections the jobs scan.
type EntityKind string

const (
	KindTask       EntityKind = "Task"
	KindSubTask    EntityKind = "SubTask"
	KindProject    EntityKind = "Project"
	KindSubProject EntityKind = "SubProject"
)

// Kinds is the scan order used by both jobs.
var Kinds = []EntityKind{KindTask, KindSubTask, KindProject, KindSubProject}

func (k EntityKind) DueSoonType() Type {
	switch k {
	case KindSubTask:
		return TypeDueDateSubTask
	case KindProject:
		return TypeDueDateProject
	case KindSubProject:
		return TypeDueDateSubProject
	}
	return TypeDueDateTask
}

func (k EntityKind) OverdueType() Type {
	switch k {
	case KindSubTask:
		return TypeOverdueSubTask
	case KindProject:
		return TypeOverdueProject
	case KindSubProject:
		return TypeOverdueSubProject
	}
	return TypeOverdueTask
}

// Label is the human readable name used in messages.
func (k EntityKind) Label() string {
	switch k {
	case KindSubTask:
		return "Subtask"
	case KindProject:
		return "Project"
	case KindSubProject:
		return "Subproject"
	}
	return "Task"
}

// Path is the URL segment of the kind in the web app.
func (k EntityKind) Path() string {
	switch k {
	case KindSubTask:
		return "subtasks"
	case KindProject:
		return "projects"
	case KindSubProject:
		return "subprojects"
	}
	return "tasks"
}

// ProjectLike kinds notify owner and members, task-like kinds the owner only.
func (k EntityKind) ProjectLike() bool {
	return k == KindProject || k == KindSubProject
}

// TrackedItem is the subset of a due-dated entity the jobs work with.
type TrackedItem struct {
	ID        string
	Kind      EntityKind
	Title     string
	DueDate   time.Time
	Status    string
	OwnerID   string
	MemberIDs []string
	IsOverdue bool
}

// Cursor marks the last item of a scan page. Scans are ordered by due date
// and then ID, so the pair is a stable position.
type Cursor struct {
	DueDate time.Time
	ID      string
}

// Position returns the cursor that resumes a scan just past i.
func (i *TrackedItem) Position() *Cursor {
	return &Cursor{DueDate: i.DueDate, ID: i.ID}
}

// Recipients returns the owner for task-like items and owner plus members
// for project-like items, deduplicated.
func (i *TrackedItem) Recipients() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	add(i.OwnerID)
	if i.Kind.ProjectLike() {
		for _, id := range i.MemberIDs {
			add(id)
		}
	}
	return out
}

const messageDateLayout = "Jan 2, 2006"

func DueSoonMessage(item *TrackedItem) string {
	return fmt.Sprintf("Reminder: %s %q is due on %s.", item.Kind.Label(), item.Title, item.DueDate.Format(messageDateLayout))
}

func OverdueMessage(item *TrackedItem) string {
	return fmt.Sprintf("Overdue: %s %q was due on %s.", item.Kind.Label(), item.Title, item.DueDate.Format(messageDateLayout))
}
