package entity

type Type string

const (
	TypeDueDateTask       Type = "DUE_DATE_TASK"
	TypeDueDateSubTask    Type = "DUE_DATE_SUBTASK"
	TypeDueDateProject    Type = "DUE_DATE_PROJECT"
	TypeDueDateSubProject Type = "DUE_DATE_SUBPROJECT"

	TypeOverdueTask       Type = "OVERDUE_TASK"
	TypeOverdueSubTask    Type = "OVERDUE_SUBTASK"
	TypeOverdueProject    Type = "OVERDUE_PROJECT"
	TypeOverdueSubProject Type = "OVERDUE_SUBPROJECT"

	TypeProjectInvite    Type = "PROJECT_INVITE"
	TypeSubProjectInvite Type = "SUBPROJECT_INVITE"
	TypeTaskAssigned     Type = "TASK_ASSIGNED"
	TypeGroupChatCreated Type = "GROUP_CHAT_CREATED"
)

var knownTypes = map[Type]struct{}{
	TypeDueDateTask:       {},
	TypeDueDateSubTask:    {},
	TypeDueDateProject:    {},
	TypeDueDateSubProject: {},
	TypeOverdueTask:       {},
	TypeOverdueSubTask:    {},
	TypeOverdueProject:    {},
	TypeOverdueSubProject: {},
	TypeProjectInvite:     {},
	TypeSubProjectInvite:  {},
	TypeTaskAssigned:      {},
	TypeGroupChatCreated:  {},
}

func (t Type) Valid() bool {
	_, ok := knownTypes[t]
	return ok
}

// RequiresDueDate reports whether records of this type are keyed by a due date.
func (t Type) RequiresDueDate() bool {
	switch t {
	case TypeDueDateTask, TypeDueDateSubTask, TypeDueDateProject, TypeDueDateSubProject,
		TypeOverdueTask, TypeOverdueSubTask, TypeOverdueProject, TypeOverdueSubProject:
		return true
	}
	return false
}

func AllTypes() []Type {
	types := make([]Type, 0, len(knownTypes))
	for t := range knownTypes {
		types = append(types, t)
	}
	return types
}
