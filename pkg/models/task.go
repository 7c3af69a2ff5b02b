package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkStatus string

const (
	StatusToDo       WorkStatus = "To Do"
	StatusInProgress WorkStatus = "In Progress"
	StatusCompleted  WorkStatus = "Completed"
)

type Task struct {
	ID          string         `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID     string         `gorm:"type:uuid;not null;index" json:"owner_id"`
	ProjectID   *string        `gorm:"type:uuid;index" json:"project_id,omitempty"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `json:"description"`
	Status      WorkStatus     `gorm:"type:varchar(20);default:'To Do'" json:"status"`
	DueDate     *time.Time     `gorm:"index" json:"due_date,omitempty"`
	IsOverdue   bool           `gorm:"default:false" json:"is_overdue"`
	SubTasks    []SubTask      `gorm:"foreignKey:TaskID" json:"subtasks,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

type SubTask struct {
	ID        string         `gorm:"type:uuid;primary_key" json:"id"`
	TaskID    string         `gorm:"type:uuid;not null;index" json:"task_id"`
	OwnerID   string         `gorm:"type:uuid;not null;index" json:"owner_id"`
	Title     string         `gorm:"not null" json:"title"`
	Status    WorkStatus     `gorm:"type:varchar(20);default:'To Do'" json:"status"`
	DueDate   *time.Time     `gorm:"index" json:"due_date,omitempty"`
	IsOverdue bool           `gorm:"default:false" json:"is_overdue"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *SubTask) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
