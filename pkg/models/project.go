package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Project struct {
	ID          string         `gorm:"type:uuid;primary_key" json:"id"`
	OwnerID     string         `gorm:"type:uuid;not null;index" json:"owner_id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `json:"description"`
	Status      WorkStatus     `gorm:"type:varchar(20);default:'To Do'" json:"status"`
	DueDate     *time.Time     `gorm:"index" json:"due_date,omitempty"`
	IsOverdue   bool           `gorm:"default:false" json:"is_overdue"`
	Members     []Member       `gorm:"polymorphic:Entity" json:"members,omitempty"`
	SubProjects []SubProject   `gorm:"foreignKey:ProjectID" json:"subprojects,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

type SubProject struct {
	ID        string         `gorm:"type:uuid;primary_key" json:"id"`
	ProjectID string         `gorm:"type:uuid;not null;index" json:"project_id"`
	OwnerID   string         `gorm:"type:uuid;not null;index" json:"owner_id"`
	Title     string         `gorm:"not null" json:"title"`
	Status    WorkStatus     `gorm:"type:varchar(20);default:'To Do'" json:"status"`
	DueDate   *time.Time     `gorm:"index" json:"due_date,omitempty"`
	IsOverdue bool           `gorm:"default:false" json:"is_overdue"`
	Members   []Member       `gorm:"polymorphic:Entity" json:"members,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *SubProject) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// Member links a user to a project or subproject. EntityType holds the
// owning table name ("projects" or "sub_projects").
type Member struct {
	ID         string    `gorm:"type:uuid;primary_key" json:"id"`
	EntityID   string    `gorm:"type:uuid;not null;index:idx_member_entity" json:"entity_id"`
	EntityType string    `gorm:"type:varchar(20);not null;index:idx_member_entity" json:"entity_type"`
	UserID     string    `gorm:"type:uuid;not null;index" json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func (m *Member) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// All lists every shared model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Project{},
		&SubProject{},
		&Member{},
		&Task{},
		&SubTask{},
	}
}
