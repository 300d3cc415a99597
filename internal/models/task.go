package models

import "time"

// TaskStatus is the lifecycle stage of a task.
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusOpen:       {TaskStatusInProgress, TaskStatusDone, TaskStatusCancelled},
	TaskStatusInProgress: {TaskStatusDone, TaskStatusCancelled},
	TaskStatusDone:       {},
	TaskStatusCancelled:  {},
}

// Valid reports whether the status is known.
func (s TaskStatus) Valid() bool {
	_, ok := taskTransitions[s]
	return ok
}

// Terminal reports whether the task is closed.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusDone || s == TaskStatusCancelled
}

// CanTransitionTo reports whether moving to the target status is allowed.
func (s TaskStatus) CanTransitionTo(target TaskStatus) bool {
	for _, next := range taskTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Task is a unit of work, optionally linked to a lead or company. Its
// urgency score is derived the same way as a lead's.
type Task struct {
	BaseModel

	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`

	Priority LeadPriority `gorm:"type:varchar(16);not null;default:'medium';index" json:"priority"`
	Status   TaskStatus   `gorm:"type:varchar(32);not null;default:'open';index" json:"status"`

	DueDate         *time.Time `gorm:"index" json:"due_date,omitempty"`
	EstimatedEffort float64    `json:"estimated_effort"`
	ActualEffort    float64    `json:"actual_effort"`

	LeadID    *string  `gorm:"type:uuid;index" json:"lead_id"`
	Lead      *Lead    `gorm:"foreignKey:LeadID" json:"lead,omitempty"`
	CompanyID *string  `gorm:"type:uuid;index" json:"company_id"`
	Company   *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`

	AssignedToID *string `gorm:"type:uuid;index" json:"assigned_to_id"`
	AssignedTo   *User   `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`

	UrgencyScore float64 `gorm:"index" json:"urgency_score"`
}
