package model

import "time"

// Task is a unit of work inside exactly one project.
type Task struct {
	ID             uint    `gorm:"primaryKey"`
	Title          string  `gorm:"size:200;not null"`
	Description    *string `gorm:"type:text"`
	ProjectID      uint    `gorm:"index;not null"`
	Project        *Project
	Status         TaskStatus `gorm:"size:20;index;default:TODO"`
	Priority       Priority   `gorm:"size:20;index;default:MEDIUM"`
	StartDate      *Date
	DueDate        *Date `gorm:"index"`
	CompletedDate  *Date `gorm:"index"`
	EstimatedHours *Decimal
	ActualHours    Decimal   `gorm:"default:0"`
	CreatedAt      time.Time `gorm:"index"`
	UpdatedAt      time.Time
}

// IsOverdue reports whether the due date has passed on an unfinished task.
func (t *Task) IsOverdue(today Date) bool {
	return t.DueDate != nil && t.DueDate.Before(today) && t.Status != TaskCompleted
}

// ProjectName returns the owning project's name when it was loaded.
func (t *Task) ProjectName() string {
	if t.Project == nil {
		return ""
	}
	return t.Project.Name
}
