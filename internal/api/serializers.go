package api

import (
	"time"

	"project-tracker/internal/model"
)

type categoryJSON struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newCategoryJSON(c *model.Category) categoryJSON {
	return categoryJSON{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

type projectJSON struct {
	ID                      uint                `json:"id"`
	Name                    string              `json:"name"`
	Description             *string             `json:"description"`
	Category                *categoryJSON       `json:"category"`
	Status                  model.ProjectStatus `json:"status"`
	Priority                model.Priority      `json:"priority"`
	StartDate               *model.Date         `json:"start_date"`
	EndDate                 *model.Date         `json:"end_date"`
	EstimatedCompletionDate *model.Date         `json:"estimated_completion_date"`
	Budget                  *model.Decimal      `json:"budget"`
	CurrentSpend            model.Decimal       `json:"current_spend"`
	CreatedAt               time.Time           `json:"created_at"`
	UpdatedAt               time.Time           `json:"updated_at"`
	Progress                float64             `json:"progress"`
	IsOverdue               bool                `json:"is_overdue"`
}

func newProjectJSON(p *model.Project, today model.Date) projectJSON {
	out := projectJSON{
		ID:                      p.ID,
		Name:                    p.Name,
		Description:             p.Description,
		Status:                  p.Status,
		Priority:                p.Priority,
		StartDate:               p.StartDate,
		EndDate:                 p.EndDate,
		EstimatedCompletionDate: p.EstimatedCompletionDate,
		Budget:                  p.Budget,
		CurrentSpend:            p.CurrentSpend,
		CreatedAt:               p.CreatedAt,
		UpdatedAt:               p.UpdatedAt,
		Progress:                p.Progress(),
		IsOverdue:               p.IsOverdue(today),
	}
	if p.Category != nil {
		c := newCategoryJSON(p.Category)
		out.Category = &c
	}
	return out
}

type taskJSON struct {
	ID             uint             `json:"id"`
	Title          string           `json:"title"`
	Description    *string          `json:"description"`
	Project        uint             `json:"project"`
	ProjectName    string           `json:"project_name"`
	Status         model.TaskStatus `json:"status"`
	Priority       model.Priority   `json:"priority"`
	StartDate      *model.Date      `json:"start_date"`
	DueDate        *model.Date      `json:"due_date"`
	CompletedDate  *model.Date      `json:"completed_date"`
	EstimatedHours *model.Decimal   `json:"estimated_hours"`
	ActualHours    model.Decimal    `json:"actual_hours"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	IsOverdue      bool             `json:"is_overdue"`
}

func newTaskJSON(t *model.Task, today model.Date) taskJSON {
	return taskJSON{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Project:        t.ProjectID,
		ProjectName:    t.ProjectName(),
		Status:         t.Status,
		Priority:       t.Priority,
		StartDate:      t.StartDate,
		DueDate:        t.DueDate,
		CompletedDate:  t.CompletedDate,
		EstimatedHours: t.EstimatedHours,
		ActualHours:    t.ActualHours,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		IsOverdue:      t.IsOverdue(today),
	}
}

type notificationJSON struct {
	ID        uint      `json:"id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func newNotificationJSON(n *model.UserNotification) notificationJSON {
	return notificationJSON{ID: n.ID, Message: n.Message, IsRead: n.IsRead, CreatedAt: n.CreatedAt}
}
