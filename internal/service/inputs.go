package service

import (
	"fmt"

	"project-tracker/internal/model"
	"project-tracker/internal/validation"
)

// CategoryInput is the writable part of a project category.
type CategoryInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func CategoryInputFrom(c *model.Category) CategoryInput {
	return CategoryInput{Name: c.Name, Description: c.Description}
}

func (in *CategoryInput) validate() validation.Errors {
	errs := validation.Errors{}
	if validation.Required(errs, "name", in.Name) {
		validation.MaxLength(errs, "name", in.Name, 100)
	}
	return errs
}

func (in CategoryInput) apply(c *model.Category) {
	c.Name = in.Name
	c.Description = in.Description
}

// ProjectInput is the writable part of a project. CategoryID is write only;
// reads return the nested category instead.
type ProjectInput struct {
	Name                    string              `json:"name"`
	Description             *string             `json:"description"`
	CategoryID              *uint               `json:"category_id"`
	Status                  model.ProjectStatus `json:"status"`
	Priority                model.Priority      `json:"priority"`
	StartDate               *model.Date         `json:"start_date"`
	EndDate                 *model.Date         `json:"end_date"`
	EstimatedCompletionDate *model.Date         `json:"estimated_completion_date"`
	Budget                  *model.Decimal      `json:"budget"`
	CurrentSpend            model.Decimal       `json:"current_spend"`
}

// NewProjectInput returns an input carrying the column defaults.
func NewProjectInput() ProjectInput {
	return ProjectInput{Status: model.ProjectPlanning, Priority: model.PriorityMedium}
}

func ProjectInputFrom(p *model.Project) ProjectInput {
	return ProjectInput{
		Name:                    p.Name,
		Description:             p.Description,
		CategoryID:              p.CategoryID,
		Status:                  p.Status,
		Priority:                p.Priority,
		StartDate:               p.StartDate,
		EndDate:                 p.EndDate,
		EstimatedCompletionDate: p.EstimatedCompletionDate,
		Budget:                  p.Budget,
		CurrentSpend:            p.CurrentSpend,
	}
}

func (in *ProjectInput) validate() validation.Errors {
	errs := validation.Errors{}
	if validation.Required(errs, "name", in.Name) {
		validation.MaxLength(errs, "name", in.Name, 200)
	}
	validation.Choice(errs, "status", string(in.Status), in.Status.Valid())
	validation.Choice(errs, "priority", string(in.Priority), in.Priority.Valid())
	if in.Budget != nil {
		checkAmount(errs, "budget", *in.Budget, 12)
	}
	checkAmount(errs, "current_spend", in.CurrentSpend, 12)
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		errs.Add("end_date", "End date cannot be before the start date.")
	}
	return errs
}

func (in ProjectInput) apply(p *model.Project) {
	p.Name = in.Name
	p.Description = in.Description
	p.CategoryID = in.CategoryID
	p.Status = in.Status
	p.Priority = in.Priority
	p.StartDate = in.StartDate
	p.EndDate = in.EndDate
	p.EstimatedCompletionDate = in.EstimatedCompletionDate
	p.Budget = in.Budget
	p.CurrentSpend = in.CurrentSpend
}

// TaskInput is the writable part of a task. Project is the owning project id.
type TaskInput struct {
	Title          string           `json:"title"`
	Description    *string          `json:"description"`
	Project        uint             `json:"project"`
	Status         model.TaskStatus `json:"status"`
	Priority       model.Priority   `json:"priority"`
	StartDate      *model.Date      `json:"start_date"`
	DueDate        *model.Date      `json:"due_date"`
	CompletedDate  *model.Date      `json:"completed_date"`
	EstimatedHours *model.Decimal   `json:"estimated_hours"`
	ActualHours    model.Decimal    `json:"actual_hours"`
}

// NewTaskInput returns an input carrying the column defaults.
func NewTaskInput() TaskInput {
	return TaskInput{Status: model.TaskTodo, Priority: model.PriorityMedium}
}

func TaskInputFrom(t *model.Task) TaskInput {
	return TaskInput{
		Title:          t.Title,
		Description:    t.Description,
		Project:        t.ProjectID,
		Status:         t.Status,
		Priority:       t.Priority,
		StartDate:      t.StartDate,
		DueDate:        t.DueDate,
		CompletedDate:  t.CompletedDate,
		EstimatedHours: t.EstimatedHours,
		ActualHours:    t.ActualHours,
	}
}

func (in *TaskInput) validate() validation.Errors {
	errs := validation.Errors{}
	if validation.Required(errs, "title", in.Title) {
		validation.MaxLength(errs, "title", in.Title, 200)
	}
	if in.Project == 0 {
		errs.Add("project", "This field is required.")
	}
	validation.Choice(errs, "status", string(in.Status), in.Status.Valid())
	validation.Choice(errs, "priority", string(in.Priority), in.Priority.Valid())
	if in.EstimatedHours != nil {
		checkAmount(errs, "estimated_hours", *in.EstimatedHours, 5)
	}
	checkAmount(errs, "actual_hours", in.ActualHours, 5)
	if in.StartDate != nil && in.DueDate != nil && in.DueDate.Before(*in.StartDate) {
		errs.Add("due_date", "Due date cannot be before the start date.")
	}
	return errs
}

func (in TaskInput) apply(t *model.Task) {
	t.Title = in.Title
	t.Description = in.Description
	t.ProjectID = in.Project
	t.Status = in.Status
	t.Priority = in.Priority
	t.StartDate = in.StartDate
	t.DueDate = in.DueDate
	t.CompletedDate = in.CompletedDate
	t.EstimatedHours = in.EstimatedHours
	t.ActualHours = in.ActualHours
}

// checkAmount enforces a non-negative decimal(maxDigits, 2).
func checkAmount(errs validation.Errors, field string, d model.Decimal, maxDigits int) {
	switch {
	case d < 0:
		errs.Add(field, "Ensure this value is greater than or equal to 0.")
	case d.Digits() > maxDigits-2:
		errs.Add(field, fmt.Sprintf("Ensure that there are no more than %d digits before the decimal point.", maxDigits-2))
	}
}
