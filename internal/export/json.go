package export

import (
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"

	"project-tracker/internal/model"
	"project-tracker/internal/service"
)

type jsonReport struct {
	GeneratedAt string        `json:"generated_at"`
	Count       int           `json:"count"`
	Projects    []jsonProject `json:"projects"`
}

type jsonProject struct {
	ID                      uint                `json:"id"`
	Name                    string              `json:"name"`
	Category                string              `json:"category,omitempty"`
	Status                  model.ProjectStatus `json:"status"`
	Priority                model.Priority      `json:"priority"`
	StartDate               *model.Date         `json:"start_date"`
	EndDate                 *model.Date         `json:"end_date"`
	EstimatedCompletionDate *model.Date         `json:"estimated_completion_date"`
	Budget                  *model.Decimal      `json:"budget"`
	CurrentSpend            model.Decimal       `json:"current_spend"`
	TotalTasks              int64               `json:"total_tasks"`
	CompletedTasks          int64               `json:"completed_tasks"`
	Progress                float64             `json:"progress"`
	IsOverdue               bool                `json:"is_overdue"`
}

func WriteJSON(w io.Writer, report service.Report) error {
	out := jsonReport{
		GeneratedAt: report.GeneratedAt.UTC().Format(time.RFC3339),
		Count:       len(report.Projects),
		Projects:    make([]jsonProject, 0, len(report.Projects)),
	}
	for _, p := range report.Projects {
		out.Projects = append(out.Projects, jsonProject{
			ID:                      p.ID,
			Name:                    p.Name,
			Category:                p.Category,
			Status:                  p.Status,
			Priority:                p.Priority,
			StartDate:               p.StartDate,
			EndDate:                 p.EndDate,
			EstimatedCompletionDate: p.EstimatedCompletionDate,
			Budget:                  p.Budget,
			CurrentSpend:            p.CurrentSpend,
			TotalTasks:              p.TotalTasks,
			CompletedTasks:          p.CompletedTasks,
			Progress:                p.Progress,
			IsOverdue:               p.Overdue,
		})
	}

	data, err := sonic.ConfigStd.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
