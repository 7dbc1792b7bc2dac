package service

import (
	"context"
	"time"

	"project-tracker/internal/model"
	"project-tracker/internal/repository"
)

// ProjectRow is one project line of an exported report.
type ProjectRow struct {
	ID                      uint
	Name                    string
	Category                string
	Status                  model.ProjectStatus
	Priority                model.Priority
	StartDate               *model.Date
	EndDate                 *model.Date
	EstimatedCompletionDate *model.Date
	Budget                  *model.Decimal
	CurrentSpend            model.Decimal
	TotalTasks              int64
	CompletedTasks          int64
	Progress                float64
	Overdue                 bool
}

// Report is a point-in-time snapshot of every project.
type Report struct {
	GeneratedAt time.Time
	Projects    []ProjectRow
}

// ReportService assembles project reports for export.
type ReportService struct {
	projects *repository.ProjectRepository
}

func NewReportService(projects *repository.ProjectRepository) *ReportService {
	return &ReportService{projects: projects}
}

// Build loads all projects and their task counts with a single grouped query.
func (s *ReportService) Build(ctx context.Context, now time.Time) (Report, error) {
	report := Report{GeneratedAt: now, Projects: []ProjectRow{}}

	projects, err := s.projects.All(ctx)
	if err != nil {
		return report, err
	}
	ids := make([]uint, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	counts, err := s.projects.TaskCounts(ctx, ids)
	if err != nil {
		return report, err
	}

	today := model.DateOf(now)
	for i := range projects {
		p := &projects[i]
		c := counts[p.ID]
		row := ProjectRow{
			ID:                      p.ID,
			Name:                    p.Name,
			Status:                  p.Status,
			Priority:                p.Priority,
			StartDate:               p.StartDate,
			EndDate:                 p.EndDate,
			EstimatedCompletionDate: p.EstimatedCompletionDate,
			Budget:                  p.Budget,
			CurrentSpend:            p.CurrentSpend,
			TotalTasks:              c.Total,
			CompletedTasks:          c.Completed,
			Progress:                model.Progress(int(c.Completed), int(c.Total)),
			Overdue:                 p.IsOverdue(today),
		}
		if p.Category != nil {
			row.Category = p.Category.Name
		}
		report.Projects = append(report.Projects, row)
	}
	return report, nil
}
