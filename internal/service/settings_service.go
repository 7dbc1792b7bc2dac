package service

import (
	"context"
	"slices"
	"time"

	"project-tracker/internal/model"
	"project-tracker/internal/repository"
	"project-tracker/internal/validation"
)

var (
	themes      = []string{"light", "dark", "auto"}
	dateFormats = []string{"MM/DD/YYYY", "DD/MM/YYYY", "YYYY-MM-DD"}
)

// QuickStats is the compact summary shown on the profile page and polled by
// the navigation bar.
type QuickStats struct {
	TotalProjects       int64 `json:"total_projects"`
	ActiveProjects      int64 `json:"active_projects"`
	CompletedProjects   int64 `json:"completed_projects"`
	TotalTasks          int64 `json:"total_tasks"`
	CompletedTasks      int64 `json:"completed_tasks"`
	OverdueTasks        int64 `json:"overdue_tasks"`
	UnreadNotifications int64 `json:"unread_notifications"`
}

// SettingsService manages per-user preferences and in-app notifications.
type SettingsService struct {
	settings      *repository.SettingsRepository
	notifications *repository.NotificationRepository
	projects      *repository.ProjectRepository
	tasks         *repository.TaskRepository
}

func NewSettingsService(
	settings *repository.SettingsRepository,
	notifications *repository.NotificationRepository,
	projects *repository.ProjectRepository,
	tasks *repository.TaskRepository,
) *SettingsService {
	return &SettingsService{settings: settings, notifications: notifications, projects: projects, tasks: tasks}
}

func (s *SettingsService) Get(ctx context.Context, userID uint) (*model.UserSettings, error) {
	return s.settings.GetOrCreate(ctx, userID)
}

// Update applies mutate to the stored settings, validates and saves them.
// The owner and row id cannot be changed through mutate.
func (s *SettingsService) Update(ctx context.Context, userID uint, mutate func(*model.UserSettings) error) (*model.UserSettings, error) {
	current, err := s.settings.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	next := *current
	if err := mutate(&next); err != nil {
		return nil, err
	}
	next.ID, next.UserID = current.ID, current.UserID
	if err := validateSettings(&next).Err(); err != nil {
		return nil, err
	}
	if err := s.settings.Save(ctx, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

func validateSettings(st *model.UserSettings) validation.Errors {
	errs := validation.Errors{}
	validation.Choice(errs, "default_project_status", string(st.DefaultProjectStatus), st.DefaultProjectStatus.Valid())
	validation.Choice(errs, "default_priority", string(st.DefaultPriority), st.DefaultPriority.Valid())
	validation.Choice(errs, "theme", st.Theme, slices.Contains(themes, st.Theme))
	validation.Choice(errs, "date_format", st.DateFormat, slices.Contains(dateFormats, st.DateFormat))
	if validation.Required(errs, "language", st.Language) {
		validation.MaxLength(errs, "language", st.Language, 10)
	}
	if st.ItemsPerPage < 5 || st.ItemsPerPage > 100 {
		errs.Add("items_per_page", "Ensure this value is between 5 and 100.")
	}
	if st.RefreshInterval < 10 || st.RefreshInterval > 3600 {
		errs.Add("refresh_interval", "Ensure this value is between 10 and 3600.")
	}
	return errs
}

// QuickStats counts projects, tasks and unread notifications as of now.
func (s *SettingsService) QuickStats(ctx context.Context, userID uint, now time.Time) (QuickStats, error) {
	var out QuickStats
	projects, err := s.projects.CountByStatus(ctx)
	if err != nil {
		return out, err
	}
	tasks, err := s.tasks.CountByStatus(ctx)
	if err != nil {
		return out, err
	}
	out.TotalProjects = sum(projects)
	out.ActiveProjects = projects[model.ProjectInProgress]
	out.CompletedProjects = projects[model.ProjectCompleted]
	out.TotalTasks = sum(tasks)
	out.CompletedTasks = tasks[model.TaskCompleted]

	open := make([]model.TaskStatus, 0, len(model.TaskStatuses))
	for _, st := range model.TaskStatuses {
		if st != model.TaskCompleted {
			open = append(open, st)
		}
	}
	if out.OverdueTasks, err = s.tasks.CountOverdue(ctx, model.DateOf(now), open); err != nil {
		return out, err
	}
	if out.UnreadNotifications, err = s.notifications.CountUnread(ctx, userID); err != nil {
		return out, err
	}
	return out, nil
}

// Notifications lists the user's notifications, newest first.
func (s *SettingsService) Notifications(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]model.UserNotification, error) {
	return s.notifications.ListByUser(ctx, userID, unreadOnly, limit)
}

func (s *SettingsService) MarkRead(ctx context.Context, userID, id uint) error {
	return s.notifications.MarkRead(ctx, userID, id)
}

func (s *SettingsService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.notifications.MarkAllRead(ctx, userID)
}

// Notify records an in-app notification for the user.
func (s *SettingsService) Notify(ctx context.Context, userID uint, message string) (*model.UserNotification, error) {
	n := &model.UserNotification{UserID: userID, Message: message}
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}
