package service

import (
	"context"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"project-tracker/internal/model"
	"project-tracker/internal/repository"
)

const (
	activityWindow   = 7 * 24 * time.Hour
	activityPerQuery = 2
	activityLimit    = 5
	weeklyDays       = 7
)

// Cache stores computed dashboard payloads between requests.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// WeekDay is one point of the trailing completed-tasks series.
type WeekDay struct {
	Date      string `json:"date"`
	Day       string `json:"day"`
	Completed int64  `json:"completed"`
}

// Summary is everything the dashboard page shows.
type Summary struct {
	TotalProjects         int64
	ActiveProjects        int64
	CompletedProjects     int64
	OverdueProjects       int64
	TotalTasks            int64
	CompletedTasks        int64
	PendingTasks          int64
	OverdueTasks          int64
	RecentProjects        []model.Project
	RecentTasks           []model.Task
	TasksByStatus         map[model.TaskStatus]int64
	ProjectsByStatus      map[model.ProjectStatus]int64
	ProjectCompletionRate float64
	TaskCompletionRate    float64
	WeeklyData            []WeekDay
}

// ZeroSummary is the summary shown when the real one cannot be computed.
func ZeroSummary() Summary {
	s := Summary{
		RecentProjects:   []model.Project{},
		RecentTasks:      []model.Task{},
		TasksByStatus:    make(map[model.TaskStatus]int64, len(model.TaskStatuses)),
		ProjectsByStatus: make(map[model.ProjectStatus]int64, len(model.ProjectStatuses)),
		WeeklyData:       []WeekDay{},
	}
	for _, st := range model.TaskStatuses {
		s.TasksByStatus[st] = 0
	}
	for _, st := range model.ProjectStatuses {
		s.ProjectsByStatus[st] = 0
	}
	return s
}

type ProjectBrief struct {
	ID       uint                `json:"id"`
	Name     string              `json:"name"`
	Status   model.ProjectStatus `json:"status"`
	Progress float64             `json:"progress"`
}

type TaskBrief struct {
	ID          uint             `json:"id"`
	Title       string           `json:"title"`
	Status      model.TaskStatus `json:"status"`
	ProjectName string           `json:"project_name"`
}

// Data is the payload polled by the dashboard page for live updates.
type Data struct {
	TotalProjects         int64          `json:"total_projects"`
	ActiveProjects        int64          `json:"active_projects"`
	TotalTasks            int64          `json:"total_tasks"`
	CompletedTasks        int64          `json:"completed_tasks"`
	ProjectCompletionRate float64        `json:"project_completion_rate"`
	TaskCompletionRate    float64        `json:"task_completion_rate"`
	RecentProjects        []ProjectBrief `json:"recent_projects"`
	RecentTasks           []TaskBrief    `json:"recent_tasks"`
}

func ZeroData() Data {
	return Data{RecentProjects: []ProjectBrief{}, RecentTasks: []TaskBrief{}}
}

// Activity is one entry of the recent activity feed.
type Activity struct {
	Icon        string `json:"icon"`
	IconColor   string `json:"icon_color"`
	Title       string `json:"title"`
	Description string `json:"description"`
	TimeAgo     string `json:"time_ago"`
}

// DashboardService aggregates project and task statistics.
type DashboardService struct {
	projects *repository.ProjectRepository
	tasks    *repository.TaskRepository
	cache    Cache
}

func NewDashboardService(projects *repository.ProjectRepository, tasks *repository.TaskRepository) *DashboardService {
	return &DashboardService{projects: projects, tasks: tasks}
}

// WithCache makes Data reuse payloads stored in c.
func (s *DashboardService) WithCache(c Cache) *DashboardService {
	s.cache = c
	return s
}

// Summary computes the dashboard page context as of now.
func (s *DashboardService) Summary(ctx context.Context, now time.Time) (Summary, error) {
	today := model.DateOf(now)
	out := ZeroSummary()
	var err error

	if out.ProjectsByStatus, err = s.projects.CountByStatus(ctx); err != nil {
		return out, err
	}
	if out.TasksByStatus, err = s.tasks.CountByStatus(ctx); err != nil {
		return out, err
	}
	out.TotalProjects = sum(out.ProjectsByStatus)
	out.ActiveProjects = out.ProjectsByStatus[model.ProjectInProgress]
	out.CompletedProjects = out.ProjectsByStatus[model.ProjectCompleted]
	out.TotalTasks = sum(out.TasksByStatus)
	out.CompletedTasks = out.TasksByStatus[model.TaskCompleted]
	out.PendingTasks = out.TasksByStatus[model.TaskTodo]

	out.OverdueProjects, err = s.projects.CountOverdue(ctx, today,
		[]model.ProjectStatus{model.ProjectPlanning, model.ProjectInProgress})
	if err != nil {
		return out, err
	}
	out.OverdueTasks, err = s.tasks.CountOverdue(ctx, today,
		[]model.TaskStatus{model.TaskTodo, model.TaskInProgress})
	if err != nil {
		return out, err
	}

	if out.RecentProjects, err = s.projects.Recent(ctx, 5); err != nil {
		return out, err
	}
	if out.RecentTasks, err = s.tasks.Recent(ctx, 10); err != nil {
		return out, err
	}

	out.ProjectCompletionRate = rate(out.CompletedProjects, out.TotalProjects)
	out.TaskCompletionRate = rate(out.CompletedTasks, out.TotalTasks)

	week := make([]WeekDay, 0, weeklyDays)
	for i := 0; i < weeklyDays; i++ {
		day := today.AddDays(-i)
		completed, err := s.tasks.CountCompletedOn(ctx, day)
		if err != nil {
			return out, err
		}
		week = append(week, WeekDay{Date: day.String(), Day: day.Format("Mon"), Completed: completed})
	}
	for i, j := 0, len(week)-1; i < j; i, j = i+1, j-1 {
		week[i], week[j] = week[j], week[i]
	}
	out.WeeklyData = week

	return out, nil
}

const dataCacheKey = "dashboard:data"

// Data computes the live-update payload. The project rate is the share of
// projects in progress.
func (s *DashboardService) Data(ctx context.Context) (Data, error) {
	if s.cache != nil {
		var cached Data
		ok, err := s.cache.Get(ctx, dataCacheKey, &cached)
		if err != nil {
			log.WithError(err).Warn("read dashboard cache")
		} else if ok {
			return cached, nil
		}
	}

	out := ZeroData()
	byStatus, err := s.projects.CountByStatus(ctx)
	if err != nil {
		return out, err
	}
	out.TotalProjects = sum(byStatus)
	out.ActiveProjects = byStatus[model.ProjectInProgress]
	if out.TotalTasks, err = s.tasks.Count(ctx); err != nil {
		return out, err
	}
	taskStatus, err := s.tasks.CountByStatus(ctx)
	if err != nil {
		return out, err
	}
	out.CompletedTasks = taskStatus[model.TaskCompleted]
	out.ProjectCompletionRate = rate(out.ActiveProjects, out.TotalProjects)
	out.TaskCompletionRate = rate(out.CompletedTasks, out.TotalTasks)

	projects, err := s.projects.Recent(ctx, 3)
	if err != nil {
		return out, err
	}
	for i := range projects {
		p := &projects[i]
		out.RecentProjects = append(out.RecentProjects, ProjectBrief{ID: p.ID, Name: p.Name, Status: p.Status, Progress: p.Progress()})
	}
	tasks, err := s.tasks.Recent(ctx, 5)
	if err != nil {
		return out, err
	}
	for i := range tasks {
		t := &tasks[i]
		out.RecentTasks = append(out.RecentTasks, TaskBrief{ID: t.ID, Title: t.Title, Status: t.Status, ProjectName: t.ProjectName()})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dataCacheKey, out); err != nil {
			log.WithError(err).Warn("write dashboard cache")
		}
	}
	return out, nil
}

// RecentActivity builds the feed from four independent queries. Entries keep
// the order the queries run in and are not re-sorted by time.
func (s *DashboardService) RecentActivity(ctx context.Context, now time.Time) ([]Activity, error) {
	since := now.Add(-activityWindow)
	today := model.DateOf(now)
	var feed []Activity

	completed, err := s.projects.CompletedSince(ctx, since, activityPerQuery)
	if err != nil {
		return nil, err
	}
	for _, p := range completed {
		feed = append(feed, Activity{
			Icon:        "fa-check-circle",
			IconColor:   "success",
			Title:       "Project Completed",
			Description: fmt.Sprintf("%s was marked as completed", p.Name),
			TimeAgo:     TimeAgo(now, p.UpdatedAt),
		})
	}

	overdue, err := s.tasks.Overdue(ctx, today, activityPerQuery)
	if err != nil {
		return nil, err
	}
	for _, t := range overdue {
		feed = append(feed, Activity{
			Icon:        "fa-exclamation-triangle",
			IconColor:   "danger",
			Title:       "Task Overdue",
			Description: fmt.Sprintf("%s in %s is past its due date", t.Title, t.ProjectName()),
			TimeAgo:     TimeAgo(now, t.DueDate.Time()),
		})
	}

	created, err := s.projects.CreatedSince(ctx, since, activityPerQuery)
	if err != nil {
		return nil, err
	}
	for _, p := range created {
		feed = append(feed, Activity{
			Icon:        "fa-plus-circle",
			IconColor:   "primary",
			Title:       "New Project Created",
			Description: fmt.Sprintf("%s was created", p.Name),
			TimeAgo:     TimeAgo(now, p.CreatedAt),
		})
	}

	done, err := s.tasks.CompletedSince(ctx, since, activityPerQuery)
	if err != nil {
		return nil, err
	}
	for _, t := range done {
		feed = append(feed, Activity{
			Icon:        "fa-tasks",
			IconColor:   "info",
			Title:       "Task Completed",
			Description: fmt.Sprintf("%s was completed in %s", t.Title, t.ProjectName()),
			TimeAgo:     TimeAgo(now, t.UpdatedAt),
		})
	}

	if len(feed) > activityLimit {
		feed = feed[:activityLimit]
	}
	if feed == nil {
		feed = []Activity{}
	}
	return feed, nil
}

// TimeAgo renders the distance from t to now in coarse English units.
func TimeAgo(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return agoIn(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		return agoIn(int(d/time.Hour), "hour")
	default:
		return agoIn(int(d/(24*time.Hour)), "day")
	}
}

func agoIn(n int, unit string) string {
	return fmt.Sprintf("%d %s ago", n, pluralWord(n, unit))
}

// rate is part/total in percent rounded to one decimal, 0 for an empty total.
func rate(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}

func sum[K comparable](m map[K]int64) int64 {
	var n int64
	for _, v := range m {
		n += v
	}
	return n
}
