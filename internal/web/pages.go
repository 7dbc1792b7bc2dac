package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"project-tracker/internal/metrics"
	"project-tracker/internal/model"
	"project-tracker/internal/repository"
	"project-tracker/internal/service"
	"project-tracker/internal/session"
	"project-tracker/internal/validation"
)

func (h *handler) landing(c echo.Context) error {
	return h.render(c, http.StatusOK, "landing", "Project Tracker", nil)
}

func (h *handler) home(c echo.Context) error {
	return h.render(c, http.StatusOK, "home", "Home", nil)
}

type statusCount struct {
	Key   string
	Label string
	Count int64
}

type dashboardPage struct {
	service.Summary
	ProjectStatuses []statusCount
	TaskStatuses    []statusCount
	Activity        []service.Activity
	ErrorMessage    string
}

// dashboard always answers 200. When the numbers cannot be computed the page
// shows zeroes and an error banner.
func (h *handler) dashboard(c echo.Context) error {
	summary, err := h.svc.Dashboard.Summary(c.Request().Context(), h.now())
	data := dashboardPage{}
	if err != nil {
		metrics.RecordDashboardFailure()
		h.logger.WithError(err).WithFields(log.Fields{"page": "dashboard"}).Error("dashboard summary failed")
		summary = service.ZeroSummary()
		data.ErrorMessage = "Unable to load dashboard data: " + err.Error()
	}
	data.Summary = summary
	for _, s := range model.ProjectStatuses {
		data.ProjectStatuses = append(data.ProjectStatuses, statusCount{Key: string(s), Label: s.Label(), Count: summary.ProjectsByStatus[s]})
	}
	for _, s := range model.TaskStatuses {
		data.TaskStatuses = append(data.TaskStatuses, statusCount{Key: string(s), Label: s.Label(), Count: summary.TasksByStatus[s]})
	}
	if err == nil {
		data.Activity, err = h.svc.Dashboard.RecentActivity(c.Request().Context(), h.now())
		if err != nil {
			h.logger.WithError(err).WithFields(log.Fields{"page": "dashboard"}).Warn("recent activity failed")
		}
	}
	return h.render(c, http.StatusOK, "dashboard", "Dashboard", data)
}

// pager holds the links of a paginated page.
type pager struct {
	Page    int
	Pages   int
	Count   int64
	PrevURL string
	NextURL string
}

func newPager(c echo.Context, q repository.ListQuery, count int64) pager {
	p := pager{Page: q.Page, Count: count, Pages: 1}
	if q.PageSize > 0 && count > 0 {
		p.Pages = int((count + int64(q.PageSize) - 1) / int64(q.PageSize))
	}
	link := func(page int) string {
		params := c.QueryParams()
		values := url.Values{}
		for k, v := range params {
			values[k] = v
		}
		values.Set("page", strconv.Itoa(page))
		return c.Request().URL.Path + "?" + values.Encode()
	}
	if p.Page > 1 {
		p.PrevURL = link(p.Page - 1)
	}
	if p.Page < p.Pages {
		p.NextURL = link(p.Page + 1)
	}
	return p
}

// pageQuery reads the listing parameters shared by the list pages.
func (h *handler) pageQuery(c echo.Context, filters ...string) repository.ListQuery {
	q := repository.ListQuery{
		Filters:  make(map[string]string, len(filters)),
		Search:   strings.TrimSpace(c.QueryParam("search")),
		Ordering: repository.ParseOrdering(c.QueryParam("ordering")),
		Page:     1,
		PageSize: h.pageSize,
	}
	if page, err := strconv.Atoi(c.QueryParam("page")); err == nil && page > 0 {
		q.Page = page
	}
	for _, key := range filters {
		if v := strings.TrimSpace(c.QueryParam(key)); v != "" {
			q.Filters[key] = v
		}
	}
	return q
}

// listIgnoringBadFilters runs list and, when some filter values are
// rejected, drops them from q and lists again. The rejections come back as
// flashes.
func listIgnoringBadFilters[T any](
	ctx context.Context,
	q *repository.ListQuery,
	list func(context.Context, repository.ListQuery) (repository.Page[T], error),
) (repository.Page[T], []session.Flash, error) {
	page, err := list(ctx, *q)
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return page, nil, err
	}
	var flashes []session.Flash
	for _, field := range errs.Fields() {
		delete(q.Filters, field)
		for _, msg := range errs[field] {
			flashes = append(flashes, session.Flash{Level: "error", Message: msg})
		}
	}
	page, err = list(ctx, *q)
	return page, flashes, err
}

type projectsPage struct {
	Projects   []model.Project
	Pager      pager
	Query      repository.ListQuery
	Statuses   []model.ProjectStatus
	Priorities []model.Priority
}

func (h *handler) projects(c echo.Context) error {
	q := h.pageQuery(c, "status", "priority", "category")
	page, flashes, err := listIgnoringBadFilters(c.Request().Context(), &q, h.svc.Projects.List)
	if err != nil {
		return h.fail(c, err)
	}
	return h.render(c, http.StatusOK, "projects", "Projects", projectsPage{
		Projects:   page.Items,
		Pager:      newPager(c, q, page.Count),
		Query:      q,
		Statuses:   model.ProjectStatuses,
		Priorities: model.Priorities,
	}, flashes...)
}

type projectDetailPage struct {
	Project   *model.Project
	Completed int
	Overdue   int
}

func (h *handler) projectDetail(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return h.notFound(c)
	}
	project, err := h.svc.Projects.GetWithTasks(c.Request().Context(), uint(id))
	if errors.Is(err, repository.ErrNotFound) {
		return h.notFound(c)
	}
	if err != nil {
		return h.fail(c, err)
	}
	data := projectDetailPage{Project: project}
	today := model.DateOf(h.now())
	for i := range project.Tasks {
		t := &project.Tasks[i]
		if t.Status == model.TaskCompleted {
			data.Completed++
		}
		if t.IsOverdue(today) {
			data.Overdue++
		}
	}
	return h.render(c, http.StatusOK, "project_detail", project.Name, data)
}

type tasksPage struct {
	Tasks      []model.Task
	Pager      pager
	Query      repository.ListQuery
	Statuses   []model.TaskStatus
	Priorities []model.Priority
}

func (h *handler) tasks(c echo.Context) error {
	q := h.pageQuery(c, "status", "priority", "project")
	page, flashes, err := listIgnoringBadFilters(c.Request().Context(), &q, h.svc.Tasks.List)
	if err != nil {
		return h.fail(c, err)
	}
	return h.render(c, http.StatusOK, "tasks", "Tasks", tasksPage{
		Tasks:      page.Items,
		Pager:      newPager(c, q, page.Count),
		Query:      q,
		Statuses:   model.TaskStatuses,
		Priorities: model.Priorities,
	}, flashes...)
}

type reportsPage struct {
	Report         service.Report
	TotalTasks     int64
	CompletedTasks int64
	Overdue        int
}

func (h *handler) reports(c echo.Context) error {
	report, err := h.svc.Reports.Build(c.Request().Context(), h.now())
	if err != nil {
		return h.fail(c, err)
	}
	data := reportsPage{Report: report}
	for _, row := range report.Projects {
		data.TotalTasks += row.TotalTasks
		data.CompletedTasks += row.CompletedTasks
		if row.Overdue {
			data.Overdue++
		}
	}
	return h.render(c, http.StatusOK, "reports", "Reports", data)
}

type calendarDay struct {
	Date    model.Date
	InMonth bool
	IsToday bool
	Tasks   []model.Task
}

type calendarPage struct {
	Month     string
	PrevMonth string
	NextMonth string
	Weeks     [][]calendarDay
	Weekdays  []string
}

// calendar shows the tasks due in one month, laid out Monday to Sunday.
func (h *handler) calendar(c echo.Context) error {
	now := h.now()
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if raw := c.QueryParam("month"); raw != "" {
		if m, err := time.Parse("2006-01", raw); err == nil {
			month = m
		}
	}
	first := model.DateOf(month)
	last := model.DateOf(month.AddDate(0, 1, -1))

	tasks, err := h.svc.Tasks.DueBetween(c.Request().Context(), first, last)
	if err != nil {
		return h.fail(c, err)
	}
	byDay := make(map[string][]model.Task)
	for _, t := range tasks {
		key := t.DueDate.String()
		byDay[key] = append(byDay[key], t)
	}

	today := model.DateOf(now)
	offset := (int(first.Weekday()) + 6) % 7
	cursor := first.AddDays(-offset)
	var weeks [][]calendarDay
	for !cursor.After(last) {
		week := make([]calendarDay, 0, 7)
		for i := 0; i < 7; i++ {
			week = append(week, calendarDay{
				Date:    cursor,
				InMonth: cursor.Time().Month() == month.Month(),
				IsToday: cursor.Equal(today),
				Tasks:   byDay[cursor.String()],
			})
			cursor = cursor.AddDays(1)
		}
		weeks = append(weeks, week)
	}

	return h.render(c, http.StatusOK, "calendar", "Calendar", calendarPage{
		Month:     month.Format("January 2006"),
		PrevMonth: month.AddDate(0, -1, 0).Format("2006-01"),
		NextMonth: month.AddDate(0, 1, 0).Format("2006-01"),
		Weeks:     weeks,
		Weekdays:  []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"},
	})
}

func (h *handler) team(c echo.Context) error {
	members, err := h.svc.Auth.ActiveUsers(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return h.render(c, http.StatusOK, "team", "Team", members)
}

func (h *handler) settings(c echo.Context) error {
	var settings *model.UserSettings
	if user := session.CurrentUser(c); user != nil {
		var err error
		if settings, err = h.svc.Settings.Get(c.Request().Context(), user.ID); err != nil {
			return h.fail(c, err)
		}
	}
	return h.render(c, http.StatusOK, "settings", "Settings", settings)
}
