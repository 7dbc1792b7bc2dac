package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"project-tracker/internal/model"
	"project-tracker/internal/notify"
	"project-tracker/internal/repository"
	"project-tracker/internal/validation"
)

type fixture struct {
	projects      *repository.ProjectRepository
	categories    *repository.CategoryRepository
	tasks         *repository.TaskRepository
	users         *repository.UserRepository
	settings      *repository.SettingsRepository
	notifications *repository.NotificationRepository
}

func quietLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := repository.NewDB(":memory:", quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return fixture{
		projects:      repository.NewProjectRepository(db),
		categories:    repository.NewCategoryRepository(db),
		tasks:         repository.NewTaskRepository(db),
		users:         repository.NewUserRepository(db),
		settings:      repository.NewSettingsRepository(db),
		notifications: repository.NewNotificationRepository(db),
	}
}

func fieldErrors(t *testing.T, err error) validation.Errors {
	t.Helper()
	var errs validation.Errors
	require.True(t, errors.As(err, &errs), "expected validation errors, got %v", err)
	return errs
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.calls++
	return nil
}

func TestProjectServiceValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewProjectService(f.projects, f.categories)

	in := NewProjectInput()
	in.Status = "DONE"
	missing := uint(42)
	in.CategoryID = &missing
	in.Budget = model.DecimalPtr(-100)
	in.StartDate = model.DatePtr(model.NewDate(2026, 5, 10))
	in.EndDate = model.DatePtr(model.NewDate(2026, 5, 1))

	_, err := svc.Create(ctx, in)
	errs := fieldErrors(t, err)
	assert.Equal(t, []string{"budget", "category_id", "end_date", "name", "status"}, errs.Fields())
	assert.Equal(t, `Invalid pk "42" - object does not exist.`, errs.First("category_id"))
}

func TestProjectServiceCreatePatchDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	inv := &countingInvalidator{}
	categories := NewCategoryService(f.categories)
	svc := NewProjectService(f.projects, f.categories)
	svc.OnWrite(inv)

	cat, err := categories.Create(ctx, CategoryInput{Name: "Client"})
	require.NoError(t, err)

	in := NewProjectInput()
	in.Name = "Website redesign"
	in.CategoryID = &cat.ID
	in.Budget = model.DecimalPtr(1000000)
	p, err := svc.Create(ctx, in)
	require.NoError(t, err)
	require.NotNil(t, p.Category)
	assert.Equal(t, "Client", p.Category.Name)
	assert.Equal(t, model.ProjectPlanning, p.Status)
	assert.Equal(t, 0.0, p.Progress())

	patched, err := svc.Patch(ctx, p.ID, func(in *ProjectInput) error {
		in.Status = model.ProjectInProgress
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.ProjectInProgress, patched.Status)
	assert.Equal(t, "Website redesign", patched.Name)
	require.NotNil(t, patched.Budget)
	assert.Equal(t, "10000.00", patched.Budget.String())

	_, err = svc.Update(ctx, p.ID, NewProjectInput())
	assert.True(t, fieldErrors(t, err).Has("name"))

	require.NoError(t, svc.Delete(ctx, p.ID))
	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 3, inv.calls)
}

func TestCategoryServiceUniqueName(t *testing.T) {
	ctx := context.Background()
	svc := NewCategoryService(newFixture(t).categories)

	first, err := svc.Create(ctx, CategoryInput{Name: "Research"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CategoryInput{Name: "Research"})
	assert.Equal(t, "project category with this name already exists.", fieldErrors(t, err).First("name"))

	desc := "R&D work"
	updated, err := svc.Update(ctx, first.ID, CategoryInput{Name: "Research", Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "R&D work", *updated.Description)

	assert.ErrorIs(t, svc.Delete(ctx, first.ID+10), repository.ErrNotFound)
}

func TestTaskServiceCompletionDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	projects := NewProjectService(f.projects, f.categories)
	svc := NewTaskService(f.tasks, f.projects)
	svc.now = func() time.Time { return time.Date(2026, 4, 2, 15, 0, 0, 0, time.UTC) }

	pin := NewProjectInput()
	pin.Name = "Mobile app"
	p, err := projects.Create(ctx, pin)
	require.NoError(t, err)

	in := NewTaskInput()
	in.Title = "Write tests"
	in.Project = p.ID
	in.DueDate = model.DatePtr(model.NewDate(2026, 3, 30))
	task, err := svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Nil(t, task.CompletedDate)
	assert.Equal(t, "Mobile app", task.ProjectName())
	assert.True(t, task.IsOverdue(model.NewDate(2026, 4, 2)))

	done, err := svc.Patch(ctx, task.ID, func(in *TaskInput) error {
		in.Status = model.TaskCompleted
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, done.CompletedDate)
	assert.Equal(t, "2026-04-02", done.CompletedDate.String())
	assert.False(t, done.IsOverdue(model.NewDate(2026, 4, 2)))

	reopened, err := svc.Patch(ctx, task.ID, func(in *TaskInput) error {
		in.Status = model.TaskInProgress
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, reopened.CompletedDate, "reopening keeps the completion date")

	got, err := projects.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Progress())

	bad := NewTaskInput()
	bad.Title = "Orphan"
	bad.Project = 999
	_, err = svc.Create(ctx, bad)
	assert.Equal(t, `Invalid pk "999" - object does not exist.`, fieldErrors(t, err).First("project"))
}

type memCache struct {
	mu    sync.Mutex
	items map[string]any
	gets  int
}

func (m *memCache) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	v, ok := m.items[key]
	if !ok {
		return false, nil
	}
	*dst.(*Data) = v.(Data)
	return true, nil
}

func (m *memCache) Set(_ context.Context, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func seedDashboard(t *testing.T, f fixture, today model.Date) {
	t.Helper()
	ctx := context.Background()
	statuses := []model.ProjectStatus{model.ProjectInProgress, model.ProjectInProgress, model.ProjectCompleted, model.ProjectPlanning}
	var ids []uint
	for i, st := range statuses {
		p := &model.Project{Name: "P" + string(rune('A'+i)), Status: st, Priority: model.PriorityMedium}
		if st == model.ProjectPlanning {
			p.EstimatedCompletionDate = model.DatePtr(today.AddDays(-1))
		}
		require.NoError(t, f.projects.Create(ctx, p))
		ids = append(ids, p.ID)
	}
	tasks := []model.Task{
		{Title: "t1", Status: model.TaskCompleted, CompletedDate: model.DatePtr(today)},
		{Title: "t2", Status: model.TaskCompleted, CompletedDate: model.DatePtr(today.AddDays(-2))},
		{Title: "t3", Status: model.TaskTodo, DueDate: model.DatePtr(today.AddDays(-3))},
		{Title: "t4", Status: model.TaskInProgress},
	}
	for i := range tasks {
		tasks[i].ProjectID = ids[0]
		tasks[i].Priority = model.PriorityLow
		require.NoError(t, f.tasks.Create(ctx, &tasks[i]))
	}
}

func TestDashboardSummary(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	today := model.DateOf(now)
	seedDashboard(t, f, today)
	svc := NewDashboardService(f.projects, f.tasks)

	s, err := svc.Summary(context.Background(), now)
	require.NoError(t, err)
	assert.EqualValues(t, 4, s.TotalProjects)
	assert.EqualValues(t, 2, s.ActiveProjects)
	assert.EqualValues(t, 1, s.CompletedProjects)
	assert.EqualValues(t, 1, s.OverdueProjects)
	assert.EqualValues(t, 4, s.TotalTasks)
	assert.EqualValues(t, 2, s.CompletedTasks)
	assert.EqualValues(t, 1, s.PendingTasks)
	assert.EqualValues(t, 1, s.OverdueTasks)
	assert.Equal(t, 25.0, s.ProjectCompletionRate)
	assert.Equal(t, 50.0, s.TaskCompletionRate)
	assert.EqualValues(t, 0, s.ProjectsByStatus[model.ProjectCancelled])
	assert.Len(t, s.RecentProjects, 4)
	assert.Len(t, s.RecentTasks, 4)

	require.Len(t, s.WeeklyData, 7)
	assert.Equal(t, today.AddDays(-6).String(), s.WeeklyData[0].Date)
	assert.Equal(t, today.String(), s.WeeklyData[6].Date)
	assert.Equal(t, today.Format("Mon"), s.WeeklyData[6].Day)
	assert.EqualValues(t, 1, s.WeeklyData[6].Completed)
	assert.EqualValues(t, 1, s.WeeklyData[4].Completed)
}

func TestDashboardDataUsesActiveRateAndCache(t *testing.T) {
	f := newFixture(t)
	seedDashboard(t, f, model.DateOf(time.Now()))
	cache := &memCache{items: map[string]any{}}
	svc := NewDashboardService(f.projects, f.tasks).WithCache(cache)

	d, err := svc.Data(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50.0, d.ProjectCompletionRate)
	assert.Equal(t, 50.0, d.TaskCompletionRate)
	assert.Len(t, d.RecentProjects, 3)
	assert.Len(t, d.RecentTasks, 4)
	assert.Equal(t, "PA", d.RecentTasks[0].ProjectName)

	require.NoError(t, f.projects.Create(context.Background(), &model.Project{Name: "late", Status: model.ProjectPlanning, Priority: model.PriorityLow}))
	again, err := svc.Data(context.Background())
	require.NoError(t, err)
	assert.Equal(t, d.TotalProjects, again.TotalProjects, "served from cache")
	assert.Equal(t, 2, cache.gets)
}

func TestZeroPayloads(t *testing.T) {
	s := ZeroSummary()
	assert.Len(t, s.TasksByStatus, len(model.TaskStatuses))
	assert.Len(t, s.ProjectsByStatus, len(model.ProjectStatuses))
	assert.NotNil(t, s.WeeklyData)

	d := ZeroData()
	assert.NotNil(t, d.RecentProjects)
	assert.NotNil(t, d.RecentTasks)
}

func TestRecentActivityKeepsQueryOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Now()
	today := model.DateOf(now)

	var first uint
	for i := 0; i < 3; i++ {
		p := &model.Project{Name: "Done", Status: model.ProjectCompleted, Priority: model.PriorityLow}
		require.NoError(t, f.projects.Create(ctx, p))
		first = p.ID
	}
	for i := 0; i < 3; i++ {
		task := &model.Task{ProjectID: first, Title: "Late", Status: model.TaskTodo, Priority: model.PriorityLow,
			DueDate: model.DatePtr(today.AddDays(-2))}
		require.NoError(t, f.tasks.Create(ctx, task))
	}

	feed, err := NewDashboardService(f.projects, f.tasks).RecentActivity(ctx, now)
	require.NoError(t, err)
	require.Len(t, feed, 5)
	titles := make([]string, len(feed))
	for i, a := range feed {
		titles[i] = a.Title
	}
	assert.Equal(t, []string{"Project Completed", "Project Completed", "Task Overdue", "Task Overdue", "New Project Created"}, titles)
	assert.Equal(t, "fa-exclamation-triangle", feed[2].Icon)
	assert.Equal(t, "danger", feed[2].IconColor)
	assert.Equal(t, "just now", feed[0].TimeAgo)

	g := newFixture(t)
	empty, err := NewDashboardService(g.projects, g.tasks).RecentActivity(ctx, now)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "just now", TimeAgo(now, now.Add(-30*time.Second)))
	assert.Equal(t, "1 minute ago", TimeAgo(now, now.Add(-time.Minute)))
	assert.Equal(t, "5 minutes ago", TimeAgo(now, now.Add(-5*time.Minute)))
	assert.Equal(t, "3 hours ago", TimeAgo(now, now.Add(-3*time.Hour)))
	assert.Equal(t, "2 days ago", TimeAgo(now, now.Add(-49*time.Hour)))
}

func newAuth(f fixture) *AuthService {
	return NewAuthService(f.users).WithCost(bcrypt.MinCost)
}

func registration() *validation.RegistrationForm {
	return &validation.RegistrationForm{
		Username:  "jdoe",
		Email:     "jdoe@example.com",
		FirstName: "john",
		LastName:  "doe",
		Password1: "Secur3Pass",
		Password2: "Secur3Pass",
	}
}

func TestAuthRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newAuth(f)

	user, err := svc.Register(ctx, registration())
	require.NoError(t, err)
	assert.Equal(t, "John", user.FirstName)
	assert.NotEqual(t, "Secur3Pass", user.PasswordHash)
	require.NotNil(t, user.Settings)

	byEmail, err := svc.Authenticate(ctx, " jdoe@example.com ", "Secur3Pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byName, err := svc.Authenticate(ctx, "jdoe", "Secur3Pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "Secur3Pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "jdoe", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Register(ctx, registration())
	errs := fieldErrors(t, err)
	assert.True(t, errs.Has("username"))
	assert.True(t, errs.Has("email"))
}

func TestAuthRegisterRejectsReservedAndMismatch(t *testing.T) {
	ctx := context.Background()
	svc := newAuth(newFixture(t))

	form := registration()
	form.Username = "admin"
	_, err := svc.Register(ctx, form)
	assert.True(t, fieldErrors(t, err).Has("username"))

	form = registration()
	form.Password2 = "Different1"
	_, err = svc.Register(ctx, form)
	assert.True(t, fieldErrors(t, err).Has(validation.NonField))
}

func TestAuthChangePassword(t *testing.T) {
	ctx := context.Background()
	svc := newAuth(newFixture(t))
	user, err := svc.Register(ctx, registration())
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, user.ID, &validation.ChangePasswordForm{CurrentPassword: "nope", NewPassword1: "NewPass123", NewPassword2: "NewPass123"})
	assert.Equal(t, "Current password is incorrect.", fieldErrors(t, err).First("current_password"))

	err = svc.ChangePassword(ctx, user.ID, &validation.ChangePasswordForm{CurrentPassword: "Secur3Pass", NewPassword1: "NewPass123", NewPassword2: "NewPass124"})
	assert.True(t, fieldErrors(t, err).Has(validation.NonField))

	require.NoError(t, svc.ChangePassword(ctx, user.ID, &validation.ChangePasswordForm{CurrentPassword: "Secur3Pass", NewPassword1: "NewPass123", NewPassword2: "NewPass123"}))
	_, err = svc.Authenticate(ctx, "jdoe", "NewPass123")
	assert.NoError(t, err)
}

func TestSettingsServiceUpdateAndStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user, err := newAuth(f).Register(ctx, registration())
	require.NoError(t, err)
	svc := NewSettingsService(f.settings, f.notifications, f.projects, f.tasks)

	updated, err := svc.Update(ctx, user.ID, func(s *model.UserSettings) error {
		s.Theme = "dark"
		s.ItemsPerPage = 50
		s.UserID = 999
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "dark", updated.Theme)
	assert.Equal(t, user.ID, updated.UserID)

	_, err = svc.Update(ctx, user.ID, func(s *model.UserSettings) error {
		s.Theme = "neon"
		s.ItemsPerPage = 1
		s.RefreshInterval = 5
		return nil
	})
	assert.Equal(t, []string{"items_per_page", "refresh_interval", "theme"}, fieldErrors(t, err).Fields())

	stored, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, stored.ItemsPerPage)

	now := time.Now()
	seedDashboard(t, f, model.DateOf(now))
	_, err = svc.Notify(ctx, user.ID, "hello")
	require.NoError(t, err)

	stats, err := svc.QuickStats(ctx, user.ID, now)
	require.NoError(t, err)
	assert.EqualValues(t, 4, stats.TotalProjects)
	assert.EqualValues(t, 2, stats.CompletedTasks)
	assert.EqualValues(t, 1, stats.OverdueTasks)
	assert.EqualValues(t, 1, stats.UnreadNotifications)

	changed, err := svc.MarkAllRead(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, changed)
}

var _ notify.Notifier = (*fakeNotifier)(nil)

type fakeNotifier struct {
	chats []int64
	texts []string
	err   error
}

func (n *fakeNotifier) Notify(_ context.Context, chatID int64, text string) error {
	n.chats = append(n.chats, chatID)
	n.texts = append(n.texts, text)
	return n.err
}

func TestReminderSweep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	auth := newAuth(f)
	settings := NewSettingsService(f.settings, f.notifications, f.projects, f.tasks)

	linked, err := auth.Register(ctx, registration())
	require.NoError(t, err)
	_, err = settings.Update(ctx, linked.ID, func(s *model.UserSettings) error {
		s.TelegramChatID = 777
		return nil
	})
	require.NoError(t, err)
	other := registration()
	other.Username, other.Email = "asmith", "asmith@example.com"
	_, err = auth.Register(ctx, other)
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	svc := NewReminderService(f.tasks, f.users, f.notifications, notifier, quietLogger())
	now := time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)

	res, err := svc.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, res, "nothing overdue, nothing sent")

	p := &model.Project{Name: "Ops <core>", Status: model.ProjectInProgress, Priority: model.PriorityHigh}
	require.NoError(t, f.projects.Create(ctx, p))
	require.NoError(t, f.tasks.Create(ctx, &model.Task{ProjectID: p.ID, Title: "Renew certs", Status: model.TaskTodo,
		Priority: model.PriorityHigh, DueDate: model.DatePtr(model.NewDate(2026, 6, 12))}))

	res, err = svc.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{OverdueTasks: 1, Notified: 2, Pushed: 1}, res)
	require.Equal(t, []int64{777}, notifier.chats)
	assert.Contains(t, notifier.texts[0], "<b>You have 1 overdue task:</b>")
	assert.Contains(t, notifier.texts[0], "Ops &lt;core&gt;")

	list, err := settings.Notifications(ctx, linked.ID, true, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "You have 1 overdue task:\n⚠️ Renew certs (Ops <core>), due 2026-06-12, 3 days late", list[0].Message)

	notifier.err = errors.New("telegram down")
	res, err = svc.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.PushFailures)
}

func TestReportBuild(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Now()
	seedDashboard(t, f, model.DateOf(now))

	report, err := NewReportService(f.projects).Build(ctx, now)
	require.NoError(t, err)
	require.Len(t, report.Projects, 4)
	byName := map[string]ProjectRow{}
	for _, row := range report.Projects {
		byName[row.Name] = row
	}
	assert.EqualValues(t, 4, byName["PA"].TotalTasks)
	assert.EqualValues(t, 2, byName["PA"].CompletedTasks)
	assert.Equal(t, 50.0, byName["PA"].Progress)
	assert.True(t, byName["PD"].Overdue)
	assert.Equal(t, 0.0, byName["PB"].Progress)
}

func TestSchedulerSpecs(t *testing.T) {
	spec, err := buildDailySpec("09:05")
	require.NoError(t, err)
	assert.Equal(t, "0 5 9 * * *", spec)

	for _, bad := range []string{"9", "24:00", "10:60", "aa:bb"} {
		_, err := buildDailySpec(bad)
		assert.Error(t, err, bad)
	}

	s := NewSchedulerService(time.UTC, quietLogger())
	_, err = s.ScheduleInterval(0, "noop", func(context.Context) error { return nil })
	assert.Error(t, err)
	_, err = s.ScheduleDaily("09:00", "reminders", func(context.Context) error { return nil })
	require.NoError(t, err)
	id, err := s.ScheduleInterval(1500*time.Millisecond, "rate-limit-cleanup", func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, cron.ConstantDelaySchedule{Delay: time.Second}, s.cron.Entry(id).Schedule)
	assert.Equal(t, 2, s.Entries())
	s.Start()
	s.Stop()
}

func TestSchedulerWrapRunsJobWithContext(t *testing.T) {
	s := NewSchedulerService(time.UTC, quietLogger())
	ran := false
	s.wrap("deadline", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		ran = ok
		return errors.New("logged, not returned")
	})()
	assert.True(t, ran)
}
