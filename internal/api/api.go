// Package api serves the JSON REST interface.
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"project-tracker/internal/middleware"
	"project-tracker/internal/service"
	"project-tracker/internal/session"
)

// Services bundles the domain services the API exposes.
type Services struct {
	Projects   *service.ProjectService
	Categories *service.CategoryService
	Tasks      *service.TaskService
	Dashboard  *service.DashboardService
	Settings   *service.SettingsService
	Auth       *service.AuthService
	Reports    *service.ReportService
}

// Config carries request-independent API settings.
type Config struct {
	PageSize int
	Tokens   *session.Tokens
	// Limiter throttles the token endpoint; nil disables throttling.
	Limiter *middleware.RateLimiter
	Logger  *log.Logger
	Now     func() time.Time
}

type handler struct {
	svc      Services
	pageSize int
	tokens   *session.Tokens
	logger   *log.Logger
	now      func() time.Time
}

// Register wires up all API routes on the provided Echo instance. The
// session middleware must run before these routes for the authenticated
// endpoints to see the current user.
func Register(e *echo.Echo, svc Services, cfg Config) {
	h := &handler{
		svc:      svc,
		pageSize: cfg.PageSize,
		tokens:   cfg.Tokens,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
	if h.pageSize <= 0 {
		h.pageSize = 25
	}
	if h.logger == nil {
		h.logger = log.StandardLogger()
	}
	if h.now == nil {
		h.now = time.Now
	}

	projects := e.Group("/api/projects")
	projects.GET("/projects/", h.listProjects)
	projects.POST("/projects/", h.createProject)
	projects.GET("/projects/:id/", h.getProject)
	projects.PUT("/projects/:id/", h.updateProject)
	projects.PATCH("/projects/:id/", h.patchProject)
	projects.DELETE("/projects/:id/", h.deleteProject)
	projects.GET("/project-categories/", h.listCategories)
	projects.POST("/project-categories/", h.createCategory)
	projects.GET("/project-categories/:id/", h.getCategory)
	projects.PUT("/project-categories/:id/", h.updateCategory)
	projects.PATCH("/project-categories/:id/", h.patchCategory)
	projects.DELETE("/project-categories/:id/", h.deleteCategory)

	tasks := e.Group("/api/tasks")
	tasks.GET("/tasks/", h.listTasks)
	tasks.POST("/tasks/", h.createTask)
	tasks.GET("/tasks/:id/", h.getTask)
	tasks.PUT("/tasks/:id/", h.updateTask)
	tasks.PATCH("/tasks/:id/", h.patchTask)
	tasks.DELETE("/tasks/:id/", h.deleteTask)

	e.GET("/api/dashboard/data/", h.dashboardData)
	e.GET("/api/recent-activity/", h.recentActivity)

	users := e.Group("/users/api", requireUser)
	users.GET("/settings/", h.getSettings)
	users.PUT("/settings/", h.updateSettings)
	users.PATCH("/settings/", h.updateSettings)
	users.GET("/quick-stats/", h.quickStats)
	users.GET("/notifications/", h.listNotifications)
	users.POST("/notifications/read-all/", h.markAllRead)
	users.POST("/notifications/:id/read/", h.markRead)

	if cfg.Limiter != nil {
		e.POST("/users/api-token/", h.issueToken, cfg.Limiter.Middleware(nil))
	} else {
		e.POST("/users/api-token/", h.issueToken)
	}
	e.GET("/reports/export/", h.exportReport, requireUser)

	e.GET("/healthz", healthz)
}

func healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// requireUser answers 401 unless a session or bearer token identified a user.
func requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if session.CurrentUser(c) == nil {
			return c.JSON(http.StatusUnauthorized, detail(msgUnauthenticated))
		}
		return next(c)
	}
}
