// Package web serves the server-rendered pages and the browser auth flow.
package web

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"project-tracker/internal/middleware"
	"project-tracker/internal/model"
	"project-tracker/internal/service"
	"project-tracker/internal/session"
)

// CSRFField is the form field carrying the CSRF token.
const CSRFField = "csrfmiddlewaretoken"

const csrfContextKey = "csrf"

// Services bundles the domain services the pages read from.
type Services struct {
	Projects  *service.ProjectService
	Tasks     *service.TaskService
	Dashboard *service.DashboardService
	Settings  *service.SettingsService
	Auth      *service.AuthService
	Reports   *service.ReportService
}

// Config carries the web surface settings.
type Config struct {
	Sessions          *session.Manager
	LoginRedirectURL  string
	LogoutRedirectURL string
	PageSize          int
	// Limiter throttles login and registration posts; nil disables it.
	Limiter *middleware.RateLimiter
	Logger  *log.Logger
	Now     func() time.Time
}

type handler struct {
	svc            Services
	sessions       *session.Manager
	loginRedirect  string
	logoutRedirect string
	pageSize       int
	logger         *log.Logger
	now            func() time.Time
}

// Register wires the HTML pages onto e and installs the template renderer.
// The session middleware must run before these routes.
func Register(e *echo.Echo, svc Services, cfg Config) error {
	renderer, err := NewRenderer()
	if err != nil {
		return err
	}
	e.Renderer = renderer

	h := &handler{
		svc:            svc,
		sessions:       cfg.Sessions,
		loginRedirect:  cfg.LoginRedirectURL,
		logoutRedirect: cfg.LogoutRedirectURL,
		pageSize:       cfg.PageSize,
		logger:         cfg.Logger,
		now:            cfg.Now,
	}
	if h.loginRedirect == "" {
		h.loginRedirect = "/dashboard/"
	}
	if h.logoutRedirect == "" {
		h.logoutRedirect = "/"
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

	var throttle []echo.MiddlewareFunc
	if cfg.Limiter != nil {
		throttle = append(throttle, cfg.Limiter.Middleware(func(c echo.Context) bool {
			return c.Request().Method != http.MethodPost
		}))
	}

	e.GET("/", h.landing)
	e.GET("/home/", h.home)
	e.GET("/dashboard/", h.dashboard)
	e.GET("/projects/", h.projects)
	e.GET("/projects/:id/", h.projectDetail)
	e.GET("/tasks/", h.tasks)
	e.GET("/reports/", h.reports)
	e.GET("/calendar/", h.calendar)
	e.GET("/team/", h.team, LoginRequired)
	e.GET("/settings/", h.settings)

	users := e.Group("/users")
	users.Match([]string{http.MethodGet, http.MethodPost}, "/register/", h.register, throttle...)
	users.Match([]string{http.MethodGet, http.MethodPost}, "/login/", h.login, throttle...)
	users.Match([]string{http.MethodGet, http.MethodPost}, "/logout/", h.logout)
	users.GET("/profile/", h.profile, LoginRequired)
	users.Match([]string{http.MethodGet, http.MethodPost}, "/change-password/", h.changePassword, LoginRequired)
	return nil
}

// CSRF protects form posts with a cookie-bound token read from the
// csrfmiddlewaretoken field or the X-CSRFToken header. JSON API paths and
// bearer-token requests are exempt.
func CSRF(secure bool) echo.MiddlewareFunc {
	return echomw.CSRFWithConfig(echomw.CSRFConfig{
		Skipper:        csrfExempt,
		TokenLookup:    "form:" + CSRFField + ",header:X-CSRFToken",
		ContextKey:     csrfContextKey,
		CookieName:     "csrftoken",
		CookiePath:     "/",
		CookieSecure:   secure,
		CookieSameSite: http.SameSiteLaxMode,
	})
}

func csrfExempt(c echo.Context) bool {
	p := c.Request().URL.Path
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ") {
		return true
	}
	return strings.HasPrefix(p, "/api/") ||
		p == "/users/api-token/" ||
		p == "/metrics" ||
		p == "/healthz"
}

// LoginRequired sends anonymous visitors to the login page, remembering where
// they were going.
func LoginRequired(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if session.CurrentUser(c) == nil {
			target := "/users/login/?next=" + url.QueryEscape(c.Request().URL.RequestURI())
			return c.Redirect(http.StatusFound, target)
		}
		return next(c)
	}
}

// safeNext accepts only same-site absolute paths.
func safeNext(next string) bool {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return false
	}
	u, err := url.Parse(next)
	return err == nil && u.Scheme == "" && u.Host == ""
}

// page is the context every template receives.
type page struct {
	Title   string
	Nav     string
	User    *model.User
	Flashes []session.Flash
	CSRF    string
	Today   model.Date
	Data    any
}

func (h *handler) render(c echo.Context, status int, name, title string, data any, extra ...session.Flash) error {
	csrf, _ := c.Get(csrfContextKey).(string)
	p := page{
		Title:   title,
		Nav:     name,
		User:    session.CurrentUser(c),
		Flashes: append(h.sessions.PopFlashes(c), extra...),
		CSRF:    csrf,
		Today:   model.DateOf(h.now()),
		Data:    data,
	}
	return c.Render(status, name, p)
}

// fail logs an unexpected error and shows the generic error page.
func (h *handler) fail(c echo.Context, err error) error {
	h.logger.WithError(err).WithFields(log.Fields{
		"method": c.Request().Method,
		"path":   c.Request().URL.Path,
	}).Error("page failed")
	return h.render(c, http.StatusInternalServerError, "error", "Server error", errorPage{
		Code:    http.StatusInternalServerError,
		Message: "Something went wrong on our side. Please try again.",
	})
}

type errorPage struct {
	Code    int
	Message string
}

func (h *handler) notFound(c echo.Context) error {
	return h.render(c, http.StatusNotFound, "error", "Not found", errorPage{
		Code:    http.StatusNotFound,
		Message: "The page you were looking for does not exist.",
	})
}
