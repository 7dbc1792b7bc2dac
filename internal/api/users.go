package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"project-tracker/internal/export"
	"project-tracker/internal/model"
	"project-tracker/internal/service"
	"project-tracker/internal/session"
	"project-tracker/internal/validation"
)

const notificationLimit = 50

func currentUser(c echo.Context) (*model.User, error) {
	user := session.CurrentUser(c)
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

func (h *handler) getSettings(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return h.respond(c, err)
	}
	settings, err := h.svc.Settings.Get(c.Request().Context(), user.ID)
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(http.StatusOK, settings)
}

// updateSettings serves both PUT and PATCH. Every settings field has a
// default, so a full update is a partial update that mentions every field.
func (h *handler) updateSettings(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return h.respond(c, err)
	}
	settings, err := h.svc.Settings.Update(c.Request().Context(), user.ID, func(st *model.UserSettings) error {
		return decodeBody(c, st)
	})
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(http.StatusOK, settings)
}

func (h *handler) quickStats(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return h.respond(c, err)
	}
	stats, err := h.svc.Settings.QuickStats(c.Request().Context(), user.ID, h.now())
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *handler) listNotifications(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return h.respond(c, err)
	}
	unread, _ := strconv.ParseBool(c.QueryParam("unread"))
	items, err := h.svc.Settings.Notifications(c.Request().Context(), user.ID, unread, notificationLimit)
	if err != nil {
		return h.respond(c, err)
	}
	out := make([]notificationJSON, 0, len(items))
	for i := range items {
		out = append(out, newNotificationJSON(&items[i]))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handler) markRead(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return h.respond(c, err)
	}
	id, err := pathID(c)
	if err != nil {
		return h.respond(c, err)
	}
	if err := h.svc.Settings.MarkRead(c.Request().Context(), user.ID, id); err != nil {
		return h.respond(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *handler) markAllRead(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return h.respond(c, err)
	}
	n, err := h.svc.Settings.MarkAllRead(c.Request().Context(), user.ID)
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "updated": n})
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// issueToken exchanges a username (or email) and password for a bearer token.
func (h *handler) issueToken(c echo.Context) error {
	if h.tokens == nil {
		return c.JSON(http.StatusNotFound, detail("Not found."))
	}
	var req tokenRequest
	if err := decodeBody(c, &req); err != nil {
		return h.respond(c, err)
	}
	form := validation.LoginForm{Identifier: req.Username, Password: req.Password}
	if errs := validation.ValidateLogin(&form); !errs.Empty() {
		return c.JSON(http.StatusBadRequest, errs)
	}
	user, err := h.svc.Auth.Authenticate(c.Request().Context(), form.Identifier, form.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		return c.JSON(http.StatusBadRequest, validation.Errors{
			"non_field_errors": {"Unable to log in with provided credentials."},
		})
	}
	if err != nil {
		return h.respond(c, err)
	}
	token, expires, err := h.tokens.Issue(user)
	if err != nil {
		return h.respond(c, err)
	}
	return c.JSON(http.StatusOK, tokenResponse{Token: token, ExpiresAt: expires})
}

func (h *handler) exportReport(c echo.Context) error {
	format := c.QueryParam("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "json" {
		return c.JSON(http.StatusBadRequest, detail(fmt.Sprintf("Unsupported format %q.", format)))
	}
	now := h.now()
	report, err := h.svc.Reports.Build(c.Request().Context(), now)
	if err != nil {
		return h.respond(c, err)
	}

	filename := fmt.Sprintf("projects-%s.%s", now.Format("20060102"), format)
	res := c.Response()
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	if format == "json" {
		res.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSONCharsetUTF8)
		res.WriteHeader(http.StatusOK)
		return export.WriteJSON(res, report)
	}
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.WriteHeader(http.StatusOK)
	return export.WriteCSV(res, report)
}
