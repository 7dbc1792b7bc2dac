package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"project-tracker/internal/service"
	"project-tracker/internal/session"
	"project-tracker/internal/validation"
)

const invalidLogin = "Please enter a correct username and password."

type registerPage struct {
	Form   validation.RegistrationForm
	Errors validation.Errors
}

func (h *handler) register(c echo.Context) error {
	if session.CurrentUser(c) != nil {
		return c.Redirect(http.StatusFound, "/home/")
	}
	if c.Request().Method != http.MethodPost {
		return h.render(c, http.StatusOK, "register", "Create account", registerPage{})
	}

	form := validation.RegistrationForm{
		Username:  c.FormValue("username"),
		Email:     c.FormValue("email"),
		FirstName: c.FormValue("first_name"),
		LastName:  c.FormValue("last_name"),
		Password1: c.FormValue("password1"),
		Password2: c.FormValue("password2"),
	}
	user, err := h.svc.Auth.Register(c.Request().Context(), &form)
	form.Password1, form.Password2 = "", ""

	var errs validation.Errors
	switch {
	case errors.As(err, &errs):
		return h.render(c, http.StatusOK, "register", "Create account", registerPage{Form: form, Errors: errs},
			session.Flash{Level: "error", Message: errs.Summary()})
	case err != nil:
		h.logger.WithError(err).WithField("username", form.Username).Error("registration failed")
		return h.render(c, http.StatusOK, "register", "Create account", registerPage{Form: form},
			session.Flash{Level: "error", Message: "An error occurred during registration. Please try again."})
	}

	if err := h.sessions.Login(c, user); err != nil {
		return h.fail(c, err)
	}
	msg := fmt.Sprintf("Welcome %s! Your account has been created successfully.", user.FirstName)
	if err := h.sessions.AddFlash(c, "success", msg); err != nil {
		h.logger.WithError(err).Warn("add welcome flash")
	}
	return c.Redirect(http.StatusFound, "/home/")
}

type loginPage struct {
	Username string
	Next     string
	Errors   validation.Errors
}

func (h *handler) login(c echo.Context) error {
	next := c.QueryParam("next")
	if c.Request().Method == http.MethodPost {
		next = c.FormValue("next")
	}
	if session.CurrentUser(c) != nil {
		return c.Redirect(http.StatusFound, h.afterLogin(next))
	}
	if c.Request().Method != http.MethodPost {
		return h.render(c, http.StatusOK, "login", "Sign in", loginPage{Next: next})
	}

	form := validation.LoginForm{Identifier: c.FormValue("username"), Password: c.FormValue("password")}
	errs := validation.ValidateLogin(&form)
	if errs.Empty() {
		user, err := h.svc.Auth.Authenticate(c.Request().Context(), form.Identifier, form.Password)
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			errs.Add(validation.NonField, invalidLogin)
		case err != nil:
			return h.fail(c, err)
		default:
			if err := h.sessions.Login(c, user); err != nil {
				return h.fail(c, err)
			}
			return c.Redirect(http.StatusFound, h.afterLogin(next))
		}
	}
	return h.render(c, http.StatusOK, "login", "Sign in", loginPage{Username: form.Identifier, Next: next, Errors: errs},
		session.Flash{Level: "error", Message: errs.Summary()})
}

func (h *handler) afterLogin(next string) string {
	if safeNext(next) {
		return next
	}
	return h.loginRedirect
}

func (h *handler) logout(c echo.Context) error {
	user := session.CurrentUser(c)
	if err := h.sessions.Logout(c); err != nil {
		return h.fail(c, err)
	}
	if user != nil {
		msg := fmt.Sprintf("Goodbye %s! You have been logged out successfully.", user.FirstName)
		if err := h.sessions.AddFlash(c, "info", msg); err != nil {
			h.logger.WithError(err).Warn("add goodbye flash")
		}
	}
	return c.Redirect(http.StatusFound, h.logoutRedirect)
}

func (h *handler) profile(c echo.Context) error {
	user := session.CurrentUser(c)
	stats, err := h.svc.Settings.QuickStats(c.Request().Context(), user.ID, h.now())
	if err != nil {
		return h.fail(c, err)
	}
	return h.render(c, http.StatusOK, "profile", "Profile", stats)
}

func (h *handler) changePassword(c echo.Context) error {
	if c.Request().Method != http.MethodPost {
		return h.render(c, http.StatusOK, "change_password", "Change password", nil)
	}
	user := session.CurrentUser(c)
	form := validation.ChangePasswordForm{
		CurrentPassword: c.FormValue("current_password"),
		NewPassword1:    c.FormValue("new_password1"),
		NewPassword2:    c.FormValue("new_password2"),
	}
	err := h.svc.Auth.ChangePassword(c.Request().Context(), user.ID, &form)
	var errs validation.Errors
	switch {
	case errors.As(err, &errs):
		var flashes []session.Flash
		for _, field := range errs.Fields() {
			for _, msg := range errs[field] {
				flashes = append(flashes, session.Flash{Level: "error", Message: msg})
			}
		}
		return h.render(c, http.StatusOK, "change_password", "Change password", nil, flashes...)
	case err != nil:
		return h.fail(c, err)
	}
	// Other sessions and tokens stop matching the new password; this one is reissued.
	if user, err = h.svc.Auth.UserByID(c.Request().Context(), user.ID); err != nil {
		return h.fail(c, err)
	}
	if err := h.sessions.Login(c, user); err != nil {
		return h.fail(c, err)
	}
	if err := h.sessions.AddFlash(c, "success", "Password changed successfully!"); err != nil {
		h.logger.WithError(err).Warn("add password flash")
	}
	return c.Redirect(http.StatusFound, "/users/profile/")
}
