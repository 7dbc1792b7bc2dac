package session

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"project-tracker/internal/model"
)

// CookieName is the browser cookie carrying the session id.
const CookieName = "sessionid"

const (
	userKey      = "session.user"
	sessionIDKey = "session.id"
	viaTokenKey  = "session.token"
)

var (
	errInactiveUser     = errors.New("user is inactive")
	errStaleCredentials = errors.New("password changed since sign-in")
)

// UserLoader resolves a user id stored in a session or token.
type UserLoader interface {
	UserByID(ctx context.Context, id uint) (*model.User, error)
}

// Manager ties the Redis store and bearer tokens to echo requests.
type Manager struct {
	store  *Store
	tokens *Tokens
	users  UserLoader
	logger *log.Logger
	secure bool
}

func NewManager(store *Store, tokens *Tokens, users UserLoader, logger *log.Logger, secureCookie bool) *Manager {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Manager{store: store, tokens: tokens, users: users, logger: logger, secure: secureCookie}
}

func (m *Manager) Tokens() *Tokens { return m.tokens }

// Middleware resolves the current user from the session cookie or, failing
// that, from a bearer token. Requests without either proceed anonymously.
func (m *Manager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if cookie, err := c.Cookie(CookieName); err == nil && cookie.Value != "" {
				data, err := m.store.Get(ctx, cookie.Value)
				switch {
				case err == nil:
					c.Set(sessionIDKey, cookie.Value)
					if data.UserID == 0 {
						break
					}
					err := m.attachUser(c, data.UserID, data.Stamp)
					if errors.Is(err, errStaleCredentials) {
						m.dropSession(c, cookie.Value)
					} else if err != nil {
						m.logger.WithError(err).WithField("user_id", data.UserID).Debug("session user not loaded")
					}
				case errors.Is(err, ErrNoSession):
					m.clearCookie(c)
				default:
					m.logger.WithError(err).Warn("load session")
				}
			}

			if CurrentUser(c) == nil && m.tokens != nil {
				if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
					userID, stamp, err := m.tokens.Subject(header)
					if err == nil {
						err = m.attachUser(c, userID, stamp)
					}
					if err != nil {
						m.logger.WithError(err).Debug("reject bearer token")
					} else {
						c.Set(viaTokenKey, true)
					}
				}
			}
			return next(c)
		}
	}
}

// attachUser makes the user current when it is active and stamp matches its
// present password.
func (m *Manager) attachUser(c echo.Context, id uint, stamp string) error {
	user, err := m.users.UserByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return errInactiveUser
	}
	if stamp != m.stamp(user) {
		return errStaleCredentials
	}
	c.Set(userKey, user)
	return nil
}

func (m *Manager) stamp(user *model.User) string {
	if m.tokens == nil {
		return ""
	}
	return m.tokens.Stamp(user)
}

// dropSession forgets a session whose credentials were revoked.
func (m *Manager) dropSession(c echo.Context, id string) {
	if err := m.store.Delete(c.Request().Context(), id); err != nil {
		m.logger.WithError(err).Warn("delete revoked session")
	}
	c.Set(sessionIDKey, "")
	m.clearCookie(c)
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c echo.Context) *model.User {
	user, _ := c.Get(userKey).(*model.User)
	return user
}

// ViaToken reports whether the request authenticated with a bearer token.
func ViaToken(c echo.Context) bool {
	ok, _ := c.Get(viaTokenKey).(bool)
	return ok
}

func sessionID(c echo.Context) string {
	id, _ := c.Get(sessionIDKey).(string)
	return id
}

// Login starts a new authenticated session for user. Pending flashes of the
// previous session carry over; its id is discarded.
func (m *Manager) Login(c echo.Context, user *model.User) error {
	ctx := c.Request().Context()
	data := Data{UserID: user.ID, Stamp: m.stamp(user)}
	if old := sessionID(c); old != "" {
		if prev, err := m.store.Get(ctx, old); err == nil {
			data.Flashes = prev.Flashes
		}
		if err := m.store.Delete(ctx, old); err != nil {
			return err
		}
	}
	id, err := m.store.Create(ctx, data)
	if err != nil {
		return err
	}
	c.Set(sessionIDKey, id)
	c.Set(userKey, user)
	m.setCookie(c, id)
	return nil
}

// Logout ends the session and forgets the user for the rest of the request.
func (m *Manager) Logout(c echo.Context) error {
	if id := sessionID(c); id != "" {
		if err := m.store.Delete(c.Request().Context(), id); err != nil {
			return err
		}
	}
	c.Set(sessionIDKey, "")
	c.Set(userKey, (*model.User)(nil))
	m.clearCookie(c)
	return nil
}

// AddFlash queues a message for the next page, opening an anonymous session
// when the request has none.
func (m *Manager) AddFlash(c echo.Context, level, message string) error {
	ctx := c.Request().Context()
	flash := Flash{Level: level, Message: message}
	if id := sessionID(c); id != "" {
		err := m.store.AddFlash(ctx, id, flash)
		if !errors.Is(err, ErrNoSession) {
			return err
		}
	}
	id, err := m.store.Create(ctx, Data{Flashes: []Flash{flash}})
	if err != nil {
		return err
	}
	c.Set(sessionIDKey, id)
	m.setCookie(c, id)
	return nil
}

// PopFlashes drains the session's pending messages. Store failures are
// logged and yield no messages.
func (m *Manager) PopFlashes(c echo.Context) []Flash {
	id := sessionID(c)
	if id == "" {
		return nil
	}
	flashes, err := m.store.PopFlashes(c.Request().Context(), id)
	if err != nil && !errors.Is(err, ErrNoSession) {
		m.logger.WithError(err).Warn("pop flashes")
	}
	return flashes
}

func (m *Manager) setCookie(c echo.Context, id string) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(m.store.TTL().Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) clearCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
