package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-tracker/internal/model"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client, time.Hour), m
}

type users map[uint]*model.User

func (u users) UserByID(_ context.Context, id uint) (*model.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, errors.New("not found")
}

func newManager(t *testing.T) (*Manager, *Store, *miniredis.Miniredis) {
	t.Helper()
	store, m := newStore(t)
	logger := log.New()
	logger.SetOutput(io.Discard)
	known := users{
		7: {ID: 7, Username: "jane", IsActive: true},
		8: {ID: 8, Username: "gone", IsActive: false},
	}
	return NewManager(store, NewTokens([]byte("secret"), time.Hour), known, logger, false), store, m
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store, m := newStore(t)

	id, err := store.Create(ctx, Data{UserID: 3})
	require.NoError(t, err)
	data, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 3, data.UserID)
	assert.False(t, data.CreatedAt.IsZero())

	m.FastForward(30 * time.Minute)
	_, err = store.Get(ctx, id)
	require.NoError(t, err)
	m.FastForward(45 * time.Minute)
	_, err = store.Get(ctx, id)
	require.NoError(t, err, "reads slide the expiry")

	require.NoError(t, store.Touch(ctx, id))
	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, store.Touch(ctx, id), ErrNoSession)

	_, err = store.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestStoreExpires(t *testing.T) {
	ctx := context.Background()
	store, m := newStore(t)
	id, err := store.Create(ctx, Data{UserID: 1})
	require.NoError(t, err)
	m.FastForward(2 * time.Hour)
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestStoreFlashes(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)
	id, err := store.Create(ctx, Data{})
	require.NoError(t, err)

	require.NoError(t, store.AddFlash(ctx, id, Flash{Level: "success", Message: "one"}))
	require.NoError(t, store.AddFlash(ctx, id, Flash{Level: "info", Message: "two"}))
	flashes, err := store.PopFlashes(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []Flash{{"success", "one"}, {"info", "two"}}, flashes)

	flashes, err = store.PopFlashes(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, flashes)
}

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens([]byte("secret"), time.Hour)
	user := &model.User{ID: 42, PasswordHash: "hash"}
	signed, expires, err := tokens.Issue(user)
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	id, stamp, err := tokens.Subject("Bearer " + signed)
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
	assert.Equal(t, tokens.Stamp(user), stamp)

	_, _, err = tokens.Subject("")
	assert.EqualError(t, err, "missing authorization header")
	_, _, err = tokens.Subject("Token abc.def.ghi")
	assert.EqualError(t, err, "bad auth header")

	other := NewTokens([]byte("other"), time.Hour)
	_, _, err = other.Subject("Bearer " + signed)
	assert.Error(t, err)
}

func TestTokensRejectExpiredAndForeign(t *testing.T) {
	tokens := NewTokens([]byte("secret"), time.Hour)
	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _, err := tokens.Issue(&model.User{ID: 1})
	require.NoError(t, err)
	_, _, err = tokens.Subject("Bearer " + stale)
	assert.Error(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := foreign.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, _, err = tokens.Subject("Bearer " + signed)
	assert.EqualError(t, err, "invalid issuer")
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			found = c
		}
	}
	require.NotNil(t, found, "no session cookie set")
	return found
}

func TestManagerLoginLogoutFlow(t *testing.T) {
	mgr, _, _ := newManager(t)
	e := echo.New()
	e.Use(mgr.Middleware())
	e.POST("/login", func(c echo.Context) error {
		if err := mgr.AddFlash(c, "info", "before login"); err != nil {
			return err
		}
		return mgr.Login(c, &model.User{ID: 7, Username: "jane", IsActive: true})
	})
	e.GET("/me", func(c echo.Context) error {
		user := CurrentUser(c)
		if user == nil {
			return c.String(http.StatusUnauthorized, "anonymous")
		}
		flashes := mgr.PopFlashes(c)
		msg := user.Username
		for _, f := range flashes {
			msg += "|" + f.Message
		}
		return c.String(http.StatusOK, msg)
	})
	e.POST("/logout", func(c echo.Context) error {
		if err := mgr.Logout(c); err != nil {
			return err
		}
		return mgr.AddFlash(c, "info", "Goodbye")
	})

	rec := serve(e, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	rec = serve(e, req)
	assert.Equal(t, "jane|before login", rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookie)
	rec = serve(e, req)
	require.Equal(t, http.StatusOK, rec.Code)
	anon := sessionCookie(t, rec)
	assert.NotEqual(t, cookie.Value, anon.Value)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(cookie)
	rec = serve(e, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestManagerBearerToken(t *testing.T) {
	mgr, _, _ := newManager(t)
	e := echo.New()
	e.Use(mgr.Middleware())
	e.GET("/me", func(c echo.Context) error {
		if user := CurrentUser(c); user != nil && ViaToken(c) {
			return c.String(http.StatusOK, user.Username)
		}
		return c.NoContent(http.StatusUnauthorized)
	})

	token, _, err := mgr.Tokens().Issue(&model.User{ID: 7})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jane", rec.Body.String())

	inactive, _, err := mgr.Tokens().Issue(&model.User{ID: 8})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+inactive)
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)
}

func TestManagerClearsUnknownCookie(t *testing.T) {
	mgr, _, _ := newManager(t)
	e := echo.New()
	e.Use(mgr.Middleware())
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "1b4e28ba-2fa1-11d2-883f-0016d3cca427"})
	rec := serve(e, req)
	cookie := sessionCookie(t, rec)
	assert.Equal(t, "", cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestStampChangesWithPassword(t *testing.T) {
	tokens := NewTokens([]byte("secret"), time.Hour)
	before := tokens.Stamp(&model.User{ID: 1, PasswordHash: "old"})
	assert.Len(t, before, 32)
	assert.Equal(t, before, tokens.Stamp(&model.User{ID: 1, PasswordHash: "old"}))
	assert.NotEqual(t, before, tokens.Stamp(&model.User{ID: 1, PasswordHash: "new"}))
	assert.NotEqual(t, before, NewTokens([]byte("other"), time.Hour).Stamp(&model.User{ID: 1, PasswordHash: "old"}))
}

func TestManagerRevokesAfterPasswordChange(t *testing.T) {
	store, _ := newStore(t)
	logger := log.New()
	logger.SetOutput(io.Discard)
	jane := &model.User{ID: 7, Username: "jane", PasswordHash: "old", IsActive: true}
	mgr := NewManager(store, NewTokens([]byte("secret"), time.Hour), users{7: jane}, logger, false)

	e := echo.New()
	e.Use(mgr.Middleware())
	e.POST("/login", func(c echo.Context) error {
		return mgr.Login(c, &model.User{ID: 7, Username: "jane", PasswordHash: jane.PasswordHash, IsActive: true})
	})
	e.GET("/me", func(c echo.Context) error {
		if CurrentUser(c) == nil {
			return c.NoContent(http.StatusUnauthorized)
		}
		return c.NoContent(http.StatusOK)
	})

	cookie := sessionCookie(t, serve(e, httptest.NewRequest(http.MethodPost, "/login", nil)))
	token, _, err := mgr.Tokens().Issue(jane)
	require.NoError(t, err)

	me := func(cookie *http.Cookie, bearer string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if cookie != nil {
			req.AddCookie(cookie)
		}
		if bearer != "" {
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
		}
		return serve(e, req)
	}
	require.Equal(t, http.StatusOK, me(cookie, "").Code)
	require.Equal(t, http.StatusOK, me(nil, token).Code)

	jane.PasswordHash = "new"

	rec := me(cookie, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	cleared := sessionCookie(t, rec)
	assert.Less(t, cleared.MaxAge, 0)
	_, err = store.Get(context.Background(), cookie.Value)
	assert.ErrorIs(t, err, ErrNoSession)

	assert.Equal(t, http.StatusUnauthorized, me(nil, token).Code)

	fresh, _, err := mgr.Tokens().Issue(jane)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, me(nil, fresh).Code)
}
