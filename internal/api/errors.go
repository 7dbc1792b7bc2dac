package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"project-tracker/internal/repository"
	"project-tracker/internal/validation"
)

// ErrUnauthenticated is returned for protected endpoints without a user.
var ErrUnauthenticated = errors.New("authentication credentials were not provided")

const msgUnauthenticated = "Authentication credentials were not provided."

const maxBodySize = 1 << 20

// malformedError marks request bodies or parameters that could not be parsed.
type malformedError struct {
	msg string
}

func (e *malformedError) Error() string { return e.msg }

type detailBody struct {
	Detail string `json:"detail"`
}

func detail(msg string) detailBody {
	return detailBody{Detail: msg}
}

// respond maps service errors to status codes. Anything unexpected is logged
// and answered with 500.
func (h *handler) respond(c echo.Context, err error) error {
	var (
		verrs     validation.Errors
		malformed *malformedError
	)
	switch {
	case errors.As(err, &verrs):
		return c.JSON(http.StatusBadRequest, verrs)
	case errors.As(err, &malformed):
		return c.JSON(http.StatusBadRequest, detail(malformed.msg))
	case errors.Is(err, errInvalidPage):
		return c.JSON(http.StatusNotFound, detail(errInvalidPage.Error()))
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, detail("Not found."))
	case errors.Is(err, ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, detail(msgUnauthenticated))
	default:
		h.logger.WithError(err).WithFields(log.Fields{
			"method": c.Request().Method,
			"path":   c.Request().URL.Path,
		}).Error("api request failed")
		return c.JSON(http.StatusInternalServerError, detail("A server error occurred."))
	}
}

// decodeBody unmarshals the request body onto dst, leaving fields the body
// does not mention untouched. An empty body decodes as an empty object.
func decodeBody(c echo.Context, dst any) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if err := sonic.ConfigStd.Unmarshal(raw, dst); err != nil {
		return &malformedError{msg: fmt.Sprintf("JSON parse error - %v", err)}
	}
	return nil
}

// pathID parses the :id route parameter. Non-numeric ids cannot match a row.
func pathID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("parse id %q: %w", c.Param("id"), repository.ErrNotFound)
	}
	return uint(id), nil
}
