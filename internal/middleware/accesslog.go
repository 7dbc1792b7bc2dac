package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// AccessLog writes one structured entry per request. Server errors log at
// error level, client errors at warn.
func AccessLog(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			req := c.Request()
			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			fields := log.Fields{
				"method":      req.Method,
				"path":        req.URL.Path,
				"status":      status,
				"duration_ms": durationToMillis(time.Since(start)),
				"remote_ip":   c.RealIP(),
				"bytes_out":   c.Response().Size,
			}
			if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
				fields["request_id"] = id
			}
			if route := c.Path(); route != "" {
				fields["route"] = route
			}
			entry := logger.WithFields(fields)
			if err != nil {
				entry = entry.WithError(err)
			}

			switch {
			case status >= http.StatusInternalServerError:
				entry.Error("request")
			case status >= http.StatusBadRequest:
				entry.Warn("request")
			default:
				entry.Info("request")
			}
			return err
		}
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
