package logger

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// AccessLog logs one line per request with status and latency.  5xx answers
// log at error level, 4xx at warn.
func AccessLog(log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			Attach(c, log.WithField("request_id", c.Response().Header().Get(echo.HeaderXRequestID)))
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			res := c.Response()
			entry := log.WithFields(logrus.Fields{
				"method":     req.Method,
				"path":       c.Path(),
				"uri":        req.RequestURI,
				"status":     res.Status,
				"latency_ms": time.Since(start).Milliseconds(),
				"remote_ip":  c.RealIP(),
				"request_id": res.Header().Get(echo.HeaderXRequestID),
			})
			if uid, ok := c.Get("user_id").(string); ok && uid != "" {
				entry = entry.WithField("user_id", uid)
			}
			switch {
			case res.Status >= 500:
				entry.Error("request")
			case res.Status >= 400:
				entry.Warn("request")
			default:
				entry.Info("request")
			}
			return nil
		}
	}
}

const ctxLogger = "logger"

// Attach stores log on the request for handlers to pick up with From.
func Attach(c echo.Context, log logrus.FieldLogger) {
	c.Set(ctxLogger, log)
}

// From returns the request's logger, or the standard logger when none was
// attached.
func From(c echo.Context) logrus.FieldLogger {
	if log, ok := c.Get(ctxLogger).(logrus.FieldLogger); ok && log != nil {
		return log
	}
	return logrus.StandardLogger()
}
