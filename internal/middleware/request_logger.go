package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sjperalta/finops-api/pkg/logger"
)

// RequestLogger logs incoming HTTP requests using slog. The request-scoped logger,
// tagged with the request id, is placed on the request context for services.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		reqLog := logger.Log
		if id := GetRequestID(c); id != "" {
			reqLog = reqLog.With(slog.String("request_id", id))
		}
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), reqLog))

		// Process request
		c.Next()

		// Skip logging for health check to avoid noise
		if path == "/api/v1/health" {
			return
		}

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		if raw != "" {
			path = path + "?" + raw
		}

		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", statusCode),
			slog.String("ip", c.ClientIP()),
			slog.Duration("latency", latency),
			slog.String("user_agent", c.Request.UserAgent()),
		}

		if errorMessage != "" {
			attrs = append(attrs, slog.String("error", errorMessage))
		}

		if actor := GetActor(c); actor.ID != 0 {
			attrs = append(attrs, slog.Uint64("user_id", uint64(actor.ID)), slog.String("role", string(actor.Role)))
		}

		msg := "Incoming request"
		if statusCode >= 500 {
			reqLog.Error(msg, attrs...)
		} else if statusCode >= 400 {
			reqLog.Warn(msg, attrs...)
		} else {
			reqLog.Info(msg, attrs...)
		}
	}
}
