package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"filevault/internal/logging"
	"filevault/internal/pkg/response"
)

const RequestIDHeader = "X-Request-ID"

// RequestID propagates the caller's request id or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// ErrorLogger logs every request, the errors recorded on the context and
// recovers from panics. Panic details stay in the log.
func ErrorLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				err := fmt.Errorf("%v", recovered)
				log.Error(c.Request.Context(), "panic recovered",
					append(requestAttrs(c, start), "error", err.Error(), "stack", string(debug.Stack()))...)
				response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
				c.Abort()
				return
			}

			attrs := requestAttrs(c, start)
			for _, err := range c.Errors {
				attrs = append(attrs, "error", err.Err.Error())
			}

			switch status := c.Writer.Status(); {
			case status >= http.StatusInternalServerError:
				log.Error(c.Request.Context(), "request failed", attrs...)
			case len(c.Errors) > 0:
				log.Warn(c.Request.Context(), "request rejected", attrs...)
			default:
				log.Info(c.Request.Context(), "request", attrs...)
			}
		}()

		c.Next()
	}
}

func requestAttrs(c *gin.Context, start time.Time) []any {
	return []any{
		"status", c.Writer.Status(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"client_ip", c.ClientIP(),
		"user_id", c.GetString("user_id"),
		"request_id", c.GetString("request_id"),
		"latency_ms", time.Since(start).Milliseconds(),
	}
}
