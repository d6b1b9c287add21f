package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"filevault/internal/pkg/apperr"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// FromError writes the envelope for err and records it on the context so the
// request logger sees the full cause. Only the safe message is sent.
func FromError(c *gin.Context, err error) {
	_ = c.Error(err)
	kind := apperr.KindOf(err)
	status, code := Status(kind)
	Error(c, status, code, apperr.SafeMessage(err))
}

// Abort is FromError for middleware.
func Abort(c *gin.Context, err error) {
	FromError(c, err)
	c.Abort()
}

// Status maps an error kind to an HTTP status and machine-readable code.
func Status(kind apperr.Kind) (int, string) {
	switch kind {
	case apperr.KindInvalid:
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case apperr.KindForbidden:
		return http.StatusForbidden, "FORBIDDEN"
	case apperr.KindNotFound:
		return http.StatusNotFound, "NOT_FOUND"
	case apperr.KindConflict:
		return http.StatusConflict, "CONFLICT"
	case apperr.KindNonEmptyFolder:
		return http.StatusConflict, "NON_EMPTY_FOLDER"
	case apperr.KindQuotaExceeded:
		return http.StatusRequestEntityTooLarge, "QUOTA_EXCEEDED"
	case apperr.KindUnsupported:
		return http.StatusBadRequest, "UNSUPPORTED_OPERATION"
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
