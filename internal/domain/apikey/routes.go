package apikey

import (
	"github.com/gin-gonic/gin"

	"filevault/internal/domain/access"
)

// RegisterRoutes registers key management. API keys cannot manage keys.
func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	keys := r.Group("/api-keys", access.RequireSession())
	{
		keys.GET("", h.List)
		keys.POST("", h.Create)
		keys.POST("/:id/revoke", h.Revoke)
		keys.DELETE("/:id", h.Delete)
	}
}
