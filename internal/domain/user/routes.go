package user

import (
	"github.com/gin-gonic/gin"

	"filevault/internal/domain/access"
)

// RegisterRoutes registers ledger routes under the authenticated group.
func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	r.GET("/me", h.GetMe)
	r.GET("/storage", access.Require(access.PermRead), h.GetStorage)
}
