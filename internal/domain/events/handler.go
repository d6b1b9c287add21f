package events

import (
	"github.com/gin-gonic/gin"

	"filevault/internal/domain/access"
	"filevault/internal/logging"
)

type Handler struct {
	hub *Hub
	log logging.Logger
}

func NewHandler(hub *Hub, log logging.Logger) *Handler {
	return &Handler{hub: hub, log: log}
}

// Subscribe godoc
// @Summary Stream change events over a websocket
// @Tags Events
// @Security BearerAuth
// @Router /events [get]
func (h *Handler) Subscribe(c *gin.Context) {
	p := access.MustPrincipal(c)
	if p == nil {
		return
	}

	// Upgrade writes its own error response.
	if err := h.hub.Serve(c.Writer, c.Request, p.UserID); err != nil {
		h.log.Warn(c.Request.Context(), "websocket upgrade failed", "user_id", p.UserID, "error", err)
	}
}

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	r.GET("/events", access.Require(access.PermRead), h.Subscribe)
}
