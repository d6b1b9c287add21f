package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"filevault/internal/domain/access"
	"filevault/internal/pkg/response"
)

type Handler struct {
	ledger *Ledger
}

func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// GetStorage godoc
// @Summary Storage usage of the caller
// @Tags Storage
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401,404,503 {object} map[string]interface{}
// @Router /storage [get]
func (h *Handler) GetStorage(c *gin.Context) {
	p := access.MustPrincipal(c)
	if p == nil {
		return
	}

	info, err := h.ledger.QuotaFor(c.Request.Context(), p.UserID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, info)
}

// GetMe godoc
// @Summary Profile of the caller
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /me [get]
func (h *Handler) GetMe(c *gin.Context) {
	p := access.MustPrincipal(c)
	if p == nil {
		return
	}

	u, err := h.ledger.GetByID(c.Request.Context(), p.UserID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"user":        u,
		"auth_type":   p.AuthType,
		"permissions": p.Permissions.Strings(),
	})
}
