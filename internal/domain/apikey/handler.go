package apikey

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"filevault/internal/domain/access"
	"filevault/internal/pkg/response"
	"filevault/internal/pkg/validator"
)

// Handler manages the caller's own API keys. Routes are session-only.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name        string     `json:"name" validate:"required,max=100"`
	Permissions []string   `json:"permissions" validate:"omitempty,dive,oneof=read write delete"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// List godoc
// @Summary List API keys
// @Tags API Keys
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api-keys [get]
func (h *Handler) List(c *gin.Context) {
	p := access.MustPrincipal(c)
	if p == nil {
		return
	}

	keys, err := h.service.List(c.Request.Context(), p.UserID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	views := make([]View, 0, len(keys))
	for _, k := range keys {
		views = append(views, k.View())
	}
	response.Success(c, http.StatusOK, gin.H{"api_keys": views})
}

// Create godoc
// @Summary Create an API key
// @Description The plaintext key is returned once and cannot be retrieved again.
// @Tags API Keys
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} map[string]interface{}
// @Failure 400,401,403 {object} map[string]interface{}
// @Router /api-keys [post]
func (h *Handler) Create(c *gin.Context) {
	p := access.MustPrincipal(c)
	if p == nil {
		return
	}

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request", errs)
		return
	}

	k, plaintext, err := h.service.Create(c.Request.Context(), p.UserID, req.Name, req.Permissions, req.ExpiresAt)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"api_key": k.View(),
		"key":     plaintext,
		"warning": "This is the only time you will see the full API key. Please save it securely.",
	})
}

// Revoke godoc
// @Summary Revoke an API key
// @Tags API Keys
// @Security BearerAuth
// @Param id path string true "API key ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api-keys/{id}/revoke [post]
func (h *Handler) Revoke(c *gin.Context) {
	p := access.MustPrincipal(c)
	if p == nil {
		return
	}

	if err := h.service.Revoke(c.Request.Context(), c.Param("id"), p.UserID); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "API key revoked"})
}

// Delete godoc
// @Summary Delete an API key
// @Description With action=revoke the key is deactivated instead of removed.
// @Tags API Keys
// @Security BearerAuth
// @Param id path string true "API key ID"
// @Param action query string false "delete (default) or revoke"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api-keys/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	if c.Query("action") == "revoke" {
		h.Revoke(c)
		return
	}

	p := access.MustPrincipal(c)
	if p == nil {
		return
	}

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), p.UserID); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "API key deleted"})
}
