package file

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"filevault/internal/domain/access"
	"filevault/internal/pkg/response"
	"filevault/internal/pkg/validator"
)

// multipartOverhead is allowed on top of the upload limit for form headers.
const multipartOverhead = 1 << 20

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type folderRequest struct {
	Name     string  `json:"name" validate:"required,max=255"`
	ParentID *string `json:"parent_id" validate:"omitempty,uuid"`
}

type renameRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type moveRequest struct {
	ParentID *string `json:"parent_id" validate:"omitempty,uuid"`
}

func optionalID(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" || v == "root" {
		return nil
	}
	return &v
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return false
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request", errs)
		return false
	}
	return true
}

// List godoc
// @Summary List a folder
// @Tags Files
// @Produce json
// @Security BearerAuth
// @Param parent_id query string false "Folder ID, empty for root"
// @Param order query string false "newest, oldest, name or size"
// @Success 200 {object} map[string]interface{}
// @Router /files [get]
func (h *Handler) List(c *gin.Context) {
	p := access.MustPrincipal(c)
	if p == nil {
		return
	}

	order, err := ParseOrder(c.Query("order"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	files, err := h.service.List(c.Request.Context(), OwnerOf(p), optionalID(c.Query("parent_id")), order)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"files": files})
}

// Upload godoc
// @Summary Upload a file
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "File content"
// @Param parent_id formData string false "Target folder"
// @Success 201 {object} map[string]interface{}
// @Failure 400,404,413 {object} map[string]interface{}
// @Router /files [post]
func (h *Handler) Upload(c *gin.Context) {
	p := access.MustPrincipal(c)
	if p == nil {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.service.opts.MaxUploadSize+multipartOverhead)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.FromError(c, ErrFileTooLarge)
			return
		}
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "file is required")
		return
	}

	src, err := fh.Open()
	if err != nil {
		response.FromError(c, err)
		return
	}
	defer src.Close()

	name := fh.Filename
	if override := c.PostForm("name"); override != "" {
		name = override
	}

	f, err := h.service.Upload(c.Request.Context(), OwnerOf(p), optionalID(c.PostForm("parent_id")),
		name, fh.Size, fh.Header.Get("Content-Type"), src)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"file": f})
}

// CreateFolder godoc
// @Summary Create a folder
// @Tags Files
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} map[string]interface{}
// @Failure 400,404,409 {object} map[string]interface{}
// @Router /folders [post]
func (h *Handler) CreateFolder(c *gin.Context) {
	p := access.MustPrincipal(c)
	if p == nil {
		return
	}

	var req folderRequest
	if !bind(c, &req) {
		return
	}

	f, err := h.service.CreateFolder(c.Request.Context(), OwnerOf(p), req.ParentID, req.Name)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"folder": f})
}

// Get godoc
// @Summary File metadata
// @Tags Files
// @Produce json
// @Security BearerAuth
// @Param id path string true "File ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /files/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	p := access.MustPrincipal(c)
	if p == nil {
		return
	}

	f, err := h.service.Get(c.Request.Context(), OwnerOf(p), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"file": f})
}

// Download godoc
// @Summary Download a file
// @Description Returns a presigned link, or the content itself with mode=direct.
// @Tags Files
// @Security BearerAuth
// @Param id path string true "File ID"
// @Param mode query string false "direct"
// @Success 200 {object} map[string]interface{}
// @Failure 400,404,503 {object} map[string]interface{}
// @Router /files/{id}/download [get]
func (h *Handler) Download(c *gin.Context) {
	p := access.MustPrincipal(c)
	if p == nil {
		return
	}
	ctx := c.Request.Context()

	if c.Query("mode") == "direct" {
		body, f, err := h.service.Open(ctx, OwnerOf(p), c.Param("id"))
		if err != nil {
			response.FromError(c, err)
			return
		}
		defer body.Close()

		disposition := mime.FormatMediaType("attachment", map[string]string{"filename": f.Name})
		c.DataFromReader(http.StatusOK, f.Size, f.ContentType, body, map[string]string{
			"Content-Disposition": disposition,
		})
		return
	}

	link, err := h.service.Download(ctx, OwnerOf(p), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, link)
}

// Rename godoc
// @Summary Rename a file or folder
// @Tags Files
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "File ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400,404,409 {object} map[string]interface{}
// @Router /files/{id} [patch]
func (h *Handler) Rename(c *gin.Context) {
	p := access.MustPrincipal(c)
	if p == nil {
		return
	}

	var req renameRequest
	if !bind(c, &req) {
		return
	}

	f, err := h.service.Rename(c.Request.Context(), OwnerOf(p), c.Param("id"), req.Name)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"file": f})
}

// Move godoc
// @Summary Move a file to another folder
// @Tags Files
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "File ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400,404,409 {object} map[string]interface{}
// @Router /files/{id}/move [post]
func (h *Handler) Move(c *gin.Context) {
	p := access.MustPrincipal(c)
	if p == nil {
		return
	}

	var req moveRequest
	if !bind(c, &req) {
		return
	}

	f, err := h.service.Move(c.Request.Context(), OwnerOf(p), c.Param("id"), req.ParentID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"file": f})
}

// Delete godoc
// @Summary Delete a file or an empty folder
// @Tags Files
// @Security BearerAuth
// @Param id path string true "File ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404,409 {object} map[string]interface{}
// @Router /files/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	p := access.MustPrincipal(c)
	if p == nil {
		return
	}

	if err := h.service.Remove(c.Request.Context(), OwnerOf(p), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "deleted"})
}

// ListObjects godoc
// @Summary List raw objects in the caller's namespace
// @Tags Files
// @Produce json
// @Security BearerAuth
// @Param prefix query string false "Key prefix"
// @Param delimiter query string false "Usually /"
// @Success 200 {object} map[string]interface{}
// @Router /objects [get]
func (h *Handler) ListObjects(c *gin.Context) {
	p := access.MustPrincipal(c)
	if p == nil {
		return
	}

	listing, err := h.service.ListObjects(c.Request.Context(), OwnerOf(p), c.Query("prefix"), c.Query("delimiter"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, listing)
}
