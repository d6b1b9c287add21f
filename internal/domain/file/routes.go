package file

import (
	"github.com/gin-gonic/gin"

	"filevault/internal/domain/access"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	read := access.Require(access.PermRead)
	write := access.Require(access.PermWrite)

	files := r.Group("/files")
	{
		files.GET("", read, h.List)
		files.POST("", write, h.Upload)
		files.GET("/:id", read, h.Get)
		files.GET("/:id/download", read, h.Download)
		files.PATCH("/:id", write, h.Rename)
		files.POST("/:id/move", write, h.Move)
		files.DELETE("/:id", access.Require(access.PermDelete), h.Delete)
	}

	r.POST("/folders", write, h.CreateFolder)
	r.GET("/objects", read, h.ListObjects)
}
