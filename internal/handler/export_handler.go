package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/hanzinote/internal/service"
)

type ExportHandler struct {
	export *service.ExportService
}

func NewExportHandler(export *service.ExportService) *ExportHandler {
	return &ExportHandler{export: export}
}

// Markdown streams the bilingual markdown rendition of one note.
func (h *ExportHandler) Markdown(c *gin.Context) {
	markdown, err := h.export.ExportMarkdown(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=note.md")
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(markdown))
}
