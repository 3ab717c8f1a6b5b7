package handler

import (
	"fmt"
	"html"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/hanzinote/internal/pkg/response"
	"github.com/xxxsen/hanzinote/internal/service"
)

type ShareHandler struct {
	notes  *service.NoteService
	export *service.ExportService
}

func NewShareHandler(notes *service.NoteService, export *service.ExportService) *ShareHandler {
	return &ShareHandler{notes: notes, export: export}
}

func (h *ShareHandler) Create(c *gin.Context) {
	token, err := h.notes.CreateShare(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"token": token})
}

func (h *ShareHandler) Revoke(c *gin.Context) {
	if err := h.notes.RevokeShare(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

// PublicGet returns the shared note as JSON for the app.
func (h *ShareHandler) PublicGet(c *gin.Context) {
	detail, err := h.notes.GetShared(c.Request.Context(), c.Param("token"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, detail)
}

const sharePageTemplate = `<!DOCTYPE html>
<html lang="zh">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
<style>
body { max-width: 42em; margin: 2em auto; padding: 0 1em; font-family: system-ui, sans-serif; line-height: 1.7; }
blockquote { color: #555; border-left: 3px solid #ddd; margin-left: 0; padding-left: 1em; }
em { color: #888; }
</style>
</head>
<body>
%s
</body>
</html>
`

// PublicPage renders the shared note as a standalone HTML page for browsers.
func (h *ShareHandler) PublicPage(c *gin.Context) {
	title, body, err := h.export.RenderShared(c.Request.Context(), c.Param("token"))
	if err != nil {
		handleError(c, err)
		return
	}
	page := fmt.Sprintf(sharePageTemplate, html.EscapeString(title), body)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}
