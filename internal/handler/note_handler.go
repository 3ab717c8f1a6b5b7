package handler

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/hanzinote/internal/model"
	"github.com/xxxsen/hanzinote/internal/pkg/errcode"
	"github.com/xxxsen/hanzinote/internal/pkg/response"
	"github.com/xxxsen/hanzinote/internal/service"
)

const maxPhotoSize = 20 << 20

type NoteHandler struct {
	notes *service.NoteService
}

func NewNoteHandler(notes *service.NoteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

// Create accepts a multipart form: one or more "photos" files plus optional
// "title", "mode", "source_language", "target_language" fields. Pages are
// ordered by the order of the file parts.
func (h *NoteHandler) Create(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid multipart form")
		return
	}
	files := form.File["photos"]
	if len(files) == 0 {
		response.Error(c, errcode.ErrInvalid, "at least one photo is required")
		return
	}
	input := &service.CreateNoteInput{
		Title:          c.PostForm("title"),
		Mode:           model.ProcessingMode(c.PostForm("mode")),
		SourceLanguage: c.PostForm("source_language"),
		TargetLanguage: c.PostForm("target_language"),
	}
	for _, fh := range files {
		if fh.Size > maxPhotoSize {
			response.Error(c, errcode.ErrInvalidFile, "photo too large")
			return
		}
		file, err := fh.Open()
		if err != nil {
			response.Error(c, errcode.ErrUploadFailed, "read photo failed")
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, maxPhotoSize+1))
		_ = file.Close()
		if err != nil || int64(len(data)) > maxPhotoSize {
			response.Error(c, errcode.ErrUploadFailed, "read photo failed")
			return
		}
		input.Photos = append(input.Photos, service.PhotoInput{
			Data:     data,
			MimeType: fh.Header.Get("Content-Type"),
		})
	}
	detail, err := h.notes.CreateFromPhotos(c.Request.Context(), getUserID(c), input)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, detail)
}

func (h *NoteHandler) List(c *gin.Context) {
	limit := uint(20)
	offset := uint(0)
	if value := c.Query("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			limit = uint(parsed)
		}
	}
	if value := c.Query("offset"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed >= 0 {
			offset = uint(parsed)
		}
	}
	notes, total, err := h.notes.ListNotes(c.Request.Context(), getUserID(c), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"notes": notes, "total": total})
}

func (h *NoteHandler) Get(c *gin.Context) {
	detail, err := h.notes.GetNote(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, detail)
}

func (h *NoteHandler) GetPage(c *gin.Context) {
	page, err := h.notes.GetPage(c.Request.Context(), getUserID(c), c.Param("page_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, page)
}

// Progress is the polling endpoint the app hits while pages stream in.
func (h *NoteHandler) Progress(c *gin.Context) {
	progress, err := h.notes.Progress(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"pages": progress})
}

type updateTitleRequest struct {
	Title string `json:"title"`
}

func (h *NoteHandler) UpdateTitle(c *gin.Context) {
	var req updateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.notes.UpdateTitle(c.Request.Context(), getUserID(c), c.Param("id"), req.Title); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *NoteHandler) Retry(c *gin.Context) {
	if err := h.notes.RetryPage(c.Request.Context(), getUserID(c), c.Param("page_id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *NoteHandler) Delete(c *gin.Context) {
	if err := h.notes.DeleteNote(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *NoteHandler) Photo(c *gin.Context) {
	rc, mimeType, err := h.notes.OpenPhoto(c.Request.Context(), getUserID(c), c.Param("page_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	defer rc.Close()
	c.Header("Content-Type", mimeType)
	c.Header("Cache-Control", "private, max-age=86400")
	_, _ = io.Copy(c.Writer, rc)
}
