package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/hanzinote/internal/middleware"
)

type RouterDeps struct {
	Notes     *NoteHandler
	Shares    *ShareHandler
	Export    *ExportHandler
	JWTSecret []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	authGroup.POST("/notes", middleware.RateLimit(2*time.Second), deps.Notes.Create)
	authGroup.GET("/notes", deps.Notes.List)
	authGroup.GET("/notes/:id", deps.Notes.Get)
	authGroup.PUT("/notes/:id/title", deps.Notes.UpdateTitle)
	authGroup.GET("/notes/:id/progress", deps.Notes.Progress)
	authGroup.DELETE("/notes/:id", deps.Notes.Delete)
	authGroup.GET("/notes/:id/export/markdown", deps.Export.Markdown)

	authGroup.GET("/pages/:page_id", deps.Notes.GetPage)
	authGroup.POST("/pages/:page_id/retry", deps.Notes.Retry)
	authGroup.GET("/pages/:page_id/photo", deps.Notes.Photo)

	authGroup.POST("/notes/:id/share", deps.Shares.Create)
	authGroup.DELETE("/notes/:id/share", deps.Shares.Revoke)

	api.GET("/public/share/:token", deps.Shares.PublicGet)
	api.GET("/public/share/:token/page", deps.Shares.PublicPage)
}
