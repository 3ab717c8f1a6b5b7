package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hanzinote/internal/middleware"
	appErr "github.com/xxxsen/hanzinote/internal/pkg/errcode"
	pkgErr "github.com/xxxsen/hanzinote/internal/pkg/errors"
	"github.com/xxxsen/hanzinote/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	value, _ := c.Get(middleware.ContextUserIDKey)
	userID, _ := value.(string)
	return userID
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, pkgErr.ErrUnauthorized):
		response.Error(c, appErr.ErrUnauthorized, "unauthorized")
	case errors.Is(err, pkgErr.ErrForbidden):
		response.Error(c, appErr.ErrForbidden, "forbidden")
	case errors.Is(err, pkgErr.ErrNotFound):
		response.Error(c, appErr.ErrNotFound, "not found")
	case errors.Is(err, pkgErr.ErrNoTextFound):
		response.Error(c, appErr.ErrNoTextFound, "no recognizable text in photo")
	case errors.Is(err, pkgErr.ErrNoChineseText):
		response.Error(c, appErr.ErrNoChineseText, "no chinese text in photo")
	case errors.Is(err, pkgErr.ErrExtractorOffline):
		response.Error(c, appErr.ErrExtractorOffline, "text extraction unavailable, try again later")
	case errors.Is(err, pkgErr.ErrPageNotRetryable):
		response.Error(c, appErr.ErrPageNotRetryable, "page is not retryable")
	case errors.Is(err, pkgErr.ErrInvalid):
		response.Error(c, appErr.ErrInvalid, err.Error())
	case errors.Is(err, pkgErr.ErrConflict):
		response.Error(c, appErr.ErrConflict, "conflict")
	default:
		response.Error(c, appErr.ErrInternal, "internal error")
	}
}
