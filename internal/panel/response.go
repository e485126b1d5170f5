package panel

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/multi-agent/reasonspace/pkg/errors"
	"github.com/multi-agent/reasonspace/pkg/logger"
)

// 统一响应辅助 (所有 handler 共用)。

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": gin.H{"code": code, "message": message}})
}

func notFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, gin.H{"success": false, "error": gin.H{"code": "not_found", "message": message}})
}

func conflict(c *gin.Context, message string) {
	c.JSON(http.StatusConflict, gin.H{"success": false, "error": gin.H{"code": "busy", "message": message}})
}

func serverError(c *gin.Context, err error) {
	logger.FromContext(c.Request.Context()).Error("internal error", logger.Any(logger.FieldError, err))
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": gin.H{"code": "internal_error", "message": "服务器内部错误"}})
}

// failWith 按错误类别映射 HTTP 状态。
func failWith(c *gin.Context, err error) {
	switch {
	case apperrors.Is(err, apperrors.ErrSessionBusy):
		conflict(c, err.Error())
	case apperrors.Is(err, apperrors.ErrNotFound):
		notFound(c, err.Error())
	case apperrors.Is(err, apperrors.ErrInvalidInput):
		badRequest(c, "invalid_input", err.Error())
	default:
		serverError(c, err)
	}
}
