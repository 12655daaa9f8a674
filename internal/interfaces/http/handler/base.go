// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"campaign-ai-api/internal/interfaces/http/dto"
	apperrors "campaign-ai-api/pkg/errors"
	"campaign-ai-api/pkg/logger"
)

// respondError AppError 按错误码映射状态，其余错误记录日志并返回 500
func respondError(c *gin.Context, op string, err error) {
	if apperrors.IsAppError(err) {
		appErr := apperrors.AsAppError(err)
		if appErr.HTTPStatus >= 500 {
			logger.Error(c.Request.Context(), op+" failed", err, "code", appErr.Code)
		}
		dto.AppError(c, appErr)
		return
	}
	logger.Error(c.Request.Context(), op+" failed", err)
	dto.InternalError(c, op+" failed")
}
