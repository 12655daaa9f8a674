package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"campaign-ai-api/internal/interfaces/http/dto"
	apperrors "campaign-ai-api/pkg/errors"
	"campaign-ai-api/pkg/logger"
)

// Recovery 捕获 panic，记录堆栈并返回统一错误结构
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					fmt.Errorf("%v", r),
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)
				c.Abort()
				dto.ErrorWithDetail(c, http.StatusInternalServerError, "internal server error", &dto.ErrorDetail{
					ErrorCode: string(apperrors.CodeInternalError),
				})
			}
		}()

		c.Next()
	}
}
