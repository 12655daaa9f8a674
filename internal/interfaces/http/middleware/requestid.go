// Package middleware 提供 HTTP 中间件
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"campaign-ai-api/pkg/logger"
)

// RequestIDHeader 请求 ID 头
const RequestIDHeader = "X-Request-ID"

// RequestID 注入请求 ID；同时把 X-Context-ID 写入日志上下文
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		ctx := logger.WithContext(c.Request.Context(), logger.RequestIDKey, requestID)
		if contextID := strings.TrimSpace(c.GetHeader(ContextIDHeader)); contextID != "" {
			ctx = logger.WithContext(ctx, logger.ContextIDKey, contextID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
