package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h *RouterHandlers, analysisLimit gin.HandlerFunc) {
	// 内容分析
	v1.POST("/analyses", analysisLimit, h.Analysis.Analyze)
	v1.GET("/contexts/:cid/usage", h.Analysis.Usage)

	// 建议审核
	suggestions := v1.Group("/suggestions")
	{
		suggestions.GET("", h.Suggestion.ListSuggestions)
		suggestions.GET("/:sid", h.Suggestion.GetSuggestion)
		suggestions.POST("/:sid/transitions", h.Suggestion.TransitionSuggestion)
		suggestions.DELETE("/:sid", h.Suggestion.DeleteSuggestion)
	}

	// 模型与模板目录
	v1.GET("/models", h.Catalog.ListModels)
	v1.GET("/models/:mid", h.Catalog.GetModel)
	v1.GET("/templates", h.Catalog.ListTemplates)
}
