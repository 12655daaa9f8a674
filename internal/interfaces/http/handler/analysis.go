package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"campaign-ai-api/internal/domain/entity"
	"campaign-ai-api/internal/interfaces/http/dto"
	"campaign-ai-api/pkg/logger"
)

// Analyzer 分析入口
type Analyzer interface {
	Analyze(ctx context.Context, req *entity.AnalysisRequest) (*entity.AnalysisResult, error)
}

// QuotaChecker 上下文日配额检查
type QuotaChecker interface {
	CheckDailyTokens(ctx context.Context, contextID string, max int64) (int64, error)
	DailyUsage(ctx context.Context, contextID string) (int64, error)
}

// AnalysisHandler 分析处理器
type AnalysisHandler struct {
	analyzer   Analyzer
	quota      QuotaChecker
	dailyQuota int64
}

// NewAnalysisHandler 创建分析处理器；quota 可为 nil
func NewAnalysisHandler(analyzer Analyzer, quota QuotaChecker, dailyQuota int64) *AnalysisHandler {
	return &AnalysisHandler{analyzer: analyzer, quota: quota, dailyQuota: dailyQuota}
}

// Analyze 发起内容分析
// @Summary 分析会话内容
// @Description 对会话内容按类型并发调用模型，生成待审核的内容建议
// @Tags Analyses
// @Accept json
// @Produce json
// @Param body body dto.AnalyzeRequest true "分析请求"
// @Success 200 {object} dto.Response[dto.AnalysisResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/analyses [post]
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	areq := req.ToEntity()

	if contextID := strings.TrimSpace(areq.ContextRef.ID); contextID != "" && h.quota != nil {
		ctx = logger.WithContext(ctx, logger.ContextIDKey, contextID)
		if _, err := h.quota.CheckDailyTokens(ctx, contextID, h.dailyQuota); err != nil {
			respondError(c, "check token quota", err)
			return
		}
	}

	result, err := h.analyzer.Analyze(ctx, areq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// 客户端已断开
			c.Abort()
			return
		}
		respondError(c, "analyze", err)
		return
	}
	if result.Metadata.Partial {
		logger.Warn(ctx, "analysis completed partially", "errors", len(result.Metadata.Errors))
	}
	dto.Success(c, dto.ToAnalysisResponse(result))
}

// Usage 查询上下文当日 token 用量
// @Summary 上下文用量
// @Tags Analyses
// @Produce json
// @Param cid path string true "上下文 ID"
// @Success 200 {object} dto.Response[dto.UsageResponse]
// @Router /v1/contexts/{cid}/usage [get]
func (h *AnalysisHandler) Usage(c *gin.Context) {
	contextID := dto.BindContextID(c)
	if contextID == "" {
		dto.BadRequest(c, "context id is required")
		return
	}

	var used int64
	if h.quota != nil {
		var err error
		used, err = h.quota.DailyUsage(c.Request.Context(), contextID)
		if err != nil {
			respondError(c, "load token usage", err)
			return
		}
	}
	dto.Success(c, dto.NewUsageResponse(contextID, used, h.dailyQuota))
}
