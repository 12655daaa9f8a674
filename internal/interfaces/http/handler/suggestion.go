package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"campaign-ai-api/internal/application/suggestion"
	"campaign-ai-api/internal/domain/entity"
	"campaign-ai-api/internal/domain/repository"
	"campaign-ai-api/internal/interfaces/http/dto"
	"campaign-ai-api/pkg/logger"
)

// SuggestionService 建议存储与生命周期
type SuggestionService interface {
	Get(ctx context.Context, id string) (*entity.ContentSuggestion, error)
	List(ctx context.Context, filter *repository.SuggestionFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.ContentSuggestion], error)
	Transition(ctx context.Context, id string, action suggestion.Action) (*entity.ContentSuggestion, error)
	Delete(ctx context.Context, id string) error
}

// SuggestionHandler 建议处理器
type SuggestionHandler struct {
	svc SuggestionService
}

// NewSuggestionHandler 创建建议处理器
func NewSuggestionHandler(svc SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{svc: svc}
}

// ListSuggestions 获取建议列表
// @Summary 获取建议列表
// @Tags Suggestions
// @Produce json
// @Param context_id query string false "上下文 ID"
// @Param context_type query string false "上下文类型"
// @Param source_id query string false "来源 ID"
// @Param type query string false "建议类型，逗号分隔"
// @Param status query string false "状态，逗号分隔"
// @Param min_confidence query string false "最低置信度" Enums(low, medium, high)
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页条数" default(20)
// @Success 200 {object} dto.Response[[]dto.SuggestionResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/suggestions [get]
func (h *SuggestionHandler) ListSuggestions(c *gin.Context) {
	ctx := c.Request.Context()
	pageReq := dto.BindPage(c)

	filter := &repository.SuggestionFilter{
		ContextID:   c.Query("context_id"),
		ContextType: c.Query("context_type"),
		SourceID:    c.Query("source_id"),
	}
	for _, t := range dto.QueryList(c, "type") {
		st := entity.SuggestionType(t)
		if !st.Valid() {
			dto.BadRequest(c, "unknown suggestion type: "+t)
			return
		}
		filter.Types = append(filter.Types, st)
	}
	for _, s := range dto.QueryList(c, "status") {
		ss := entity.SuggestionStatus(s)
		if !ss.Valid() {
			dto.BadRequest(c, "unknown suggestion status: "+s)
			return
		}
		filter.Statuses = append(filter.Statuses, ss)
	}
	if mc := c.Query("min_confidence"); mc != "" {
		conf, ok := entity.ParseConfidence(mc)
		if !ok {
			dto.BadRequest(c, "unknown min_confidence: "+mc)
			return
		}
		filter.MinConfidence = conf
	}

	result, err := h.svc.List(ctx, filter, pageReq.Pagination())
	if err != nil {
		respondError(c, "list suggestions", err)
		return
	}
	meta := dto.NewPageMeta(result.Page, result.PageSize, int(result.Total))
	dto.SuccessWithPage(c, dto.ToSuggestionResponses(result.Items), meta)
}

// GetSuggestion 获取建议详情
// @Summary 获取建议详情
// @Tags Suggestions
// @Produce json
// @Param sid path string true "建议 ID"
// @Success 200 {object} dto.Response[dto.SuggestionResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/suggestions/{sid} [get]
func (h *SuggestionHandler) GetSuggestion(c *gin.Context) {
	sg, err := h.svc.Get(c.Request.Context(), dto.BindSuggestionID(c))
	if err != nil {
		respondError(c, "get suggestion", err)
		return
	}
	dto.Success(c, dto.ToSuggestionResponse(sg))
}

// TransitionSuggestion 接受、拒绝或修改建议
// @Summary 建议生命周期迁移
// @Tags Suggestions
// @Accept json
// @Produce json
// @Param sid path string true "建议 ID"
// @Param body body dto.TransitionRequest true "迁移动作"
// @Success 200 {object} dto.Response[dto.SuggestionResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /v1/suggestions/{sid}/transitions [post]
func (h *SuggestionHandler) TransitionSuggestion(c *gin.Context) {
	ctx := c.Request.Context()
	id := dto.BindSuggestionID(c)
	ctx = logger.WithContext(ctx, logger.SuggestionIDKey, id)

	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	action := suggestion.Action{
		Type:            entity.SuggestionAction(req.Action),
		ExpectedVersion: req.ExpectedVersion,
	}
	if action.Type == entity.SuggestionActionModify {
		if len(req.Payload) == 0 {
			dto.BadRequest(c, "modify requires a payload")
			return
		}
		// 载荷按建议自身的类型解码
		cur, err := h.svc.Get(ctx, id)
		if err != nil {
			respondError(c, "get suggestion", err)
			return
		}
		payload, err := entity.DecodePayload(cur.Type, req.Payload)
		if err != nil {
			respondError(c, "decode payload", err)
			return
		}
		action.Payload = payload
	}

	updated, err := h.svc.Transition(ctx, id, action)
	if err != nil {
		respondError(c, "transition suggestion", err)
		return
	}
	dto.Success(c, dto.ToSuggestionResponse(updated))
}

// DeleteSuggestion 删除建议
// @Summary 删除建议
// @Tags Suggestions
// @Param sid path string true "建议 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/suggestions/{sid} [delete]
func (h *SuggestionHandler) DeleteSuggestion(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), dto.BindSuggestionID(c)); err != nil {
		respondError(c, "delete suggestion", err)
		return
	}
	dto.NoContent(c)
}
