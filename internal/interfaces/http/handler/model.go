package handler

import (
	"github.com/gin-gonic/gin"

	"campaign-ai-api/internal/domain/entity"
	"campaign-ai-api/internal/interfaces/http/dto"
)

// ModelCatalog 模型注册表只读视图
type ModelCatalog interface {
	Get(id string) (*entity.LLMModel, error)
	List() []*entity.LLMModel
	Default() (*entity.LLMModel, bool)
}

// TemplateCatalog 提示词模板只读视图
type TemplateCatalog interface {
	List() []*entity.PromptTemplate
}

// CatalogHandler 模型与模板目录
type CatalogHandler struct {
	models    ModelCatalog
	templates TemplateCatalog
}

// NewCatalogHandler 创建目录处理器
func NewCatalogHandler(models ModelCatalog, templates TemplateCatalog) *CatalogHandler {
	return &CatalogHandler{models: models, templates: templates}
}

// ListModels 列出注册模型
// @Summary 列出模型
// @Tags Models
// @Produce json
// @Success 200 {object} dto.Response[dto.ModelListResponse]
// @Router /v1/models [get]
func (h *CatalogHandler) ListModels(c *gin.Context) {
	defaultID := ""
	if m, ok := h.models.Default(); ok {
		defaultID = m.ID
	}
	dto.Success(c, dto.ToModelListResponse(h.models.List(), defaultID))
}

// GetModel 获取模型
// @Summary 获取模型
// @Tags Models
// @Produce json
// @Param mid path string true "模型 ID"
// @Success 200 {object} dto.Response[dto.ModelResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/models/{mid} [get]
func (h *CatalogHandler) GetModel(c *gin.Context) {
	m, err := h.models.Get(dto.BindModelID(c))
	if err != nil {
		respondError(c, "get model", err)
		return
	}
	defaultID := ""
	if d, ok := h.models.Default(); ok {
		defaultID = d.ID
	}
	dto.Success(c, dto.ToModelListResponse([]*entity.LLMModel{m}, defaultID).Models[0])
}

// ListTemplates 列出提示词模板
// @Summary 列出提示词模板
// @Tags Templates
// @Produce json
// @Success 200 {object} dto.Response[[]entity.PromptTemplate]
// @Router /v1/templates [get]
func (h *CatalogHandler) ListTemplates(c *gin.Context) {
	dto.Success(c, h.templates.List())
}
