// internal/api/handlers.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vanplanner/VanLayoutMCP/internal/config"
	"github.com/vanplanner/VanLayoutMCP/internal/layout"
	"github.com/vanplanner/VanLayoutMCP/internal/llm"
	"github.com/vanplanner/VanLayoutMCP/internal/models"
	"github.com/vanplanner/VanLayoutMCP/internal/services"
	"github.com/vanplanner/VanLayoutMCP/internal/utils"
)

// Handler 处理API请求
type Handler struct {
	PlanService   *services.PlanService   // 方案与家具
	LayoutService *services.LayoutService // AI 布局生成
	LLMService    *services.LLMService    // LLM 提供者
	StatsService  *services.StatsService  // 使用统计
	ExportService *services.ExportService // 导出
	Metrics       *utils.LayoutMetrics
	WebSocket     *WebSocketHandler
	Response      *ResponseHelper

	// saveLLMConfig persists provider settings; replaced in tests
	saveLLMConfig func(provider string, cfg map[string]string) error
}

// NewHandler 创建API处理器
func NewHandler(plans *services.PlanService, layouts *services.LayoutService, llmService *services.LLMService,
	stats *services.StatsService, exports *services.ExportService, metrics *utils.LayoutMetrics, ws *WebSocketHandler) *Handler {
	return &Handler{
		PlanService:   plans,
		LayoutService: layouts,
		LLMService:    llmService,
		StatsService:  stats,
		ExportService: exports,
		Metrics:       metrics,
		WebSocket:     ws,
		Response:      NewResponseHelper(),
		saveLLMConfig: config.UpdateLLMConfig,
	}
}

// GenerateLayoutRequest 方案内生成布局的请求
type GenerateLayoutRequest struct {
	Preferences     string   `json:"preferences"`
	RequiredTypes   []string `json:"required_types"`
	Travelers       int      `json:"travelers"`
	ResolveOverlaps *bool    `json:"resolve_overlaps"`
	Apply           bool     `json:"apply"`
	// Replace drops the current items when applying; defaults to true
	Replace *bool `json:"replace"`
}

// OptimizeLayoutRequest 优化现有方案的请求
type OptimizeLayoutRequest struct {
	Goals           string `json:"goals"`
	ResolveOverlaps *bool  `json:"resolve_overlaps"`
	Apply           bool   `json:"apply"`
}

// IngestLayoutRequest carries raw LLM text to run through ingestion.
type IngestLayoutRequest struct {
	Raw             string `json:"raw" binding:"required"`
	VehicleType     string `json:"vehicle_type"`
	ResolveOverlaps *bool  `json:"resolve_overlaps"`
}

// CollisionCheckRequest 碰撞检测请求
type CollisionCheckRequest struct {
	Item models.FurnitureItem `json:"item"`
	Mode layout.Mode          `json:"mode"`
}

// SettingsRequest 运行时设置
type SettingsRequest struct {
	ResolveAIOverlaps *bool `json:"resolve_ai_overlaps"`
}

// LayoutApplyResponse is returned by generate/optimize.
type LayoutApplyResponse struct {
	Result *models.LayoutGenerationResult `json:"result"`
	Plan   *models.Plan                   `json:"plan,omitempty"`
}

// MoveItemResponse 返回移动后的家具及其两种视图
type MoveItemResponse struct {
	Item   models.FurnitureItem `json:"item"`
	View2D layout.View2D        `json:"view_2d"`
	View3D layout.View3D        `json:"view_3d"`
}

// ------------------------------------------------
// 健康检查与目录

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"status":    "ok",
		"llm_ready": h.LLMService != nil && h.LLMService.IsReady(),
		"time":      time.Now().UTC(),
	})
}

// ListVehicles 车型目录
func (h *Handler) ListVehicles(c *gin.Context) {
	h.Response.Success(c, models.Vehicles())
}

// GetVehicle 获取单个车型
func (h *Handler) GetVehicle(c *gin.Context) {
	env, ok := models.LookupVehicle(c.Param("type"))
	if !ok {
		h.Response.NotFound(c, "vehicle")
		return
	}
	h.Response.Success(c, env)
}

// ListFurnitureTypes returns the type presets.
func (h *Handler) ListFurnitureTypes(c *gin.Context) {
	h.Response.Success(c, models.Presets())
}

// ------------------------------------------------
// 方案

// ListPlans 列出方案
func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.PlanService.ListPlans(c.Request.Context())
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, plans)
}

// CreatePlan 创建方案
func (h *Handler) CreatePlan(c *gin.Context) {
	var req services.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err)
		return
	}
	plan, err := h.PlanService.CreatePlan(c.Request.Context(), req)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Created(c, plan, "plan created")
}

// GetPlan 获取方案
func (h *Handler) GetPlan(c *gin.Context) {
	plan, err := h.PlanService.GetPlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, plan)
}

// UpdatePlan 更新方案
func (h *Handler) UpdatePlan(c *gin.Context) {
	var req services.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err)
		return
	}
	plan, err := h.PlanService.UpdatePlan(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, plan, "plan updated")
}

// DeletePlan 删除方案及其导出文件
func (h *Handler) DeletePlan(c *gin.Context) {
	planID := c.Param("id")
	if err := h.PlanService.DeletePlan(c.Request.Context(), planID); err != nil {
		h.Response.HandleError(c, err)
		return
	}
	if h.ExportService != nil {
		if err := h.ExportService.DeleteExports(planID); err != nil {
			utils.GetLogger().Warn("failed to delete plan exports", map[string]interface{}{
				"plan_id": planID,
				"error":   err.Error(),
			})
		}
	}
	h.Response.Success(c, nil, "plan deleted")
}

// ------------------------------------------------
// 家具

// AddFurniture 添加家具，未给出位置时自动搜索
func (h *Handler) AddFurniture(c *gin.Context) {
	var req services.AddFurnitureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err)
		return
	}
	result, err := h.PlanService.AddFurniture(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	if len(result.Warnings) > 0 {
		h.Response.Created(c, result, strings.Join(result.Warnings, "; "))
		return
	}
	h.Response.Created(c, result, "furniture added")
}

// MoveFurniture applies a 2D or 3D edit to an item.
func (h *Handler) MoveFurniture(c *gin.Context) {
	var delta layout.Delta
	if err := c.ShouldBindJSON(&delta); err != nil {
		h.Response.BadRequest(c, "invalid request body", err)
		return
	}
	if delta.Presentation == "" {
		delta.Presentation = layout.Presentation2D
	}
	if delta.Presentation != layout.Presentation2D && delta.Presentation != layout.Presentation3D {
		h.Response.BadRequest(c, "presentation must be 2d or 3d")
		return
	}

	planID := c.Param("id")
	item, err := h.PlanService.MoveFurniture(c.Request.Context(), planID, c.Param("itemId"), delta)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	plan, err := h.PlanService.GetPlan(c.Request.Context(), planID)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	env, err := services.ResolveVehicle(plan.VehicleType)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, MoveItemResponse{
		Item:   *item,
		View2D: layout.Project2D(*item),
		View3D: layout.Project3D(*item, env),
	})
}

// DeleteFurniture 删除家具
func (h *Handler) DeleteFurniture(c *gin.Context) {
	if err := h.PlanService.DeleteFurniture(c.Request.Context(), c.Param("id"), c.Param("itemId")); err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, nil, "furniture deleted")
}

// CheckCollision 检测候选家具能否放入方案
func (h *Handler) CheckCollision(c *gin.Context) {
	var req CollisionCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err)
		return
	}
	result, err := h.PlanService.CheckCollision(c.Request.Context(), c.Param("id"), req.Item, req.Mode)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, result)
}

// GetViews 获取二维和三维视图
func (h *Handler) GetViews(c *gin.Context) {
	views, err := h.PlanService.Views(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, views)
}

// GetPlanStats 方案统计
func (h *Handler) GetPlanStats(c *gin.Context) {
	stats, err := h.PlanService.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, stats)
}

// ------------------------------------------------
// AI 布局

// GenerateForPlan 为方案生成布局，apply 时写入方案
func (h *Handler) GenerateForPlan(c *gin.Context) {
	var req GenerateLayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err)
		return
	}
	ctx := c.Request.Context()
	plan, err := h.PlanService.GetPlan(ctx, c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}

	genReq := models.LayoutGenerationRequest{
		VehicleType:     plan.VehicleType,
		Preferences:     req.Preferences,
		RequiredTypes:   req.RequiredTypes,
		Travelers:       req.Travelers,
		ResolveOverlaps: req.ResolveOverlaps,
	}
	replace := req.Replace == nil || *req.Replace
	if req.Apply && !replace {
		// 追加到现有家具时，重叠处理需要避开它们
		genReq.Existing = plan.Items
	}
	result, err := h.LayoutService.Generate(ctx, plan.ID, genReq)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}

	resp := LayoutApplyResponse{Result: result}
	if req.Apply {
		resp.Plan, err = h.PlanService.ApplyLayout(ctx, plan.ID, result.Items, replace)
		if err != nil {
			h.Response.HandleError(c, err)
			return
		}
	}
	h.Response.Success(c, resp, result.Explanation)
}

// OptimizeForPlan 优化方案布局
func (h *Handler) OptimizeForPlan(c *gin.Context) {
	var req OptimizeLayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err)
		return
	}
	ctx := c.Request.Context()
	plan, err := h.PlanService.GetPlan(ctx, c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}

	result, err := h.LayoutService.Optimize(ctx, plan, req.Goals, req.ResolveOverlaps)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}

	resp := LayoutApplyResponse{Result: result}
	if req.Apply {
		resp.Plan, err = h.PlanService.ApplyLayout(ctx, plan.ID, result.Items, true)
		if err != nil {
			h.Response.HandleError(c, err)
			return
		}
	}
	h.Response.Success(c, resp, result.Explanation)
}

// GenerateLayout generates a layout without a saved plan.
func (h *Handler) GenerateLayout(c *gin.Context) {
	var req models.LayoutGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err)
		return
	}
	result, err := h.LayoutService.Generate(c.Request.Context(), "", req)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, result, result.Explanation)
}

// IngestLayout 只做解析和校验，不调用LLM
func (h *Handler) IngestLayout(c *gin.Context) {
	var req IngestLayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err)
		return
	}
	result, err := h.LayoutService.IngestRaw(req.Raw, req.VehicleType, req.ResolveOverlaps)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, result, result.Explanation)
}

// ------------------------------------------------
// 导出

// ExportPlanPNG 导出俯视图
func (h *Handler) ExportPlanPNG(c *gin.Context) {
	h.export(c, "png")
}

// ExportPlan exports in the format given by ?format=, png by default.
func (h *Handler) ExportPlan(c *gin.Context) {
	h.export(c, c.DefaultQuery("format", "png"))
}

func (h *Handler) export(c *gin.Context, format string) {
	result, err := h.ExportService.ExportPlan(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.ExportResponse(c, result)
}

// ListExports 列出已保存的导出文件
func (h *Handler) ListExports(c *gin.Context) {
	files, err := h.ExportService.ListExports(c.Param("id"))
	if err != nil {
		h.Response.HandleError(c, err)
		return
	}
	h.Response.Success(c, files)
}

// ------------------------------------------------
// LLM 与设置

// GetLLMStatus 获取LLM服务状态
func (h *Handler) GetLLMStatus(c *gin.Context) {
	h.Response.Success(c, h.LLMService.Status())
}

// GetLLMModels 获取指定LLM提供商支持的模型列表
func (h *Handler) GetLLMModels(c *gin.Context) {
	provider := c.Query("provider")
	if provider == "" {
		h.Response.BadRequest(c, "provider query parameter is required")
		return
	}

	found := false
	for _, p := range llm.ListProviders() {
		if p == provider {
			found = true
			break
		}
	}
	if !found {
		h.Response.Error(c, http.StatusBadRequest, ErrorLLMProviderMissing, "unsupported LLM provider: "+provider, nil)
		return
	}

	modelList := llm.GetSupportedModelsForProvider(provider)
	h.Response.Success(c, gin.H{
		"provider": provider,
		"models":   modelList,
		"count":    len(modelList),
	})
}

// UpdateLLMConfig 更新LLM配置
func (h *Handler) UpdateLLMConfig(c *gin.Context) {
	var req struct {
		Provider string            `json:"provider" binding:"required"`
		Config   map[string]string `json:"config" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err)
		return
	}

	if err := h.LLMService.UpdateProvider(req.Provider, req.Config); err != nil {
		h.Response.Error(c, http.StatusBadRequest, ErrorLLMConfigInvalid, "LLM configuration rejected", map[string]interface{}{
			"reason": sanitizeErrorMessage(err.Error()),
		})
		return
	}

	if h.saveLLMConfig != nil {
		if err := h.saveLLMConfig(req.Provider, req.Config); err != nil {
			// 服务已切换，但配置未能持久化
			h.Response.Error(c, http.StatusInternalServerError, ErrorInternalError,
				"LLM provider updated but the configuration could not be saved", nil)
			return
		}
	}
	h.Response.Success(c, h.LLMService.Status(), "LLM configuration updated")
}

// GetSettings 获取运行时设置
func (h *Handler) GetSettings(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"resolve_ai_overlaps": h.LayoutService.ResolveOverlapsEnabled(),
		"llm":                 h.LLMService.Status(),
	})
}

// UpdateSettings 更新运行时设置
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid request body", err)
		return
	}
	if req.ResolveAIOverlaps != nil {
		h.LayoutService.SetResolveOverlaps(*req.ResolveAIOverlaps)
	}
	h.Response.Success(c, gin.H{
		"resolve_ai_overlaps": h.LayoutService.ResolveOverlapsEnabled(),
	}, "settings updated")
}

// GetUsageStats AI使用统计
func (h *Handler) GetUsageStats(c *gin.Context) {
	h.Response.Success(c, h.StatsService.GetUsageStats())
}

// GetMetrics 运行指标
func (h *Handler) GetMetrics(c *gin.Context) {
	h.Response.Success(c, h.Metrics.Collector().GetMetrics())
}

// GetWebSocketStatus WebSocket 连接状态
func (h *Handler) GetWebSocketStatus(c *gin.Context) {
	h.Response.Success(c, h.WebSocket.manager.GetStatus())
}

// PlanWebSocket 方案视图同步
func (h *Handler) PlanWebSocket(c *gin.Context) {
	h.WebSocket.PlanWebSocket(c)
}
