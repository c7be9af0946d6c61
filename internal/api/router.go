// internal/api/router.go
package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vanplanner/VanLayoutMCP/internal/di"
	"github.com/vanplanner/VanLayoutMCP/internal/services"
	"github.com/vanplanner/VanLayoutMCP/internal/utils"
)

const (
	// AI 生成接口的限流：每个IP每分钟请求数
	aiRateLimit  = 10
	aiRateWindow = time.Minute
)

// RouterOptions 控制路由的可选组件
type RouterOptions struct {
	Limiter   *RateLimiter
	DebugMode bool
}

// SetupRouter 从依赖注入容器获取服务并配置HTTP路由
func SetupRouter(container *di.Container, opts RouterOptions) (*gin.Engine, error) {
	planService, err := di.Resolve[*services.PlanService](container, di.Plan)
	if err != nil {
		return nil, fmt.Errorf("方案服务未正确初始化: %w", err)
	}
	layoutService, err := di.Resolve[*services.LayoutService](container, di.Layout)
	if err != nil {
		return nil, fmt.Errorf("布局服务未正确初始化: %w", err)
	}
	llmService, err := di.Resolve[*services.LLMService](container, di.LLM)
	if err != nil {
		return nil, fmt.Errorf("LLM服务未正确初始化: %w", err)
	}
	statsService, err := di.Resolve[*services.StatsService](container, di.Stats)
	if err != nil {
		return nil, fmt.Errorf("统计服务未正确初始化: %w", err)
	}
	exportService, err := di.Resolve[*services.ExportService](container, di.Export)
	if err != nil {
		return nil, fmt.Errorf("导出服务未正确初始化: %w", err)
	}
	manager, err := di.Resolve[*WebSocketManager](container, di.WebSocket)
	if err != nil {
		return nil, fmt.Errorf("WebSocket管理器未正确初始化: %w", err)
	}
	metrics, err := di.Resolve[*utils.LayoutMetrics](container, di.Metrics)
	if err != nil {
		return nil, fmt.Errorf("指标收集器未正确初始化: %w", err)
	}

	handler := NewHandler(
		planService,
		layoutService,
		llmService,
		statsService,
		exportService,
		metrics,
		NewWebSocketHandler(manager, planService),
	)
	return NewRouter(handler, opts), nil
}

// NewRouter 为给定处理器注册全部路由
func NewRouter(handler *Handler, opts RouterOptions) *gin.Engine {
	if !opts.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = NewRateLimiter()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(requestLogger(utils.GetLogger()))
	if handler.Metrics != nil {
		r.Use(metricsMiddleware(handler.Metrics))
	}
	r.Use(corsMiddleware())

	aiLimit := RateLimitByIP(limiter, aiRateLimit, aiRateWindow, handler.Response)

	r.GET("/health", handler.Health)

	// WebSocket 支持
	r.GET("/ws/plans/:id", handler.PlanWebSocket)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	{
		// 车型与家具目录
		api.GET("/vehicles", handler.ListVehicles)
		api.GET("/vehicles/:type", handler.GetVehicle)
		api.GET("/furniture-types", handler.ListFurnitureTypes)

		// ===============================
		// 方案相关路由
		// ===============================
		plansGroup := api.Group("/plans")
		{
			plansGroup.GET("", handler.ListPlans)
			plansGroup.POST("", handler.CreatePlan)
			plansGroup.GET("/:id", handler.GetPlan)
			plansGroup.PUT("/:id", handler.UpdatePlan)
			plansGroup.DELETE("/:id", handler.DeletePlan)

			// 家具
			itemsGroup := plansGroup.Group("/:id/items")
			{
				itemsGroup.POST("", handler.AddFurniture)
				itemsGroup.PATCH("/:itemId", handler.MoveFurniture)
				itemsGroup.DELETE("/:itemId", handler.DeleteFurniture)
			}

			plansGroup.POST("/:id/collisions/check", handler.CheckCollision)
			plansGroup.GET("/:id/views", handler.GetViews)
			plansGroup.GET("/:id/stats", handler.GetPlanStats)

			// AI 布局
			plansGroup.POST("/:id/generate", aiLimit, handler.GenerateForPlan)
			plansGroup.POST("/:id/optimize", aiLimit, handler.OptimizeForPlan)

			// 导出
			plansGroup.GET("/:id/export.png", handler.ExportPlanPNG)
			plansGroup.GET("/:id/export", handler.ExportPlan)
			plansGroup.GET("/:id/exports", handler.ListExports)
		}

		layoutsGroup := api.Group("/layouts")
		{
			layoutsGroup.POST("/generate", aiLimit, handler.GenerateLayout)
			layoutsGroup.POST("/ingest", handler.IngestLayout)
		}

		// ===============================
		// LLM配置相关路由
		// ===============================
		llmGroup := api.Group("/llm")
		{
			llmGroup.GET("/status", handler.GetLLMStatus)
			llmGroup.GET("/models", handler.GetLLMModels)
			llmGroup.PUT("/config", handler.UpdateLLMConfig)
		}

		settingsGroup := api.Group("/settings")
		{
			settingsGroup.GET("", handler.GetSettings)
			settingsGroup.PUT("", handler.UpdateSettings)
		}

		api.GET("/stats/usage", handler.GetUsageStats)
		api.GET("/metrics", handler.GetMetrics)

		// 调试路由
		api.GET("/ws/status", handler.GetWebSocketStatus)
	}

	return r
}
