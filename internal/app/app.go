// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vanplanner/VanLayoutMCP/internal/api"
	"github.com/vanplanner/VanLayoutMCP/internal/config"
	"github.com/vanplanner/VanLayoutMCP/internal/di"
	_ "github.com/vanplanner/VanLayoutMCP/internal/llm/providers/anthropic"
	_ "github.com/vanplanner/VanLayoutMCP/internal/llm/providers/openrouter"
	"github.com/vanplanner/VanLayoutMCP/internal/services"
	"github.com/vanplanner/VanLayoutMCP/internal/storage"
	"github.com/vanplanner/VanLayoutMCP/internal/utils"
)

// 后台任务间隔
const (
	lockCleanupInterval    = 5 * time.Minute
	wsCleanupInterval      = 30 * time.Second
	limiterCleanupInterval = time.Minute
	metricsReportInterval  = 5 * time.Minute
)

// App 持有已初始化的服务和HTTP服务器
type App struct {
	config    *config.AppConfig
	container *di.Container
	repo      *storage.PlanRepository
	stats     *services.StatsService
	router    *gin.Engine
	server    *http.Server
	cancel    context.CancelFunc
	logger    *utils.Logger
}

// InitServices 按依赖顺序初始化所有服务并注册到容器
func InitServices(cfg *config.AppConfig, container *di.Container) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	logger := utils.GetLogger()

	// 1. 存储
	db, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	repo := storage.NewPlanRepository(db)
	if err := repo.Init(context.Background()); err != nil {
		repo.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	files, err := storage.NewFileStorage(cfg.DataDir)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("init file storage: %w", err)
	}

	// 2. 基础服务
	metrics := utils.NewLayoutMetrics()
	locks := services.NewLockManager()
	stats := services.NewStatsService(files)
	llmService := services.NewLLMService(cfg, metrics)
	if !llmService.IsReady() {
		logger.Warn("LLM service not ready, AI layout endpoints will return 503", map[string]interface{}{
			"provider": cfg.LLMProvider,
			"state":    llmService.Status().State,
		})
	}

	// 3. 业务服务
	planService := services.NewPlanService(repo, locks, metrics)
	layoutService := services.NewLayoutService(llmService, nil, stats, files, metrics, cfg.ResolveAIOverlaps)
	exportService := services.NewExportService(planService, files)

	// 4. 实时推送
	manager := api.NewWebSocketManager()
	planService.SetNotifier(manager)
	limiter := api.NewRateLimiter()

	container.Register(di.Metrics, metrics)
	container.Register(di.Locks, locks)
	container.Register(di.Files, files)
	container.Register(di.PlansRepo, repo)
	container.Register(di.Stats, stats)
	container.Register(di.LLM, llmService)
	container.Register(di.Plan, planService)
	container.Register(di.Layout, layoutService)
	container.Register(di.Export, exportService)
	container.Register(di.WebSocket, manager)
	container.Register(di.Limiter, limiter)

	ctx, cancel := context.WithCancel(context.Background())
	locks.StartCleanup(ctx, lockCleanupInterval)
	manager.StartCleanup(ctx, wsCleanupInterval)
	limiter.StartCleanup(ctx, limiterCleanupInterval)
	metrics.StartMetricsCollection(ctx, metricsReportInterval)

	router, err := api.SetupRouter(container, api.RouterOptions{
		Limiter:   limiter,
		DebugMode: cfg.DebugMode,
	})
	if err != nil {
		cancel()
		repo.Close()
		return nil, fmt.Errorf("setup router: %w", err)
	}

	logger.Info("Services initialized", map[string]interface{}{
		"services":            len(container.Names()),
		"llm_ready":           llmService.IsReady(),
		"resolve_ai_overlaps": cfg.ResolveAIOverlaps,
	})

	return &App{
		config:    cfg,
		container: container,
		repo:      repo,
		stats:     stats,
		router:    router,
		cancel:    cancel,
		logger:    logger,
	}, nil
}

// Router returns the configured gin engine.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Container returns the service container.
func (a *App) Container() *di.Container {
	return a.container
}

// Run 启动HTTP服务器，阻塞直到服务器关闭
func (a *App) Run() error {
	a.server = &http.Server{
		Addr:              ":" + a.config.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.logger.Info("HTTP server listening", map[string]interface{}{"addr": a.server.Addr})

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 停止后台任务，关闭服务器并保存统计数据
func (a *App) Shutdown(ctx context.Context) error {
	a.cancel()

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
		}
	}
	if manager, err := di.Resolve[*api.WebSocketManager](a.container, di.WebSocket); err == nil {
		manager.Shutdown()
	}
	if err := a.stats.Close(); err != nil {
		errs = append(errs, fmt.Errorf("flush stats: %w", err))
	}
	if err := a.repo.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}
