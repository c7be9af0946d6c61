// cmd/server/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/vanplanner/VanLayoutMCP/internal/app"
	"github.com/vanplanner/VanLayoutMCP/internal/config"
	"github.com/vanplanner/VanLayoutMCP/internal/di"
	"github.com/vanplanner/VanLayoutMCP/internal/utils"
)

func main() {
	log.Println("🚀 启动 VanLayoutMCP 服务器...")

	// 1. 首先加载基础配置
	baseConfig, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	log.Printf("✅ 基础配置加载完成，端口: %s", baseConfig.Port)

	// 2. 创建必要的目录
	createDirectories(baseConfig)

	// 3. 日志
	if err := utils.InitLogger(filepath.Join(baseConfig.LogDir, "vanlayout.log")); err != nil {
		log.Printf("⚠️ 日志文件初始化失败，使用标准输出: %v", err)
	}
	if baseConfig.DebugMode {
		utils.GetLogger().SetLogLevel(utils.DEBUG)
	}

	// 4. 初始化配置系统
	if err := config.InitConfig(baseConfig.DataDir); err != nil {
		log.Fatalf("初始化配置系统失败: %v", err)
	}
	log.Println("✅ 配置系统初始化完成")

	// 5. 初始化所有服务（按依赖顺序）
	application, err := app.InitServices(config.GetCurrentConfig(), di.GetContainer())
	if err != nil {
		log.Fatalf("初始化服务失败: %v", err)
	}
	log.Println("✅ 所有服务初始化完成")

	// 6. 启动服务器
	log.Printf("🔗 访问地址: http://localhost:%s/health", baseConfig.Port)
	go func() {
		if err := application.Run(); err != nil {
			log.Fatalf("❌ 启动服务器失败: %v", err)
		}
	}()

	// 等待中断信号以进行优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := application.Shutdown(ctx); err != nil {
		log.Fatalf("❌ 服务器关闭出错: %v", err)
	}
	log.Println("✅ 服务器优雅关闭完成")
}

// createDirectories 创建应用所需的目录结构
func createDirectories(cfg *config.Config) {
	dirs := []string{
		cfg.DataDir,
		filepath.Join(cfg.DataDir, "exports"),
		filepath.Join(cfg.DataDir, "journal"),
		filepath.Dir(cfg.DBPath),
		cfg.LogDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("创建目录失败 %s: %v", dir, err)
		}
	}
}
