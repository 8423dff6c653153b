package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiebiao/medsupply/pkg/metrics"
	"github.com/xiebiao/medsupply/pkg/tracing"
)

// main 主程序入口
//
// 进程结构：
//   - 调度器goroutine：按固定间隔执行重平衡周期
//   - HTTP服务：运维面（状态查询、手动触发、指标、健康检查）
//
// 两者共享同一个App装配（wire_gen.go生成）
func main() {
	// 1. 初始化Prometheus指标
	metrics.InitMetrics()

	// 2. 依赖注入（Wire生成）
	app, err := InitializeApp()
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}
	cfg := app.Config

	fmt.Printf("✓ 配置加载成功\n")
	fmt.Printf("  - 服务端口: %d\n", cfg.Server.Port)
	fmt.Printf("  - 运行模式: %s\n", cfg.Server.Mode)
	fmt.Printf("  - 数据库: %s:%d/%s\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
	fmt.Printf("  - Redis: %s\n", cfg.Redis.Addr())
	fmt.Printf("  - 周期间隔: %v, 周期超时: %v, 并发上限: %d\n",
		cfg.Engine.CheckInterval, cfg.Engine.CycleTimeout, cfg.Engine.MaxConcurrency)

	// 3. 初始化链路追踪（可选）
	shutdownTracer := func(context.Context) error { return nil }
	if cfg.Tracing.Enabled {
		shutdownTracer, err = tracing.InitTracer("medsupply-engine", cfg.Tracing.CollectorURL)
		if err != nil {
			log.Fatalf("初始化链路追踪失败: %v", err)
		}
		fmt.Printf("  - 链路追踪: %s\n", cfg.Tracing.CollectorURL)
	}

	// 4. 启动调度器
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	go app.Scheduler.Start(schedulerCtx)

	// 5. 启动HTTP服务
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		fmt.Printf("\n🚀 引擎启动成功！\n")
		fmt.Printf("   健康检查: http://localhost%s/ping\n", srv.Addr)
		fmt.Printf("   指标采集: http://localhost%s/metrics\n", srv.Addr)
		fmt.Printf("   调度状态: GET  http://localhost%s/api/v1/engine/status\n", srv.Addr)
		fmt.Printf("   手动触发: POST http://localhost%s/api/v1/engine/trigger\n", srv.Addr)
		fmt.Printf("\n按Ctrl+C停止服务\n\n")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("启动服务失败: %v", err)
		}
	}()

	// 6. 优雅停机
	// 顺序：先停HTTP（不再接收触发），再停调度器（等当前周期收尾），
	// 最后冲刷活动日志和事件发布器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("📤 收到退出信号，开始优雅停机...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ HTTP服务停机异常: %v", err)
	}

	stopScheduler()
	app.Scheduler.Stop()

	app.Recorder.Close()
	if err := app.Events.Close(); err != nil {
		log.Printf("⚠️ 事件发布器关闭异常: %v", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Printf("⚠️ 链路追踪关闭异常: %v", err)
	}

	log.Println("✅ 引擎已退出")
}
