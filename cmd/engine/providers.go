package main

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	apprebalance "github.com/xiebiao/medsupply/internal/application/rebalance"
	"github.com/xiebiao/medsupply/internal/domain/activity"
	"github.com/xiebiao/medsupply/internal/domain/alert"
	"github.com/xiebiao/medsupply/internal/domain/procurement"
	"github.com/xiebiao/medsupply/internal/domain/rebalance"
	"github.com/xiebiao/medsupply/internal/domain/stock"
	"github.com/xiebiao/medsupply/internal/infrastructure/config"
	"github.com/xiebiao/medsupply/internal/infrastructure/mq"
	"github.com/xiebiao/medsupply/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/medsupply/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/medsupply/internal/interface/http/handler"
	"github.com/xiebiao/medsupply/internal/interface/http/middleware"
	"github.com/xiebiao/medsupply/pkg/response"
)

// App 进程级依赖的汇总
// main只和App打交道，不关心内部的装配链
type App struct {
	Config    *config.Config
	Engine    *gin.Engine
	Scheduler *apprebalance.Scheduler
	Recorder  *mysql.ActivityRecorder
	Events    *mq.EventPublisher
}

// ========================================
// Custom Providers (自定义Provider)
// ========================================
// 教学说明：
// 有些依赖的构造函数参数不是直接的类型（需要从Config提取字段），
// Wire无法自动推导，这时需要手动编写Provider函数

// providePlannerParams 从配置提取规划参数
func providePlannerParams(cfg *config.Config) rebalance.Params {
	return rebalance.Params{
		SurplusFloor:       cfg.Engine.SurplusFloor,
		ReserveBuffer:      cfg.Engine.ReserveBuffer,
		SafetyMargin:       cfg.Engine.SafetyMargin,
		BufferSurplusFloor: cfg.Engine.BufferFloor,
	}
}

// provideDedupWindow Redis采购去重窗口
func provideDedupWindow(client *goredis.Client) apprebalance.DedupWindow {
	return redis.NewDedupStore(client)
}

// provideLeaderLock Redis周期抢占锁
func provideLeaderLock(cfg *config.Config, client *goredis.Client) apprebalance.LeaderLock {
	return redis.NewCycleLock(client, cfg.Engine.LeaderLockKey)
}

// provideExecutor 单物资执行器
func provideExecutor(
	cfg *config.Config,
	stocks stock.Repository,
	alerts alert.Repository,
	gateway procurement.Gateway,
	dedup apprebalance.DedupWindow,
	recorder activity.Recorder,
	events *mq.EventPublisher,
	params rebalance.Params,
) *apprebalance.Executor {
	return apprebalance.NewExecutor(
		stocks, alerts, gateway, dedup, recorder, events,
		params, cfg.Engine.OrderDedupTTL,
	)
}

// provideScheduler 周期调度器
func provideScheduler(
	runner apprebalance.CycleRunner,
	alerts alert.Repository,
	lock apprebalance.LeaderLock,
	cfg *config.Config,
) *apprebalance.Scheduler {
	return apprebalance.NewScheduler(
		runner, alerts, lock,
		cfg.Engine.CheckInterval,
		cfg.Engine.FailureBackoff,
		cfg.Engine.CycleTimeout,
		cfg.Engine.EscalateAfter,
	)
}

// provideGinEngine 创建并配置Gin引擎
func provideGinEngine(cfg *config.Config, engineHandler *handler.EngineHandler) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog())

	// 健康检查
	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})

	// Prometheus指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 引擎运维面
	v1 := r.Group("/api/v1")
	{
		engine := v1.Group("/engine")
		{
			engine.GET("/status", engineHandler.Status)
			engine.POST("/trigger", engineHandler.Trigger)
		}
	}

	return r
}
