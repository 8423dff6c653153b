//go:build wireinject
// +build wireinject

// Wire依赖注入配置文件
//
// 教学说明：
// 1. Wire是Google开发的编译期依赖注入工具
// 2. 与运行时反射注入不同，Wire在编译期生成代码
// 3. 优势：零运行时开销、类型安全、编译期检测循环依赖
//
// Wire工作流程：
// Step 1: 编写wire.go（本文件），定义Providers和Injector
// Step 2: 运行 `wire gen ./cmd/engine`
// Step 3: Wire生成wire_gen.go，包含完整的依赖创建代码
// Step 4: main.go调用wire_gen.go中的InitializeApp()

package main

import (
	"github.com/google/wire"

	apprebalance "github.com/xiebiao/medsupply/internal/application/rebalance"
	"github.com/xiebiao/medsupply/internal/domain/activity"
	"github.com/xiebiao/medsupply/internal/infrastructure/config"
	"github.com/xiebiao/medsupply/internal/infrastructure/mq"
	"github.com/xiebiao/medsupply/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/medsupply/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/medsupply/internal/interface/http/handler"
)

// ========================================
// Wire Provider Sets (依赖分组)
// ========================================
// 教学说明：
// ProviderSet 将相关的 Provider 分组，便于管理和复用

// infrastructureSet 基础设施层依赖
var infrastructureSet = wire.NewSet(
	config.Load,          // 加载配置文件
	mysql.NewDB,          // 创建MySQL连接
	redis.NewClient,      // 创建Redis连接
	mq.NewEventPublisher, // 创建事件发布器
)

// repositorySet 仓储层依赖
var repositorySet = wire.NewSet(
	mysql.NewStockRepository,         // 库存仓储
	mysql.NewAlertRepository,         // 告警仓储
	mysql.NewPurchaseOrderRepository, // 采购网关（落库实现）
	mysql.NewActivityRecorder,        // 活动日志记录器
	wire.Bind(new(activity.Recorder), new(*mysql.ActivityRecorder)),
	provideDedupWindow, // 采购去重窗口
	provideLeaderLock,  // 周期抢占锁
)

// applicationSet 应用层依赖
var applicationSet = wire.NewSet(
	providePlannerParams,            // 规划参数（从配置提取）
	provideExecutor,                 // 单物资执行器
	apprebalance.NewRunCycleUseCase, // 周期用例
	wire.Bind(new(apprebalance.CycleRunner), new(*apprebalance.RunCycleUseCase)),
	provideScheduler, // 调度器
)

// handlerSet HTTP处理器依赖
var handlerSet = wire.NewSet(
	handler.NewEngineHandler, // 引擎运维处理器
)

// ========================================
// Injector (注入器声明)
// ========================================

// InitializeApp 组装整个应用
func InitializeApp() (*App, error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		applicationSet,
		handlerSet,
		provideGinEngine,
		wire.Struct(new(App), "*"),
	)
	return nil, nil
}
