package rebalance

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xiebiao/medsupply/internal/domain/activity"
	"github.com/xiebiao/medsupply/internal/domain/rebalance"
	"github.com/xiebiao/medsupply/internal/domain/stock"
	"github.com/xiebiao/medsupply/internal/infrastructure/config"
	"github.com/xiebiao/medsupply/internal/infrastructure/mq"
	apperrors "github.com/xiebiao/medsupply/pkg/errors"
	"github.com/xiebiao/medsupply/pkg/metrics"
	"github.com/xiebiao/medsupply/pkg/tracing"
)

// CycleSummary 单次周期的汇总结果
type CycleSummary struct {
	CycleID   string        `json:"cycle_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	ItemsTotal     int `json:"items_total"`
	ItemsProcessed int `json:"items_processed"`

	Transfers       int `json:"transfers"`
	FailedTransfers int `json:"failed_transfers"`
	BufferMoves     int `json:"buffer_moves"`
	Orders          int `json:"orders"`
	AlertsRaised    int `json:"alerts_raised"`
	AlertsResolved  int `json:"alerts_resolved"`

	// Skipped 聚合阶段因数据异常跳过的物资数
	Skipped int `json:"skipped"`

	// Partial 周期超时导致部分物资未处理
	Partial bool `json:"partial"`

	// Errors 各物资流水线的错误描述（不含单笔调拨失败）
	Errors []string `json:"errors,omitempty"`
}

// CycleRunner 周期执行入口
type CycleRunner interface {
	RunCycle(ctx context.Context) (*CycleSummary, error)
}

// RunCycleUseCase 重平衡周期用例
//
// 教学要点：
// 1. 快照一次，规划全部，再执行
//   - 周期开始时一次性读快照，所有规划在快照上计算
//   - 执行时用行锁做在锁校验，快照过期只会导致单笔失败
//
// 2. 物资级并发
//   - 不同物资的流水线互不依赖，用信号量限制并发度
//   - 同一物资内部严格串行（调拨→采购→缓冲→告警）
//
// 3. 超时降级为部分完成
//     周期超时不算失败：已处理物资的结果已落库，
//     未处理的物资等下个周期
type RunCycleUseCase struct {
	stocks         stock.Repository
	executor       *Executor
	recorder       activity.Recorder
	events         *mq.EventPublisher
	params         rebalance.Params
	cycleTimeout   time.Duration
	maxConcurrency int
}

// NewRunCycleUseCase 创建周期用例
func NewRunCycleUseCase(
	stocks stock.Repository,
	executor *Executor,
	recorder activity.Recorder,
	events *mq.EventPublisher,
	cfg *config.Config,
) *RunCycleUseCase {
	return &RunCycleUseCase{
		stocks:   stocks,
		executor: executor,
		recorder: recorder,
		events:   events,
		params: rebalance.Params{
			SurplusFloor:       cfg.Engine.SurplusFloor,
			ReserveBuffer:      cfg.Engine.ReserveBuffer,
			SafetyMargin:       cfg.Engine.SafetyMargin,
			BufferSurplusFloor: cfg.Engine.BufferFloor,
		},
		cycleTimeout:   cfg.Engine.CycleTimeout,
		maxConcurrency: cfg.Engine.MaxConcurrency,
	}
}

// RunCycle 执行一次完整的重平衡周期
func (uc *RunCycleUseCase) RunCycle(ctx context.Context) (*CycleSummary, error) {
	cycleID := uuid.New().String()

	ctx, cancel := context.WithTimeout(ctx, uc.cycleTimeout)
	defer cancel()

	ctx, span := tracing.StartSpan(ctx, "medsupply-engine", "RunCycle")
	defer span.End()

	startedAt := time.Now()
	summary := &CycleSummary{
		CycleID:   cycleID,
		StartedAt: startedAt,
	}

	log.Printf("🔄 重平衡周期开始: cycle=%s", cycleID)

	// 1. 全量快照
	rows, err := uc.stocks.GetSnapshot(ctx)
	if err != nil {
		uc.finishMetrics(summary, startedAt, "failure")
		return nil, apperrors.WrapCode(apperrors.ErrCodeSnapshotFailed, "库存快照读取失败", err)
	}

	// 2. 聚合成物资视图（纯计算）
	views, skipped := rebalance.Aggregate(rows, uc.params)
	summary.ItemsTotal = len(views)
	summary.Skipped = len(skipped)
	for itemID, skipErr := range skipped {
		log.Printf("⚠️ 物资%d数据异常, 本周期跳过: %v", itemID, skipErr)
	}

	// 3. 物资级并发执行
	results := uc.executeAll(ctx, cycleID, views)

	// 4. 汇总
	for _, r := range results {
		summary.ItemsProcessed++
		summary.Transfers += r.Transfers
		summary.FailedTransfers += r.FailedTransfers
		summary.BufferMoves += r.BufferMoves
		summary.Orders += r.Orders
		summary.AlertsRaised += r.AlertsRaised
		summary.AlertsResolved += r.AlertsResolved
		if r.Err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("物资%d: %v", r.ItemID, r.Err))
		}
	}
	summary.Partial = summary.ItemsProcessed < summary.ItemsTotal || ctx.Err() != nil
	summary.Duration = time.Since(startedAt)

	result := "success"
	if summary.Partial {
		result = "partial"
	}
	uc.finishMetrics(summary, startedAt, result)

	uc.recorder.Append(&activity.Entry{
		CycleID: cycleID,
		Type:    activity.EntryCycleCompleted,
		Detail: fmt.Sprintf("周期完成: 物资%d/%d, 调拨%d(失败%d), 缓冲%d, 采购%d, 告警+%d/-%d, 耗时%s",
			summary.ItemsProcessed, summary.ItemsTotal,
			summary.Transfers, summary.FailedTransfers,
			summary.BufferMoves, summary.Orders,
			summary.AlertsRaised, summary.AlertsResolved,
			summary.Duration.Round(time.Millisecond)),
	})

	uc.events.Publish(mq.RouteCycleCompleted, mq.CycleCompletedEvent{
		CycleID:        cycleID,
		Partial:        summary.Partial,
		ItemsProcessed: summary.ItemsProcessed,
		Transfers:      summary.Transfers,
		Orders:         summary.Orders,
		Duration:       summary.Duration,
		OccurredAt:     time.Now(),
	})

	log.Printf("✅ 重平衡周期完成: cycle=%s, 物资=%d/%d, 调拨=%d, 采购=%d, 耗时=%v",
		cycleID, summary.ItemsProcessed, summary.ItemsTotal,
		summary.Transfers, summary.Orders, summary.Duration.Round(time.Millisecond))

	return summary, nil
}

// executeAll 按信号量并发执行所有物资流水线
func (uc *RunCycleUseCase) executeAll(ctx context.Context, cycleID string, views []*rebalance.ItemView) []ItemResult {
	sem := make(chan struct{}, uc.maxConcurrency)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []ItemResult
	)

	for _, view := range views {
		// 超时后不再调度新的物资
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(v *rebalance.ItemView) {
			defer wg.Done()
			defer func() { <-sem }()

			if metrics.ItemsInProgress != nil {
				metrics.IncGauge(metrics.ItemsInProgress)
				defer metrics.DecGauge(metrics.ItemsInProgress)
			}

			itemCtx, itemSpan := tracing.StartSpan(ctx, "medsupply-engine", "ExecuteItem")
			r := uc.executor.ExecuteItem(itemCtx, cycleID, v)
			itemSpan.End()

			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}(view)
	}
	wg.Wait()

	// 汇总顺序与物资ID一致（便于日志和测试）
	sort.Slice(results, func(i, j int) bool { return results[i].ItemID < results[j].ItemID })
	return results
}

func (uc *RunCycleUseCase) finishMetrics(summary *CycleSummary, startedAt time.Time, result string) {
	if metrics.CyclesTotal != nil {
		metrics.IncCounterVec(metrics.CyclesTotal, map[string]string{"result": result})
	}
	if metrics.CycleDuration != nil {
		metrics.ObserveHistogram(metrics.CycleDuration, time.Since(startedAt).Seconds())
	}
}
