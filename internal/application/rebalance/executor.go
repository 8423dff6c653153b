package rebalance

import (
	"context"
	"fmt"
	"time"

	"github.com/xiebiao/medsupply/internal/domain/activity"
	"github.com/xiebiao/medsupply/internal/domain/alert"
	"github.com/xiebiao/medsupply/internal/domain/procurement"
	"github.com/xiebiao/medsupply/internal/domain/rebalance"
	"github.com/xiebiao/medsupply/internal/domain/stock"
	"github.com/xiebiao/medsupply/internal/infrastructure/mq"
	"github.com/xiebiao/medsupply/pkg/circuitbreaker"
	"github.com/xiebiao/medsupply/pkg/metrics"
)

// DedupWindow 采购去重窗口接口（Redis实现）
type DedupWindow interface {
	// Acquire 占用成功返回true（可以下单）
	Acquire(ctx context.Context, itemID, locationID uint, ttl time.Duration) (bool, error)

	// Release 释放窗口（下单失败时调用）
	Release(ctx context.Context, itemID, locationID uint) error
}

// ItemResult 单个物资流水线的执行结果
type ItemResult struct {
	ItemID          uint
	Transfers       int // 成功执行的缺口调拨数
	FailedTransfers int
	BufferMoves     int // 成功执行的缓冲补给数
	Orders          int // 成功创建的采购单数
	AlertsRaised    int
	AlertsResolved  int

	// Err 非nil表示流水线被中断（如周期超时）
	// 单笔调拨/下单失败不会中断流水线，只计数
	Err error
}

// Executor 单物资执行器
//
// 教学要点：
// 1. 规划与执行分离
//   - 规划（domain/rebalance）是纯函数，在快照上计算
//   - 执行（这里）带副作用：落库、下单、告警、发事件
//
// 2. 失败隔离
//     单笔调拨失败（如快照过期导致源不足）只记录并继续，
//     残余缺口由下个周期重新规划
type Executor struct {
	stocks   stock.Repository
	alerts   alert.Repository
	gateway  procurement.Gateway
	dedup    DedupWindow
	recorder activity.Recorder
	events   *mq.EventPublisher
	breaker  *circuitbreaker.CircuitBreaker
	params   rebalance.Params
	dedupTTL time.Duration
}

// NewExecutor 创建执行器
func NewExecutor(
	stocks stock.Repository,
	alerts alert.Repository,
	gateway procurement.Gateway,
	dedup DedupWindow,
	recorder activity.Recorder,
	events *mq.EventPublisher,
	params rebalance.Params,
	dedupTTL time.Duration,
) *Executor {
	// 采购网关熔断器：连续3次失败打开，30秒后半开探测
	breaker := circuitbreaker.NewCircuitBreaker("procurement-gateway", circuitbreaker.Config{
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	breaker.SetStateChangeCallback(func(name string, from, to circuitbreaker.State) {
		if metrics.CircuitBreakerState != nil {
			metrics.SetGaugeVec(metrics.CircuitBreakerState,
				map[string]string{"name": name}, float64(to))
		}
	})

	return &Executor{
		stocks:   stocks,
		alerts:   alerts,
		gateway:  gateway,
		dedup:    dedup,
		recorder: recorder,
		events:   events,
		breaker:  breaker,
		params:   params,
		dedupTTL: dedupTTL,
	}
}

// ExecuteItem 执行单个物资的完整流水线
//
// 流程：
// 1. 规划并执行缺口调拨
// 2. 对残余缺口做采购决策并下单
// 3. 安全缓冲再分配
// 4. 所有变更落定后重评该物资所有库位的告警
func (e *Executor) ExecuteItem(ctx context.Context, cycleID string, view *rebalance.ItemView) ItemResult {
	result := ItemResult{ItemID: view.ItemID}

	// 1. 缺口调拨
	plans := rebalance.PlanTransfers(view, e.params)
	applied := e.applyTransfers(ctx, cycleID, plans, &result)
	result.Transfers = len(applied)
	if result.Err != nil {
		return result
	}

	// 2. 采购决策（只看调拨未覆盖的残余缺口）
	received := rebalance.ReceivedByDestination(applied)
	reorders := rebalance.PlanReorders(view, received, e.params)
	e.placeOrders(ctx, cycleID, reorders, &result)
	if result.Err != nil {
		return result
	}

	// 3. 安全缓冲再分配（在已执行调拨之上计算）
	bufferPlans := rebalance.PlanBufferMoves(view, applied, e.params)
	bufferApplied := e.applyTransfers(ctx, cycleID, bufferPlans, &result)
	result.BufferMoves = len(bufferApplied)
	if result.Err != nil {
		return result
	}

	// 4. 告警重评（必须在本物资最后一次库存变更之后）
	e.reevaluateAlerts(ctx, cycleID, view, &result)

	return result
}

// applyTransfers 逐笔执行调拨计划，返回成功的计划
func (e *Executor) applyTransfers(ctx context.Context, cycleID string, plans []*stock.TransferPlan, result *ItemResult) []*stock.TransferPlan {
	var applied []*stock.TransferPlan

	for _, plan := range plans {
		// 周期超时后不再发起新调拨
		if err := ctx.Err(); err != nil {
			result.Err = err
			return applied
		}

		record, err := e.stocks.ApplyTransfer(ctx, plan)
		if err != nil {
			result.FailedTransfers++
			if metrics.TransfersFailedTotal != nil {
				metrics.IncCounter(metrics.TransfersFailedTotal)
			}

			failReason := err.Error()
			if record != nil {
				failReason = record.FailReason
			}
			e.recorder.Append(&activity.Entry{
				CycleID:    cycleID,
				Type:       activity.EntryTransferFailed,
				ItemID:     plan.ItemID,
				LocationID: plan.SourceLocationID,
				Detail: fmt.Sprintf("调拨失败 %d→%d 数量%d: %s",
					plan.SourceLocationID, plan.DestinationLocationID, plan.Quantity, failReason),
			})
			continue
		}

		applied = append(applied, plan)
		if metrics.TransfersExecutedTotal != nil {
			metrics.IncCounterVec(metrics.TransfersExecutedTotal,
				map[string]string{"rationale": string(plan.Rationale)})
		}

		e.recorder.Append(&activity.Entry{
			CycleID:       cycleID,
			Type:          activity.EntryTransferCompleted,
			ItemID:        plan.ItemID,
			LocationID:    plan.DestinationLocationID,
			QuantityDelta: plan.Quantity,
			Detail: fmt.Sprintf("调拨完成 %d→%d 数量%d (%s) 记录#%d",
				plan.SourceLocationID, plan.DestinationLocationID, plan.Quantity, plan.Rationale, record.ID),
		})
	}

	return applied
}

// placeOrders 对采购决策逐条下单
func (e *Executor) placeOrders(ctx context.Context, cycleID string, reorders []*procurement.ReorderRequest, result *ItemResult) {
	for _, req := range reorders {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return
		}

		// 去重窗口：窗口内同一(物资, 库位)只下一单
		ok, err := e.dedup.Acquire(ctx, req.ItemID, req.DestinationLocationID, e.dedupTTL)
		if err != nil {
			// Redis故障时保守放行（宁可重复下单，不可漏单）
			ok = true
		}
		if !ok {
			if metrics.OrdersDedupedTotal != nil {
				metrics.IncCounter(metrics.OrdersDedupedTotal)
			}
			continue
		}

		// 熔断器包裹网关调用
		var orderNo string
		err = e.breaker.Execute(func() error {
			var placeErr error
			orderNo, placeErr = e.gateway.PlaceOrder(ctx, req)
			return placeErr
		})

		if err != nil {
			// 下单失败：释放窗口，让下个周期可以立即重试
			_ = e.dedup.Release(ctx, req.ItemID, req.DestinationLocationID)

			if metrics.OrdersFailedTotal != nil {
				metrics.IncCounter(metrics.OrdersFailedTotal)
			}
			e.recorder.Append(&activity.Entry{
				CycleID:    cycleID,
				Type:       activity.EntryOrderFailed,
				ItemID:     req.ItemID,
				LocationID: req.DestinationLocationID,
				Detail:     fmt.Sprintf("采购下单失败 数量%d: %v", req.Quantity, err),
			})
			continue
		}

		result.Orders++
		if metrics.OrdersPlacedTotal != nil {
			metrics.IncCounterVec(metrics.OrdersPlacedTotal,
				map[string]string{"priority": string(req.Priority)})
		}

		e.recorder.Append(&activity.Entry{
			CycleID:       cycleID,
			Type:          activity.EntryOrderPlaced,
			ItemID:        req.ItemID,
			LocationID:    req.DestinationLocationID,
			QuantityDelta: req.Quantity,
			Detail:        fmt.Sprintf("采购单%s 数量%d 优先级%s: %s", orderNo, req.Quantity, req.Priority, req.Reason),
		})

		e.events.Publish(mq.RouteOrderRequested, mq.OrderRequestedEvent{
			OrderNo:               orderNo,
			ItemID:                req.ItemID,
			DestinationLocationID: req.DestinationLocationID,
			Quantity:              req.Quantity,
			Priority:              string(req.Priority),
			OccurredAt:            time.Now(),
		})
	}
}

// reevaluateAlerts 本物资所有库位的告警重评
//
// 教学要点：
// 1. 必须读执行后的最新数量（不能用周期开始的快照），
//    否则刚被调拨补齐的库位会误报
// 2. 触发条件是严格低于阈值；恰好等于阈值的库位
//    由缓冲再分配补给，不值得惊动值班人员
// 3. Raise幂等：连续缺货的周期不会重复告警
func (e *Executor) reevaluateAlerts(ctx context.Context, cycleID string, view *rebalance.ItemView, result *ItemResult) {
	for _, snap := range view.Stocks {
		current, err := e.stocks.GetStock(ctx, snap.ItemID, snap.LocationID)
		if err != nil {
			// 单个库位读取失败不影响其余库位的重评
			continue
		}

		if current.Quantity < current.MinimumThreshold {
			a := &alert.Alert{
				ItemID:     current.ItemID,
				LocationID: current.LocationID,
				Type:       alert.TypeLowStock,
				Message: fmt.Sprintf("物资%d在库位%d低于安全阈值: 当前%d, 阈值%d",
					current.ItemID, current.LocationID, current.Quantity, current.MinimumThreshold),
			}
			id, created, err := e.alerts.Raise(ctx, a)
			if err != nil || !created {
				continue
			}

			result.AlertsRaised++
			if metrics.AlertsRaisedTotal != nil {
				metrics.IncCounterVec(metrics.AlertsRaisedTotal,
					map[string]string{"type": string(alert.TypeLowStock)})
			}
			e.recorder.Append(&activity.Entry{
				CycleID:    cycleID,
				Type:       activity.EntryAlertRaised,
				ItemID:     current.ItemID,
				LocationID: current.LocationID,
				Detail:     a.Message,
			})
			e.events.Publish(mq.RouteAlertRaised, mq.AlertEvent{
				AlertID:    id,
				ItemID:     current.ItemID,
				LocationID: current.LocationID,
				Type:       string(alert.TypeLowStock),
				Message:    a.Message,
				OccurredAt: time.Now(),
			})
		} else {
			resolved, err := e.alerts.ResolveIfOpen(ctx, current.ItemID, current.LocationID, alert.TypeLowStock)
			if err != nil || !resolved {
				continue
			}

			result.AlertsResolved++
			if metrics.AlertsResolvedTotal != nil {
				metrics.IncCounter(metrics.AlertsResolvedTotal)
			}
			e.recorder.Append(&activity.Entry{
				CycleID:    cycleID,
				Type:       activity.EntryAlertResolved,
				ItemID:     current.ItemID,
				LocationID: current.LocationID,
				Detail:     fmt.Sprintf("物资%d在库位%d回到阈值之上, 告警解除", current.ItemID, current.LocationID),
			})
			e.events.Publish(mq.RouteAlertResolved, mq.AlertEvent{
				ItemID:     current.ItemID,
				LocationID: current.LocationID,
				Type:       string(alert.TypeLowStock),
				OccurredAt: time.Now(),
			})
		}
	}
}
