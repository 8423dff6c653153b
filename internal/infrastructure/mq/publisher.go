// Package mq 封装引擎的领域事件发布
package mq

import (
	"log"
	"time"

	"github.com/xiebiao/medsupply/internal/infrastructure/config"
	"github.com/xiebiao/medsupply/pkg/metrics"
	pkgmq "github.com/xiebiao/medsupply/pkg/mq"
)

// 路由键约定（topic exchange: medsupply.events）
const (
	RouteAlertRaised    = "alert.raised"
	RouteAlertResolved  = "alert.resolved"
	RouteOrderRequested = "order.requested"
	RouteCycleCompleted = "cycle.completed"
)

// AlertEvent 告警事件
type AlertEvent struct {
	AlertID    uint      `json:"alert_id"`
	ItemID     uint      `json:"item_id"`
	LocationID uint      `json:"location_id"`
	Type       string    `json:"type"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// OrderRequestedEvent 采购请求事件
type OrderRequestedEvent struct {
	OrderNo               string    `json:"order_no"`
	ItemID                uint      `json:"item_id"`
	DestinationLocationID uint      `json:"destination_location_id"`
	Quantity              int       `json:"quantity"`
	Priority              string    `json:"priority"`
	OccurredAt            time.Time `json:"occurred_at"`
}

// CycleCompletedEvent 周期完成事件
type CycleCompletedEvent struct {
	CycleID        string        `json:"cycle_id"`
	Partial        bool          `json:"partial"`
	ItemsProcessed int           `json:"items_processed"`
	Transfers      int           `json:"transfers"`
	Orders         int           `json:"orders"`
	Duration       time.Duration `json:"duration"`
	OccurredAt     time.Time     `json:"occurred_at"`
}

// EventPublisher 领域事件发布器
//
// 设计说明:
// 1. 事件是best-effort:发布失败只打日志,不影响主管线
//    (业务凭证已在MySQL里,事件只服务下游的通知/看板)
// 2. MQ未配置(URL为空)时退化为no-op,便于本地开发和测试
type EventPublisher struct {
	publisher *pkgmq.Publisher
	exchange  string
}

// NewEventPublisher 创建事件发布器
func NewEventPublisher(cfg *config.Config) (*EventPublisher, error) {
	if cfg.MQ.URL == "" {
		log.Println("⚠️ 未配置MQ, 领域事件将不会发布")
		return &EventPublisher{}, nil
	}

	p, err := pkgmq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, "topic")
	if err != nil {
		return nil, err
	}

	return &EventPublisher{publisher: p, exchange: cfg.MQ.Exchange}, nil
}

// Publish 发布事件（best-effort）
func (e *EventPublisher) Publish(routingKey string, event interface{}) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(routingKey, event); err != nil {
		log.Printf("⚠️ 事件发布失败: key=%s, err=%v", routingKey, err)
		return
	}

	if metrics.MessagesPublishedTotal != nil {
		metrics.IncCounterVec(metrics.MessagesPublishedTotal, map[string]string{
			"exchange":    e.exchange,
			"routing_key": routingKey,
		})
	}
}

// Close 关闭发布器
func (e *EventPublisher) Close() error {
	if e.publisher == nil {
		return nil
	}
	return e.publisher.Close()
}
