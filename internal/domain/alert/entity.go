package alert

import "time"

// Type 告警类型
type Type string

const (
	// TypeLowStock 低库存告警（quantity <= minimum_threshold）
	TypeLowStock Type = "LOW_STOCK"

	// TypeCycleFailure 调度周期连续失败的升级告警
	TypeCycleFailure Type = "CYCLE_FAILURE"
)

// Alert 告警实体
//
// 教学要点：
// 1. 告警去重的核心不变式
//     同一(物资, 库位, 类型)在任意时刻最多存在一条未解除告警；
//     重复Raise是幂等的（返回已存在告警的ID）
//
// 2. 自动解除
//     触发条件消失（库存回到阈值之上）后由执行层自动解除，
//     不依赖人工确认
type Alert struct {
	ID uint `json:"id"`

	// 物资ID
	ItemID uint `json:"item_id"`

	// 库位ID（周期级告警如CYCLE_FAILURE为0）
	LocationID uint `json:"location_id"`

	// 告警类型
	Type Type `json:"type"`

	// 告警内容
	Message string `json:"message"`

	// 是否已解除
	IsResolved bool `json:"is_resolved"`

	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}
