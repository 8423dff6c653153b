package activity

import "time"

// EntryType 活动日志条目类型
type EntryType string

const (
	EntryTransferCompleted EntryType = "TRANSFER_COMPLETED" // 调拨完成
	EntryTransferFailed    EntryType = "TRANSFER_FAILED"    // 调拨失败
	EntryOrderPlaced       EntryType = "ORDER_PLACED"       // 采购单已提交
	EntryOrderFailed       EntryType = "ORDER_FAILED"       // 采购下单失败
	EntryAlertRaised       EntryType = "ALERT_RAISED"       // 告警发起
	EntryAlertResolved     EntryType = "ALERT_RESOLVED"     // 告警解除
	EntryCycleCompleted    EntryType = "CYCLE_COMPLETED"    // 周期完成
)

// Entry 活动日志条目（只增不改）
//
// 教学要点：
// 1. 为什么需要独立的活动日志？
//   - 调拨记录/采购单是业务凭证，活动日志是运维视角的流水
//   - 按CycleID关联，可回放一个周期内发生的全部动作
type Entry struct {
	ID uint `json:"id"`

	// 周期ID（关联同一周期内的所有动作）
	CycleID string `json:"cycle_id"`

	Type EntryType `json:"type"`

	// 相关物资/库位（周期级条目为0）
	ItemID     uint `json:"item_id"`
	LocationID uint `json:"location_id"`

	// 数量变化（正数=增加，负数=减少，无变化为0）
	QuantityDelta int `json:"quantity_delta"`

	// 详情（人类可读）
	Detail string `json:"detail"`

	CreatedAt time.Time `json:"created_at"`
}

// Recorder 活动日志接口
// 教学要点：Append是fire-and-forget语义，
// 不允许阻塞主管线（实现内部用缓冲通道异步落库）
type Recorder interface {
	Append(entry *Entry)
}
