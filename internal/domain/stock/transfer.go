package stock

import "time"

// Rationale 调拨动因标签
type Rationale string

const (
	// RationaleEmergency 紧急调拨（解决当前缺货）
	RationaleEmergency Rationale = "EMERGENCY"

	// RationalePreventive 预防性调拨（安全缓冲补给）
	RationalePreventive Rationale = "PREVENTIVE"

	// RationaleGlobalOptimization 全局再平衡（周期性优化）
	RationaleGlobalOptimization Rationale = "GLOBAL_OPTIMIZATION"
)

// TransferPlan 调拨计划（内存对象，执行一次后即转化为TransferRecord）
//
// 教学要点：
// 1. 计划与记录分离
//   - Plan是规划器的输出，纯内存、无ID
//   - Record是执行后的持久化凭证，不可变
//
// 2. 计划不修改库存
//     规划阶段只在快照的工作副本上做减法，
//     真正的扣减由执行层在数据库事务中完成
type TransferPlan struct {
	ItemID                uint      `json:"item_id"`
	SourceLocationID      uint      `json:"source_location_id"`
	DestinationLocationID uint      `json:"destination_location_id"`
	Quantity              int       `json:"quantity"`
	Rationale             Rationale `json:"rationale"`
}

// Validate 验证调拨计划
func (p *TransferPlan) Validate() error {
	if p.ItemID == 0 {
		return ErrInvalidItemID
	}

	if p.SourceLocationID == 0 || p.DestinationLocationID == 0 {
		return ErrInvalidLocationID
	}

	if p.SourceLocationID == p.DestinationLocationID {
		return ErrSameLocation
	}

	if p.Quantity <= 0 {
		return ErrInvalidQuantity
	}

	return nil
}

// TransferStatus 调拨记录状态
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "PENDING"   // 待执行
	TransferStatusCompleted TransferStatus = "COMPLETED" // 已完成
	TransferStatusFailed    TransferStatus = "FAILED"    // 执行失败
)

// TransferRecord 调拨记录（持久化，只增不改）
//
// 教学要点：
// 1. 为什么需要调拨记录？
//   - 审计需求：所有库存移动必须可追溯
//   - 对账需求：调拨与库存变更核对
//   - 失败记录同样保留（含失败原因），供下个周期重新规划参考
type TransferRecord struct {
	ID                    uint           `json:"id"`
	ItemID                uint           `json:"item_id"`
	SourceLocationID      uint           `json:"source_location_id"`
	DestinationLocationID uint           `json:"destination_location_id"`
	Quantity              int            `json:"quantity"`
	Rationale             Rationale      `json:"rationale"`
	Status                TransferStatus `json:"status"`

	// 失败原因（仅Status=FAILED时有值）
	FailReason string `json:"fail_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
