package procurement

import (
	"errors"
	"fmt"
)

// Priority 采购优先级
type Priority string

const (
	PriorityNormal   Priority = "NORMAL"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// 领域错误定义
var (
	ErrInvalidRequest = errors.New("无效的采购请求")

	// ErrOrderPlacement 下单失败（供应商侧故障）
	// 教学要点：下单失败不丢弃缺口，下个周期会重新发起；
	// 去重窗口防止同一(物资, 库位)短时间内重复下单
	ErrOrderPlacement = errors.New("采购下单失败")
)

// ReorderRequest 采购请求
//
// 教学要点：
// 1. 为什么按(物资, 库位)逐条下单而不合并？
//     每个科室/仓库维护自己的供应商关系（院内分权采购），
//     合并下单反而需要二次分配
//
// 2. TotalShortage是决策上下文
//     记录全网缺口总量，供采购审批人员判断紧迫程度
type ReorderRequest struct {
	ItemID                uint     `json:"item_id"`
	DestinationLocationID uint     `json:"destination_location_id"`
	Quantity              int      `json:"quantity"`
	Priority              Priority `json:"priority"`

	// 采购原因（面向审批人的说明）
	Reason string `json:"reason"`

	// 该物资全网缺口总量（决策上下文）
	TotalShortage int `json:"total_shortage"`
}

// Validate 验证采购请求
func (r *ReorderRequest) Validate() error {
	if r.ItemID == 0 || r.DestinationLocationID == 0 {
		return fmt.Errorf("%w: 物资或库位ID为空", ErrInvalidRequest)
	}

	if r.Quantity <= 0 {
		return fmt.Errorf("%w: 数量必须为正", ErrInvalidRequest)
	}

	switch r.Priority {
	case PriorityNormal, PriorityHigh, PriorityCritical:
	default:
		return fmt.Errorf("%w: 未知优先级%q", ErrInvalidRequest, r.Priority)
	}

	return nil
}

// DedupKey 去重窗口键
// 教学要点：同一(物资, 库位)在窗口期内只允许一笔采购请求落地
func (r *ReorderRequest) DedupKey() string {
	return fmt.Sprintf("%d:%d", r.ItemID, r.DestinationLocationID)
}
