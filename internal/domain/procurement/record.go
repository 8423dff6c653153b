package procurement

import (
	"fmt"
	"math/rand"
	"time"
)

// OrderStatus 采购单状态
// 教学说明：引擎只负责创建（PENDING_APPROVAL），
// 后续审批/收货流转由采购子系统处理
type OrderStatus string

const (
	OrderStatusPendingApproval OrderStatus = "PENDING_APPROVAL" // 待审批
	OrderStatusApproved        OrderStatus = "APPROVED"         // 已审批
	OrderStatusRejected        OrderStatus = "REJECTED"         // 已驳回
)

// PurchaseOrderRecord 采购单记录（持久化）
type PurchaseOrderRecord struct {
	ID      uint   `json:"id"`
	OrderNo string `json:"order_no"`

	ItemID                uint        `json:"item_id"`
	DestinationLocationID uint        `json:"destination_location_id"`
	Quantity              int         `json:"quantity"`
	Priority              Priority    `json:"priority"`
	Reason                string      `json:"reason"`
	TotalShortage         int         `json:"total_shortage"`
	Status                OrderStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GenerateOrderNo 生成采购单号
// 教学要点:单号设计原则
// 1. 全局唯一(避免冲突)
// 2. 时间有序(便于分库分表)
// 3. 不可预测(防止恶意遍历)
//
// 格式:PO + 时间戳(秒) + 6位随机数
// 示例:PO1699248000123456
func GenerateOrderNo() string {
	timestamp := time.Now().Unix()
	random := rand.Intn(1000000) // 6位随机数
	return fmt.Sprintf("PO%d%06d", timestamp, random)
}
