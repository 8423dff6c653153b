package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/xiebiao/medsupply/internal/domain/procurement"
	apperrors "github.com/xiebiao/medsupply/pkg/errors"
)

// purchaseOrderRepository 采购网关实现(MySQL)
//
// 设计说明:
// 采购子系统与引擎共库部署时,下单就是在purchase_orders表
// 插入一条PENDING_APPROVAL记录,审批流由采购侧处理。
// 独立部署时可以换成HTTP/gRPC客户端实现同一个Gateway接口,
// 引擎侧代码不需要任何改动(依赖倒置)。
type purchaseOrderRepository struct {
	db *gorm.DB
}

// NewPurchaseOrderRepository 创建采购网关
func NewPurchaseOrderRepository(db *gorm.DB) procurement.Gateway {
	return &purchaseOrderRepository{db: db}
}

// PlaceOrder 提交采购请求
// 教学要点:
// 1. 单号在插入前生成,唯一索引冲突时重试一次
//    (时间戳+6位随机数冲突概率极低,一次重试足够)
// 2. 引擎只创建PENDING_APPROVAL,不参与后续审批
func (r *purchaseOrderRepository) PlaceOrder(ctx context.Context, req *procurement.ReorderRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	for attempt := 0; attempt < 2; attempt++ {
		model := &PurchaseOrderModel{
			OrderNo:       procurement.GenerateOrderNo(),
			ItemID:        req.ItemID,
			DestinationID: req.DestinationLocationID,
			Quantity:      req.Quantity,
			Priority:      string(req.Priority),
			Reason:        req.Reason,
			TotalShortage: req.TotalShortage,
			Status:        orderStatusPendingApproval,
			CreatedAt:     time.Now(),
			UpdatedAt:     time.Now(),
		}

		err := r.db.WithContext(ctx).Create(model).Error
		if err == nil {
			return model.OrderNo, nil
		}

		// 单号冲突则重试,其他错误直接返回
		if !isDuplicateError(err) {
			return "", apperrors.Wrap(err, "创建采购单失败")
		}
	}

	return "", procurement.ErrOrderPlacement
}

// 采购单状态映射(数据库用tinyint)
const (
	orderStatusPendingApproval = 1
	orderStatusApproved        = 2
	orderStatusRejected        = 3
)
