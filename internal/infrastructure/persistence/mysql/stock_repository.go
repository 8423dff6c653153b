package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/medsupply/internal/domain/stock"
	apperrors "github.com/xiebiao/medsupply/pkg/errors"
)

// stockRepository 库存仓储实现(MySQL)
// 设计说明:
// 1. 实现domain/stock/repository.go定义的接口
// 2. 负责domain实体与GORM模型之间的转换
// 3. ApplyTransfer是唯一的库存变更入口,单事务内完成
//    锁定两行+扣减源+增加目标+写调拨记录
type stockRepository struct {
	db *gorm.DB
}

// NewStockRepository 创建库存仓储
func NewStockRepository(db *gorm.DB) stock.Repository {
	return &stockRepository{db: db}
}

// GetSnapshot 获取全量库存快照
// 教学要点:
// 周期开始时一次性读取,规划阶段只看快照,
// 不加锁(快照允许轻微陈旧,执行阶段的事务会重新校验)
func (r *stockRepository) GetSnapshot(ctx context.Context) ([]*stock.LocationStock, error) {
	var models []LocationStockModel
	err := r.db.WithContext(ctx).
		Order("item_id ASC, location_id ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "读取库存快照失败")
	}

	rows := make([]*stock.LocationStock, len(models))
	for i := range models {
		rows[i] = toStockEntity(&models[i])
	}
	return rows, nil
}

// GetStock 获取单个(物资, 库位)的最新库存
func (r *stockRepository) GetStock(ctx context.Context, itemID, locationID uint) (*stock.LocationStock, error) {
	var model LocationStockModel
	err := r.db.WithContext(ctx).
		Where("item_id = ? AND location_id = ?", itemID, locationID).
		First(&model).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, stock.ErrStockNotFound
		}
		return nil, apperrors.Wrap(err, "查询库存失败")
	}

	return toStockEntity(&model), nil
}

// ApplyTransfer 原子地执行一条调拨计划
//
// 教学要点:
// 1. SELECT FOR UPDATE锁定两行,按location_id升序加锁防止死锁
//    (两个并发调拨A→B和B→A若各自先锁自己的源,会互相等待)
// 2. 校验在锁内进行:规划时的快照可能已过期,
//    执行时必须以锁定后的最新数量为准
// 3. 业务性失败(源不足/容量不足)回滚库存变更,
//    但仍在事务外落一条FAILED记录供审计
func (r *stockRepository) ApplyTransfer(ctx context.Context, plan *stock.TransferPlan) (*stock.TransferRecord, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	var record *stock.TransferRecord
	var bizErr error // 业务性失败(需要落FAILED记录)

	txErr := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 按location_id升序锁定两行
		lockOrder := []uint{plan.SourceLocationID, plan.DestinationLocationID}
		if lockOrder[0] > lockOrder[1] {
			lockOrder[0], lockOrder[1] = lockOrder[1], lockOrder[0]
		}

		locked := make(map[uint]*LocationStockModel, 2)
		for _, locID := range lockOrder {
			var m LocationStockModel
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("item_id = ? AND location_id = ?", plan.ItemID, locID).
				First(&m).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return stock.ErrStockNotFound
				}
				return apperrors.Wrap(err, "锁定库存失败")
			}
			locked[locID] = &m
		}

		src := locked[plan.SourceLocationID]
		dst := locked[plan.DestinationLocationID]

		// 2. 锁内校验
		if src.Quantity < plan.Quantity {
			bizErr = stock.ErrInsufficientSource
			return bizErr // 回滚(本事务内无变更,仅为统一流程)
		}
		if dst.MaximumCapacity > 0 && dst.Quantity+plan.Quantity > dst.MaximumCapacity {
			bizErr = stock.ErrCapacityExceeded
			return bizErr
		}

		// 3. 扣减源+增加目标
		if err := tx.Model(&LocationStockModel{}).
			Where("id = ?", src.ID).
			Update("quantity", gorm.Expr("quantity - ?", plan.Quantity)).Error; err != nil {
			return apperrors.Wrap(err, "扣减源库位失败")
		}
		if err := tx.Model(&LocationStockModel{}).
			Where("id = ?", dst.ID).
			Update("quantity", gorm.Expr("quantity + ?", plan.Quantity)).Error; err != nil {
			return apperrors.Wrap(err, "增加目标库位失败")
		}

		// 4. 写COMPLETED记录(与库存变更同一事务)
		m := newTransferModel(plan, stock.TransferStatusCompleted, "")
		if err := tx.Create(m).Error; err != nil {
			return apperrors.Wrap(err, "写入调拨记录失败")
		}

		record = toTransferRecord(m)
		return nil
	})

	if txErr == nil {
		return record, nil
	}

	// 业务性失败:库存已回滚,单独落一条FAILED记录
	if bizErr != nil {
		m := newTransferModel(plan, stock.TransferStatusFailed, bizErr.Error())
		if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
			// 记录写入失败不掩盖原始错误
			return nil, apperrors.Wrapf(bizErr, "调拨失败且流水写入失败: %v", err)
		}
		return toTransferRecord(m), bizErr
	}

	return nil, txErr
}

// =========================================
// 辅助函数:模型转换
// =========================================

// 调拨记录状态映射(数据库用tinyint)
const (
	transferStatusPending   = 1
	transferStatusCompleted = 2
	transferStatusFailed    = 3
)

func transferStatusToInt(s stock.TransferStatus) int {
	switch s {
	case stock.TransferStatusCompleted:
		return transferStatusCompleted
	case stock.TransferStatusFailed:
		return transferStatusFailed
	default:
		return transferStatusPending
	}
}

func transferStatusFromInt(v int) stock.TransferStatus {
	switch v {
	case transferStatusCompleted:
		return stock.TransferStatusCompleted
	case transferStatusFailed:
		return stock.TransferStatusFailed
	default:
		return stock.TransferStatusPending
	}
}

// toStockEntity GORM模型 → 领域实体
func toStockEntity(m *LocationStockModel) *stock.LocationStock {
	return &stock.LocationStock{
		ItemID:           m.ItemID,
		LocationID:       m.LocationID,
		Quantity:         m.Quantity,
		MinimumThreshold: m.MinimumThreshold,
		MaximumCapacity:  m.MaximumCapacity,
		LastUpdated:      m.UpdatedAt,
	}
}

// newTransferModel 由计划生成调拨记录模型
func newTransferModel(plan *stock.TransferPlan, status stock.TransferStatus, failReason string) *TransferRecordModel {
	now := time.Now()
	return &TransferRecordModel{
		ItemID:        plan.ItemID,
		SourceID:      plan.SourceLocationID,
		DestinationID: plan.DestinationLocationID,
		Quantity:      plan.Quantity,
		Rationale:     string(plan.Rationale),
		Status:        transferStatusToInt(status),
		FailReason:    failReason,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// toTransferRecord GORM模型 → 领域记录
func toTransferRecord(m *TransferRecordModel) *stock.TransferRecord {
	return &stock.TransferRecord{
		ID:                    m.ID,
		ItemID:                m.ItemID,
		SourceLocationID:      m.SourceID,
		DestinationLocationID: m.DestinationID,
		Quantity:              m.Quantity,
		Rationale:             stock.Rationale(m.Rationale),
		Status:                transferStatusFromInt(m.Status),
		FailReason:            m.FailReason,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}
