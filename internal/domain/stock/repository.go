package stock

import "context"

// Repository 库存仓储接口（领域层定义）
//
// 教学要点：
// 1. 依赖倒置原则（高层定义接口，低层实现）
// 2. 引擎与存储的边界
//   - GetSnapshot：周期开始时一次性读取全量快照，
//     规划阶段只看快照，避免看到"移动中的目标"
//   - ApplyTransfer：唯一的库存变更入口，单事务内完成
//     扣减源+增加目标+写调拨记录（原子单元，不允许半执行）
type Repository interface {
	// GetSnapshot 获取全量库存快照（周期开始时调用一次）
	GetSnapshot(ctx context.Context) ([]*LocationStock, error)

	// GetStock 获取单个(物资, 库位)的最新库存
	GetStock(ctx context.Context, itemID, locationID uint) (*LocationStock, error)

	// ApplyTransfer 原子地执行一条调拨计划
	//
	// 行为约定：
	// 1. 源库位数量不足时返回ErrInsufficientSource，
	//    同时写入一条Status=FAILED的记录（含原因），库存不变
	// 2. 目标库位容量不足时返回ErrCapacityExceeded，处理同上
	// 3. 成功时返回Status=COMPLETED的记录
	ApplyTransfer(ctx context.Context, plan *TransferPlan) (*TransferRecord, error)
}
