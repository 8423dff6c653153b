package stock

import "errors"

// 领域错误定义
//
// 教学要点：
// 1. 错误分类对应引擎的错误分流策略（见调度器）
//    - 参数错误：该行数据跳过本周期（聚合失败）
//    - 业务错误：单条计划中止，下个周期按新快照重新规划
//    - 临时错误：整个物资管线下个周期重试
var (
	// 参数错误
	ErrInvalidItemID     = errors.New("无效的物资ID")
	ErrInvalidLocationID = errors.New("无效的库位ID")
	ErrInvalidQuantity   = errors.New("无效的调拨数量")
	ErrSameLocation      = errors.New("源库位和目标库位不能相同")
	ErrNegativeStock     = errors.New("库存不能为负数")
	ErrInvalidCapacity   = errors.New("最大容量不能小于安全阈值")

	// 业务错误
	ErrStockNotFound = errors.New("库存记录不存在")

	// ErrInsufficientSource 源库位库存不足
	// 教学要点：规划与执行之间库存被消耗时触发（检测后中止，而非盲目扣减）
	ErrInsufficientSource = errors.New("源库位库存不足")

	// ErrCapacityExceeded 超出目标库位容量
	ErrCapacityExceeded = errors.New("超出库位最大容量")
)
