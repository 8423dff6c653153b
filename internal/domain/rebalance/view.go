package rebalance

import "github.com/xiebiao/medsupply/internal/domain/stock"

// SurplusSlot 盈余库位（快照的工作副本）
//
// AvailableForTransfer在规划过程中被逐步扣减，
// 保证同一轮规划内后续缺口看到的是已分配后的余量
type SurplusSlot struct {
	Stock *stock.LocationStock

	// 可调出数量 = excess - ReserveBuffer
	AvailableForTransfer int
}

// ShortageSlot 缺货库位
type ShortageSlot struct {
	Stock *stock.LocationStock

	// 缺口 = minimum_threshold - quantity
	Shortfall int
}

// ItemView 单个物资的全网聚合视图（派生数据，每周期重建，不持久化）
//
// 教学要点：
// 1. 生命周期
//   - 周期开始时从快照构建
//   - 规划阶段只读（规划器操作自己的工作副本）
//   - 周期结束即丢弃
//
// 2. 既不盈余也不缺货的库位
//     不进入任何一个列表，但计入TotalStock/TotalMinimum
type ItemView struct {
	ItemID uint

	// 快照行，按LocationID升序（保证确定性）
	Stocks []*stock.LocationStock

	TotalStock   int
	TotalMinimum int

	Surplus  []*SurplusSlot
	Shortage []*ShortageSlot

	// 全网可调出总量（AvailableForTransfer之和）
	TotalExcess int

	// 全网缺口总量（Shortfall之和）
	TotalShortage int
}

// CanSolveInternally 判断缺口是否可以全部通过院内调拨解决
func (v *ItemView) CanSolveInternally() bool {
	return v.TotalExcess >= v.TotalShortage
}

// FindStock 按库位ID查找快照行（不存在返回nil）
func (v *ItemView) FindStock(locationID uint) *stock.LocationStock {
	for _, s := range v.Stocks {
		if s.LocationID == locationID {
			return s
		}
	}
	return nil
}
