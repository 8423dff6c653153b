package stock

import "time"

// LocationStock 库位库存实体（领域模型）
//
// 教学要点：
// 1. 核心字段设计
//   - Quantity：当前在库数量
//   - MinimumThreshold：最低安全阈值（低于或等于即缺货）
//   - MaximumCapacity：库位最大容量（收货上限）
//
// 2. 为什么以(ItemID, LocationID)为联合主键？
//     同一种耗材（如N95口罩）会分布在多个科室/仓库，
//     调拨引擎的决策单元就是"某物资在某库位"这一行
//
// 3. 不变式（由执行层保证）
//   - Quantity永远不为负
//   - 任何变更后 Quantity <= MaximumCapacity
type LocationStock struct {
	// 物资ID
	ItemID uint `json:"item_id"`

	// 库位ID（科室/仓库）
	LocationID uint `json:"location_id"`

	// 当前数量
	Quantity int `json:"quantity"`

	// 最低安全阈值
	// 教学要点：Quantity <= MinimumThreshold 即视为缺货，触发调拨或采购
	MinimumThreshold int `json:"minimum_threshold"`

	// 最大容量（0表示不限）
	// 教学要点：调入前必须检查容量，防止库位爆仓
	MaximumCapacity int `json:"maximum_capacity"`

	// 最后变更时间
	LastUpdated time.Time `json:"last_updated"`
}

// Validate 验证库存行
func (s *LocationStock) Validate() error {
	if s.ItemID == 0 {
		return ErrInvalidItemID
	}

	if s.LocationID == 0 {
		return ErrInvalidLocationID
	}

	if s.Quantity < 0 {
		return ErrNegativeStock
	}

	// MaximumCapacity为0表示不限容量
	if s.MaximumCapacity > 0 {
		if s.MaximumCapacity < s.MinimumThreshold {
			return ErrInvalidCapacity
		}

		if s.Quantity > s.MaximumCapacity {
			return ErrCapacityExceeded
		}
	}

	return nil
}

// Excess 超出安全阈值的数量（可能为负）
func (s *LocationStock) Excess() int {
	return s.Quantity - s.MinimumThreshold
}

// IsShortage 判断是否缺货（等于阈值也算，最脆弱状态）
func (s *LocationStock) IsShortage() bool {
	return s.Quantity <= s.MinimumThreshold
}

// Shortfall 缺口数量（非缺货时返回0）
func (s *LocationStock) Shortfall() int {
	if !s.IsShortage() {
		return 0
	}
	return s.MinimumThreshold - s.Quantity
}

// Headroom 剩余容量（还能调入多少）
func (s *LocationStock) Headroom() int {
	return s.MaximumCapacity - s.Quantity
}

// CanReceive 判断是否可以调入指定数量
func (s *LocationStock) CanReceive(quantity int) bool {
	return quantity > 0 && s.Quantity+quantity <= s.MaximumCapacity
}

// CanProvide 判断是否可以调出指定数量
// 教学要点：调出前必须在锁定后检查，否则并发扣减会导致负库存
func (s *LocationStock) CanProvide(quantity int) bool {
	return quantity > 0 && s.Quantity >= quantity
}

// Key 返回(物资, 库位)复合键，用于去重窗口、告警等场景
func (s *LocationStock) Key() Key {
	return Key{ItemID: s.ItemID, LocationID: s.LocationID}
}

// Key (物资, 库位)复合键
type Key struct {
	ItemID     uint
	LocationID uint
}
