package rebalance

import (
	"errors"
	"fmt"
	"sort"

	"github.com/xiebiao/medsupply/internal/domain/stock"
)

// ErrAggregation 聚合失败（该物资本周期跳过）
var ErrAggregation = errors.New("库存行数据异常")

// Aggregate 从全量快照构建每个物资的聚合视图
//
// 教学要点：
// 1. 纯函数设计
//   - 无副作用，给定同一快照输出确定
//   - 错误隔离：某个物资的数据异常只跳过该物资，
//     不影响其他物资（返回的skipped记录原因）
//
// 2. 盈余/缺货判定
//   - excess = quantity - minimum_threshold
//   - excess > SurplusFloor 才算盈余（过滤可忽略的小盈余）
//   - quantity <= minimum_threshold 即为缺货
func Aggregate(rows []*stock.LocationStock, p Params) (views []*ItemView, skipped map[uint]error) {
	skipped = make(map[uint]error)

	// 按物资分组
	grouped := make(map[uint][]*stock.LocationStock)
	for _, row := range rows {
		grouped[row.ItemID] = append(grouped[row.ItemID], row)
	}

	for itemID, stocks := range grouped {
		view, err := buildItemView(itemID, stocks, p)
		if err != nil {
			skipped[itemID] = err
			continue
		}
		views = append(views, view)
	}

	// 按物资ID排序，保证周期内处理顺序确定
	sort.Slice(views, func(i, j int) bool {
		return views[i].ItemID < views[j].ItemID
	})

	return views, skipped
}

// buildItemView 构建单个物资的视图
func buildItemView(itemID uint, stocks []*stock.LocationStock, p Params) (*ItemView, error) {
	view := &ItemView{ItemID: itemID}

	// 库位按ID升序
	sorted := make([]*stock.LocationStock, len(stocks))
	copy(sorted, stocks)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LocationID < sorted[j].LocationID
	})

	seen := make(map[uint]bool, len(sorted))
	for _, s := range sorted {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("%w: 物资%d库位%d: %v", ErrAggregation, itemID, s.LocationID, err)
		}

		// 同一(物资, 库位)出现多行说明快照本身有问题
		if seen[s.LocationID] {
			return nil, fmt.Errorf("%w: 物资%d库位%d快照重复", ErrAggregation, itemID, s.LocationID)
		}
		seen[s.LocationID] = true

		view.Stocks = append(view.Stocks, s)
		view.TotalStock += s.Quantity
		view.TotalMinimum += s.MinimumThreshold

		excess := s.Excess()
		switch {
		case excess > p.SurplusFloor:
			available := excess - p.ReserveBuffer
			if available <= 0 {
				// SurplusFloor <= ReserveBuffer的配置下可能出现，视为不可调出
				continue
			}
			view.Surplus = append(view.Surplus, &SurplusSlot{
				Stock:                s,
				AvailableForTransfer: available,
			})
			view.TotalExcess += available

		case s.IsShortage():
			shortfall := s.Shortfall()
			view.Shortage = append(view.Shortage, &ShortageSlot{
				Stock:     s,
				Shortfall: shortfall,
			})
			view.TotalShortage += shortfall
		}
	}

	return view, nil
}
