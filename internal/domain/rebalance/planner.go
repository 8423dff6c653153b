package rebalance

import (
	"sort"

	"github.com/xiebiao/medsupply/internal/domain/stock"
)

// PlanTransfers 为单个物资规划缺口调拨
//
// 算法（贪心，确定性）：
// 1. 盈余库位按可调出量降序（平手按库位ID升序）
// 2. 缺货库位按缺口降序（平手按库位ID升序）
// 3. 每个缺口从盈余列表头部反复抽取：
//    move = min(剩余缺口, 该盈余库位余量)
//    在工作副本上同步扣减，保证后续缺口看到的是已分配后的余量
// 4. 余量为0的盈余库位跳过但不移出列表（避免重排）
//
// 保证：
//   - 每个源库位的计划总量不超过其原始可调出量
//   - 每个目标库位的计划总量不超过其缺口
//
// 部分覆盖策略（total_excess < total_shortage时）：
// 同一算法照常运行，盈余耗尽为止；残余缺口交给采购决策器
func PlanTransfers(view *ItemView, p Params) []*stock.TransferPlan {
	if len(view.Surplus) == 0 || len(view.Shortage) == 0 {
		return nil
	}

	// 工作副本：不触碰view本身，保证规划可重入
	surplus := make([]*SurplusSlot, len(view.Surplus))
	for i, s := range view.Surplus {
		cp := *s
		surplus[i] = &cp
	}
	sort.Slice(surplus, func(i, j int) bool {
		if surplus[i].AvailableForTransfer != surplus[j].AvailableForTransfer {
			return surplus[i].AvailableForTransfer > surplus[j].AvailableForTransfer
		}
		return surplus[i].Stock.LocationID < surplus[j].Stock.LocationID
	})

	shortage := make([]*ShortageSlot, len(view.Shortage))
	copy(shortage, view.Shortage)
	sort.Slice(shortage, func(i, j int) bool {
		if shortage[i].Shortfall != shortage[j].Shortfall {
			return shortage[i].Shortfall > shortage[j].Shortfall
		}
		return shortage[i].Stock.LocationID < shortage[j].Stock.LocationID
	})

	var plans []*stock.TransferPlan
	for _, sh := range shortage {
		remaining := sh.Shortfall

		for _, sp := range surplus {
			if remaining == 0 {
				break
			}
			if sp.AvailableForTransfer == 0 {
				continue // 已抽干，跳过不重排
			}

			move := remaining
			if sp.AvailableForTransfer < move {
				move = sp.AvailableForTransfer
			}

			plans = append(plans, &stock.TransferPlan{
				ItemID:                view.ItemID,
				SourceLocationID:      sp.Stock.LocationID,
				DestinationLocationID: sh.Stock.LocationID,
				Quantity:              move,
				Rationale:             stock.RationaleEmergency,
			})

			sp.AvailableForTransfer -= move
			remaining -= move
		}
	}

	return plans
}

// ReceivedByDestination 统计每个目标库位通过调拨获得的数量
// 教学要点：这是采购决策器计算"残余缺口"的唯一依据，
// 防止同一缺口既被调拨覆盖又被全额采购（重复补给）
func ReceivedByDestination(plans []*stock.TransferPlan) map[uint]int {
	received := make(map[uint]int, len(plans))
	for _, p := range plans {
		received[p.DestinationLocationID] += p.Quantity
	}
	return received
}
