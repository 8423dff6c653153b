package rebalance

import (
	"fmt"
	"sort"

	"github.com/xiebiao/medsupply/internal/domain/procurement"
)

// PlanReorders 为调拨覆盖不了的残余缺口生成采购请求
//
// 教学要点：
// 1. 残余缺口是唯一的数量依据
//     residual = shortfall - 本周期调拨获得量
//     residual <= 0 的库位不采购（调拨已解决）
//
// 2. 采购量公式（全工程只用这一个公式）
//     order_qty = max(2 * minimum_threshold, residual + SafetyMargin)
//     刻意多订，降低补货频率
//
// 3. 优先级
//   - CRITICAL：当前数量为0（完全断货）
//   - HIGH：缺口超过阈值的50%
//   - NORMAL：其他
//
// 4. 按(物资, 库位)逐条下单，不跨库位合并
func PlanReorders(view *ItemView, received map[uint]int, p Params) []*procurement.ReorderRequest {
	if len(view.Shortage) == 0 {
		return nil
	}

	// 与规划器同序：缺口大的优先
	shortage := make([]*ShortageSlot, len(view.Shortage))
	copy(shortage, view.Shortage)
	sort.Slice(shortage, func(i, j int) bool {
		if shortage[i].Shortfall != shortage[j].Shortfall {
			return shortage[i].Shortfall > shortage[j].Shortfall
		}
		return shortage[i].Stock.LocationID < shortage[j].Stock.LocationID
	})

	var requests []*procurement.ReorderRequest
	for _, sh := range shortage {
		residual := sh.Shortfall - received[sh.Stock.LocationID]
		if residual <= 0 {
			continue
		}

		quantity := residual + p.SafetyMargin
		if doubled := sh.Stock.MinimumThreshold * 2; doubled > quantity {
			quantity = doubled
		}

		requests = append(requests, &procurement.ReorderRequest{
			ItemID:                view.ItemID,
			DestinationLocationID: sh.Stock.LocationID,
			Quantity:              quantity,
			Priority:              classifyPriority(sh),
			Reason: fmt.Sprintf("库存低于安全阈值: 当前%d, 阈值%d, 调拨后仍缺%d",
				sh.Stock.Quantity, sh.Stock.MinimumThreshold, residual),
			TotalShortage: view.TotalShortage,
		})
	}

	return requests
}

// classifyPriority 按缺货严重程度分级
func classifyPriority(sh *ShortageSlot) procurement.Priority {
	if sh.Stock.Quantity == 0 {
		return procurement.PriorityCritical
	}

	// 缺口 > 阈值的50%（乘2比较，避免整数除法丢精度）
	if sh.Shortfall*2 > sh.Stock.MinimumThreshold {
		return procurement.PriorityHigh
	}

	return procurement.PriorityNormal
}
