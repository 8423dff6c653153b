package rebalance

import (
	"sort"

	"github.com/xiebiao/medsupply/internal/domain/stock"
)

// donorOfferCap 单个捐赠库位每周期最多让渡的数量
// 小步快走：安全缓冲靠高频小额补给，而不是一次性大搬运
const donorOfferCap = 2

// donorKeepBack 捐赠库位自身保留量
const donorKeepBack = 2

// bufferDonor 捐赠库位的工作副本
type bufferDonor struct {
	loc   *stock.LocationStock
	offer int
}

// PlanBufferMoves 安全缓冲再分配
//
// 教学要点：
// 1. 与缺口调拨的区别
//   - 缺口调拨解决"已经缺货"，这里前置解决"将要缺货"
//   - 目标是恰好贴着阈值的库位（最脆弱，下一次领用就缺货）
//
// 2. 算法（尽力而为的启发式，不是最优流计算）
//   - 捐赠者：调拨后盈余 > BufferSurplusFloor，
//     每个最多让渡 min(2, surplus-2)（自留2件缓冲）
//   - 接收者：恰好等于阈值且有容量余地
//   - 1件1件轮询分发，工作副本即时更新，同一件不会重复分配
//
// 3. applied是本周期已规划的缺口调拨
//     在其之上计算工作数量，避免把已承诺调出的库存再次让渡，
//     也避免给已被调拨拉回阈值之上的库位重复补给
func PlanBufferMoves(view *ItemView, applied []*stock.TransferPlan, p Params) []*stock.TransferPlan {
	// 工作数量 = 快照数量 + 已规划调拨的净变化
	working := make(map[uint]int, len(view.Stocks))
	for _, s := range view.Stocks {
		working[s.LocationID] = s.Quantity
	}
	for _, pl := range applied {
		working[pl.SourceLocationID] -= pl.Quantity
		working[pl.DestinationLocationID] += pl.Quantity
	}

	var donors []*bufferDonor
	var recipients []*stock.LocationStock
	for _, s := range view.Stocks {
		surplus := working[s.LocationID] - s.MinimumThreshold
		switch {
		case surplus > p.BufferSurplusFloor:
			offer := surplus - donorKeepBack
			if offer > donorOfferCap {
				offer = donorOfferCap
			}
			if offer > 0 {
				donors = append(donors, &bufferDonor{loc: s, offer: offer})
			}

		case surplus == 0:
			// 恰好贴着阈值：最脆弱的库位
			recipients = append(recipients, s)
		}
	}

	if len(donors) == 0 || len(recipients) == 0 {
		return nil
	}

	// 盈余多的先捐（平手按库位ID升序）；接收者按库位ID轮询
	sort.Slice(donors, func(i, j int) bool {
		si := working[donors[i].loc.LocationID] - donors[i].loc.MinimumThreshold
		sj := working[donors[j].loc.LocationID] - donors[j].loc.MinimumThreshold
		if si != sj {
			return si > sj
		}
		return donors[i].loc.LocationID < donors[j].loc.LocationID
	})
	sort.Slice(recipients, func(i, j int) bool {
		return recipients[i].LocationID < recipients[j].LocationID
	})

	// (源, 目标) → 累计件数，最后合并为计划
	moved := make(map[[2]uint]int)
	next := 0 // 轮询游标
	for _, d := range donors {
		for d.offer > 0 {
			idx := pickRecipient(recipients, working, next)
			if idx < 0 {
				return buildBufferPlans(view.ItemID, donors, recipients, moved)
			}
			target := recipients[idx]

			moved[[2]uint{d.loc.LocationID, target.LocationID}]++
			working[d.loc.LocationID]--
			working[target.LocationID]++
			d.offer--

			// 游标前移，下一件给下一个接收者
			next = idx + 1
		}
	}

	return buildBufferPlans(view.ItemID, donors, recipients, moved)
}

// pickRecipient 从游标处轮询一个仍有容量余地的接收者，返回其下标（找不到返回-1）
func pickRecipient(recipients []*stock.LocationStock, working map[uint]int, start int) int {
	n := len(recipients)
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		r := recipients[idx]
		// 容量为0表示不限
		if r.MaximumCapacity == 0 || working[r.LocationID]+1 <= r.MaximumCapacity {
			return idx
		}
	}
	return -1
}

// buildBufferPlans 把(源, 目标)累计结果合并为调拨计划（确定性顺序）
func buildBufferPlans(itemID uint, donors []*bufferDonor, recipients []*stock.LocationStock, moved map[[2]uint]int) []*stock.TransferPlan {
	var plans []*stock.TransferPlan
	for _, d := range donors {
		for _, r := range recipients {
			if qty := moved[[2]uint{d.loc.LocationID, r.LocationID}]; qty > 0 {
				plans = append(plans, &stock.TransferPlan{
					ItemID:                itemID,
					SourceLocationID:      d.loc.LocationID,
					DestinationLocationID: r.LocationID,
					Quantity:              qty,
					Rationale:             stock.RationalePreventive,
				})
			}
		}
	}
	return plans
}
