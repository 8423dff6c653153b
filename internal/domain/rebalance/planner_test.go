package rebalance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/medsupply/internal/domain/stock"
)

// 教学说明：调拨规划器单元测试
//
// 测试场景覆盖：
// 1. 单源单目标（场景A）
// 2. 多源抽取（场景C）
// 3. 源/目标上限保证
// 4. 部分覆盖（盈余耗尽）
// 5. 确定性

// mustView 测试辅助：聚合单个物资并断言没有跳过
func mustView(t *testing.T, rows []*stock.LocationStock, p Params) *ItemView {
	t.Helper()
	views, skipped := Aggregate(rows, p)
	require.Empty(t, skipped)
	require.Len(t, views, 1)
	return views[0]
}

func TestPlanTransfers(t *testing.T) {
	params := DefaultParams()

	t.Run("场景A单笔调拨解决缺口", func(t *testing.T) {
		// A: 5/20 缺口15；B: 60/20 可调出38
		view := mustView(t, []*stock.LocationStock{
			newStock(1, 1, 5, 20, 100),
			newStock(1, 2, 60, 20, 100),
		}, params)

		plans := PlanTransfers(view, params)
		require.Len(t, plans, 1)

		p := plans[0]
		assert.Equal(t, uint(2), p.SourceLocationID)
		assert.Equal(t, uint(1), p.DestinationLocationID)
		assert.Equal(t, 15, p.Quantity, "调拨量=缺口，且不超过可调出量38")
		assert.LessOrEqual(t, p.Quantity, 38)
		assert.Equal(t, stock.RationaleEmergency, p.Rationale)

		// 调拨解决后不应再采购
		reorders := PlanReorders(view, ReceivedByDestination(plans), params)
		assert.Empty(t, reorders, "total_excess >= total_shortage时无采购请求")

		t.Logf("✓ 场景A: %d→%d 调拨%d件", p.SourceLocationID, p.DestinationLocationID, p.Quantity)
	})

	t.Run("场景C多源抽取", func(t *testing.T) {
		// 库位1深度缺货（缺口40），库位2-5轻度盈余
		rows := []*stock.LocationStock{
			newStock(9, 1, 10, 50, 200), // 缺口40
			newStock(9, 2, 30, 15, 100), // 可调出13
			newStock(9, 3, 28, 15, 100), // 可调出11
			newStock(9, 4, 26, 15, 100), // 可调出9
			newStock(9, 5, 24, 15, 100), // 可调出7
		}
		view := mustView(t, rows, params)
		require.Len(t, view.Surplus, 4)

		plans := PlanTransfers(view, params)
		require.NotEmpty(t, plans)

		// 按源统计，验证每个源不超过其原始可调出量
		caps := map[uint]int{2: 13, 3: 11, 4: 9, 5: 7}
		drawn := make(map[uint]int)
		total := 0
		for _, p := range plans {
			assert.Equal(t, uint(1), p.DestinationLocationID)
			drawn[p.SourceLocationID] += p.Quantity
			total += p.Quantity
		}
		for src, qty := range drawn {
			assert.LessOrEqual(t, qty, caps[src], "源%d超出可调出上限", src)
		}

		// 可调出总量40 == 缺口40，恰好全覆盖
		assert.Equal(t, 40, total)
		assert.GreaterOrEqual(t, len(plans), 4, "需要从多个源抽取")

		t.Logf("✓ 场景C: %d笔计划共%d件, 按源分布%v", len(plans), total, drawn)
	})

	t.Run("部分覆盖时盈余耗尽为止", func(t *testing.T) {
		// 缺口30，可调出仅8
		view := mustView(t, []*stock.LocationStock{
			newStock(8, 1, 0, 30, 100),
			newStock(8, 2, 20, 10, 100), // 可调出8
		}, params)
		assert.False(t, view.CanSolveInternally())

		plans := PlanTransfers(view, params)
		require.Len(t, plans, 1)
		assert.Equal(t, 8, plans[0].Quantity, "盈余全部用尽")

		received := ReceivedByDestination(plans)
		assert.Equal(t, 8, received[1])
	})

	t.Run("同一轮内后续缺口看到扣减后的余量", func(t *testing.T) {
		// 两个缺口共用一个盈余源
		view := mustView(t, []*stock.LocationStock{
			newStock(10, 1, 2, 10, 50),  // 缺口8
			newStock(10, 2, 5, 10, 50),  // 缺口5
			newStock(10, 3, 30, 10, 50), // 可调出18
		}, params)

		plans := PlanTransfers(view, params)
		require.Len(t, plans, 2)

		// 缺口大的先分：库位1先拿8，库位2再拿5
		assert.Equal(t, uint(1), plans[0].DestinationLocationID)
		assert.Equal(t, 8, plans[0].Quantity)
		assert.Equal(t, uint(2), plans[1].DestinationLocationID)
		assert.Equal(t, 5, plans[1].Quantity)

		var fromSource int
		for _, p := range plans {
			require.Equal(t, uint(3), p.SourceLocationID)
			fromSource += p.Quantity
		}
		assert.LessOrEqual(t, fromSource, 18, "源库位累计不超过原始可调出量")
	})

	t.Run("无盈余或无缺口时不产生计划", func(t *testing.T) {
		noSurplus := mustView(t, []*stock.LocationStock{
			newStock(11, 1, 0, 10, 50),
			newStock(11, 2, 8, 10, 50),
		}, params)
		assert.Empty(t, PlanTransfers(noSurplus, params))

		noShortage := mustView(t, []*stock.LocationStock{
			newStock(12, 1, 40, 10, 50),
			newStock(12, 2, 30, 10, 50),
		}, params)
		assert.Empty(t, PlanTransfers(noShortage, params))
	})

	t.Run("规划确定且可重入", func(t *testing.T) {
		view := mustView(t, []*stock.LocationStock{
			newStock(13, 1, 1, 20, 100),
			newStock(13, 2, 3, 20, 100),
			newStock(13, 3, 50, 20, 100),
			newStock(13, 4, 50, 20, 100), // 与库位3可调出量相同，按ID升序破平
		}, params)

		first := PlanTransfers(view, params)
		second := PlanTransfers(view, params)

		require.Equal(t, len(first), len(second))
		for i := range first {
			assert.Equal(t, *first[i], *second[i], "第%d笔计划不一致", i)
		}

		// 平手时库位3先被抽取
		require.NotEmpty(t, first)
		assert.Equal(t, uint(3), first[0].SourceLocationID)
	})
}
