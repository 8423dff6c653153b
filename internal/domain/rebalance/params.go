package rebalance

// Params 再平衡规划参数
//
// 教学要点：
// 1. 所有阈值集中定义，由配置层注入（支持环境变量覆盖）
// 2. 默认值的含义
//   - SurplusFloor：盈余下限，低于此值的小盈余不参与调拨（避免频繁小额搬运）
//   - ReserveBuffer：调出保留量，盈余库位至少留2件不外调
//   - SafetyMargin：采购加量，刻意多订以降低补货频率
//   - BufferSurplusFloor：安全缓冲捐赠者的盈余门槛
type Params struct {
	SurplusFloor       int `json:"surplus_floor"`
	ReserveBuffer      int `json:"reserve_buffer"`
	SafetyMargin       int `json:"safety_margin"`
	BufferSurplusFloor int `json:"buffer_surplus_floor"`
}

// DefaultParams 默认规划参数
func DefaultParams() Params {
	return Params{
		SurplusFloor:       5,
		ReserveBuffer:      2,
		SafetyMargin:       20,
		BufferSurplusFloor: 3,
	}
}
