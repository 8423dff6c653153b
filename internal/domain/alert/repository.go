package alert

import "context"

// Repository 告警仓储接口
//
// 教学要点：
// 1. Raise按(物资, 库位, 类型)幂等
//   - 已有未解除告警时不新建，返回(已有ID, created=false)
//   - 否则创建并返回(新ID, created=true)
//
// 2. ResolveIfOpen只解除未解除的告警，重复调用无副作用
type Repository interface {
	// Raise 发起告警（幂等）
	Raise(ctx context.Context, a *Alert) (id uint, created bool, err error)

	// ResolveIfOpen 解除指定键上的未解除告警，返回是否确有解除
	ResolveIfOpen(ctx context.Context, itemID, locationID uint, t Type) (bool, error)
}
