package procurement

import "context"

// Gateway 采购下单接口（外部协作方）
//
// 教学要点：
// 1. 引擎不关心采购单的后续生命周期，
//    只负责把请求交给采购子系统并记录返回的单号
// 2. 调用方（执行层）用熔断器包裹此接口，
//    供应商侧持续故障时快速失败，下个周期重试
type Gateway interface {
	// PlaceOrder 提交采购请求，返回采购单号
	PlaceOrder(ctx context.Context, req *ReorderRequest) (orderNo string, err error)
}
