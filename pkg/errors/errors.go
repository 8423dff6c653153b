package errors

import (
	"errors"
	"fmt"
)

// AppError 自定义应用错误
// 设计说明：
// 1. Code用于客户端判断错误类型（不要直接暴露HTTP状态码）
// 2. Message是用户友好的提示信息
// 3. Err是内部错误，仅记录到日志，不返回给客户端（防止泄露敏感信息）
type AppError struct {
	Code    int    `json:"code"`    // 业务错误码
	Message string `json:"message"` // 用户友好的错误提示
	Err     error  `json:"-"`       // 内部错误（不序列化）
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新的AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装系统错误（如数据库错误、网络错误）
// 用途：将底层错误转换为业务错误，隐藏实现细节
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// WrapCode 以指定错误码包装底层错误
func WrapCode(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// =========================================
// 错误码定义
// =========================================
// 规范：
// - 4xxxx: 客户端错误（参数错误、业务规则校验失败）
// - 5xxxx: 服务端错误（数据库异常、外部服务调用失败）

const (
	// 系统级错误码（50000-50099）
	ErrCodeInternal      = 50000 // 内部错误
	ErrCodeDatabaseError = 50001 // 数据库错误
	ErrCodeRedisError    = 50002 // Redis错误
	ErrCodeMQError       = 50003 // 消息队列错误

	// 引擎执行错误（50100-50199）
	ErrCodeCycleRunning     = 50100 // 周期正在执行
	ErrCodeCycleTimeout     = 50101 // 周期超时
	ErrCodeSnapshotFailed   = 50102 // 快照读取失败
	ErrCodeTransferFailed   = 50103 // 调拨执行失败
	ErrCodeOrderGateway     = 50104 // 采购网关调用失败
	ErrCodeGatewayProtected = 50105 // 采购网关熔断中

	// 资源错误（40400-40499）
	ErrCodeNotFound         = 40400 // 资源不存在(通用)
	ErrCodeStockNotFound    = 40401 // 库存记录不存在
	ErrCodeLocationNotFound = 40402 // 库位不存在

	// 业务规则错误（40000-40099）
	ErrCodeBusinessError     = 40000 // 业务错误(通用)
	ErrCodeInsufficientStock = 40001 // 源库位库存不足
	ErrCodeCapacityExceeded  = 40002 // 超出目标库位容量
	ErrCodeInvalidSnapshot   = 40003 // 快照数据异常
	ErrCodeDuplicateOrder    = 40004 // 重复采购请求（去重窗口内）
	ErrCodeDuplicateEntry    = 40009 // 重复记录(通用)

	// 参数错误（40900-40999）
	ErrCodeInvalidParams = 40900 // 参数错误
	ErrCodeBindError     = 40901 // 参数绑定失败
)

// =========================================
// 预定义错误（避免每次都New）
// =========================================

var (
	// 系统错误
	ErrInternal      = New(ErrCodeInternal, "系统内部错误")
	ErrDatabaseError = New(ErrCodeDatabaseError, "数据库错误")
	ErrRedisError    = New(ErrCodeRedisError, "缓存服务错误")
	ErrMQError       = New(ErrCodeMQError, "消息队列错误")

	// 引擎执行
	ErrCycleRunning     = New(ErrCodeCycleRunning, "调度周期正在执行中")
	ErrCycleTimeout     = New(ErrCodeCycleTimeout, "调度周期执行超时")
	ErrSnapshotFailed   = New(ErrCodeSnapshotFailed, "库存快照读取失败")
	ErrTransferFailed   = New(ErrCodeTransferFailed, "调拨执行失败")
	ErrOrderGateway     = New(ErrCodeOrderGateway, "采购网关调用失败")
	ErrGatewayProtected = New(ErrCodeGatewayProtected, "采购网关熔断中，请稍后重试")

	// 资源不存在
	ErrStockNotFound    = New(ErrCodeStockNotFound, "库存记录不存在")
	ErrLocationNotFound = New(ErrCodeLocationNotFound, "库位不存在")

	// 业务规则
	ErrInsufficientStock = New(ErrCodeInsufficientStock, "源库位可用库存不足")
	ErrCapacityExceeded  = New(ErrCodeCapacityExceeded, "超出目标库位最大容量")
	ErrInvalidSnapshot   = New(ErrCodeInvalidSnapshot, "库存快照数据异常")
	ErrDuplicateOrder    = New(ErrCodeDuplicateOrder, "去重窗口内已存在相同采购请求")

	// 参数错误
	ErrInvalidParams = New(ErrCodeInvalidParams, "参数错误")
	ErrBindError     = New(ErrCodeBindError, "参数格式错误")
)

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError（如果不是AppError则包装成Internal错误）
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "系统内部错误")
}
