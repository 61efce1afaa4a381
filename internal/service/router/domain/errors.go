// internal/service/router/domain/errors.go
package domain

import "errors"

var (
	// ErrSagaNotFound 表示按 orderId 找不到 Saga（通常是重投引用了未知订单）。
	ErrSagaNotFound = errors.New("order saga not found")
	// ErrInvalidTransition 表示一次违反前向流转规则的状态变更。
	ErrInvalidTransition = errors.New("invalid saga state transition")
	// ErrInsufficientStock 表示节点明确报告库存不足。
	ErrInsufficientStock = errors.New("node reported insufficient stock")
	// ErrNodeUnavailable 表示对节点的同步调用在传输层失败（含超时）。
	ErrNodeUnavailable = errors.New("node unavailable")
)
