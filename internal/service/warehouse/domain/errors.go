// internal/service/warehouse/domain/errors.go
package domain

import "errors"

var (
	// ErrInsufficientStock 表示一次售出会把库存打到负数，变更被拒绝。
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrItemNotFound 表示本节点没有这个商品的台账。
	ErrItemNotFound = errors.New("ledger item not found")
)
