// internal/service/retailer/domain/errors.go
package domain

import "errors"

var (
	// ErrProductNotInInventory 表示本地库存里没有这个商品。
	ErrProductNotInInventory = errors.New("product not in inventory")
	// ErrInsufficientStock 表示本地存货不够这次销售。
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrTrackingNotFound 表示没有这笔采购订单的跟踪记录。
	ErrTrackingNotFound = errors.New("order tracking not found")
)
