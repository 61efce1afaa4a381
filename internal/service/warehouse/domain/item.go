// internal/service/warehouse/domain/item.go
package domain

// LedgerItem 是本节点上某个商品库存的权威记录。
// 只允许本节点自己的操作（进货、售出、校正）修改它；
// stockOnHand 在任何时刻都不允许为负，会导致为负的售出在变更前就被拒绝。
type LedgerItem struct {
	ID          int64   `json:"id" gorm:"primaryKey;autoIncrement"`
	NodeID      string  `json:"nodeId" gorm:"size:64;index"`
	ProductName string  `json:"productName" gorm:"size:255;index"`
	Price       float64 `json:"price"`
	StockOnHand int     `json:"stockOnHand"`
}

// TableName 覆盖 GORM 默认的表名。
func (LedgerItem) TableName() string { return "ledger_items" }

// CanSell 判断当前库存是否足够一次售出。
func (i *LedgerItem) CanSell(quantity int) bool {
	return i.StockOnHand >= quantity
}
