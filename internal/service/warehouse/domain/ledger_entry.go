// internal/service/warehouse/domain/ledger_entry.go
package domain

import "time"

// TransactionType 标识一次台账变更的种类。
type TransactionType string

const (
	TransactionAdded    TransactionType = "ADDED"
	TransactionSold     TransactionType = "SOLD"
	TransactionAdjusted TransactionType = "ADJUSTED"
)

// LedgerEntry 是只追加的审计流水：每次台账变更都会留下一条。
// Quantity 对 ADDED/SOLD 存正数，对 ADJUSTED 存带符号的差值
// (stockAfter - stockBefore)，这样重放时只需对带符号增量求和。
type LedgerEntry struct {
	ID                 int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	NodeID             string          `json:"nodeId" gorm:"size:64;index"`
	ProductID          int64           `json:"productId" gorm:"index"`
	ProductName        string          `json:"productName" gorm:"size:255"`
	TransactionType    TransactionType `json:"transactionType" gorm:"size:16"`
	Quantity           int             `json:"quantity"`
	PriceAtTransaction float64         `json:"priceAtTransaction"`
	StockBefore        int             `json:"stockBefore"`
	StockAfter         int             `json:"stockAfter"`
	CounterpartyID     *string         `json:"counterpartyId,omitempty" gorm:"size:64"`
	TransactionAt      time.Time       `json:"transactionAt" gorm:"index"`
	Notes              string          `json:"notes" gorm:"size:512"`
}

// TableName 覆盖 GORM 默认的表名。
func (LedgerEntry) TableName() string { return "ledger_entries" }

// SignedDelta 返回这条流水对库存的带符号影响。
func (e *LedgerEntry) SignedDelta() int {
	switch e.TransactionType {
	case TransactionAdded:
		return e.Quantity
	case TransactionSold:
		return -e.Quantity
	case TransactionAdjusted:
		return e.Quantity
	}
	return 0
}

// Replay 从 0 开始按时间顺序重放一组流水，返回得到的库存。
// 审计保证：对某个商品重放全部流水必须精确还原当前的 stockOnHand。
func Replay(entries []LedgerEntry) int {
	stock := 0
	for i := range entries {
		stock += entries[i].SignedDelta()
	}
	return stock
}
