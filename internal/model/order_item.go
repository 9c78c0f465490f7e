package model

import "time"

// OrderItem 订单明细。UnitPrice 在下单时从菜单冻结（单位分），
// 之后菜单调价不影响已存在的明细。
type OrderItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OrderID   uint  `gorm:"not null;index" json:"order_id"`
	ProductID uint  `gorm:"not null;index" json:"product_id"`
	Quantity  int   `gorm:"not null;default:1" json:"quantity"`
	UnitPrice int64 `gorm:"not null" json:"unit_price"`
}

func (OrderItem) TableName() string { return "order_items" }

// Subtotal 行小计 = 单价 × 数量。
func (i *OrderItem) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}
