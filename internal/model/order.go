package model

import (
	"time"

	"gorm.io/gorm"
)

// Order 堂食订单。TotalAmount 由调用方按明细重算后落库，Writer 不做二次计算。
type Order struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CustomerID *uint   `gorm:"index" json:"customer_id,omitempty"`
	TableLabel *string `gorm:"size:16;index" json:"table_label,omitempty"`
	// TotalAmount 总金额，单位分。
	TotalAmount     int64         `gorm:"not null;default:0" json:"total_amount"`
	PaymentStatus   PaymentStatus `gorm:"size:16;not null;default:'Unpaid'" json:"payment_status"`
	OrderStatus     OrderStatus   `gorm:"size:16;not null;default:'Pending'" json:"order_status"`
	CashRegisterID  *uint         `json:"cash_register_id,omitempty"`
	OrderedByUserID *uint         `json:"ordered_by_user_id,omitempty"`

	// Items 为组合关系：随订单整体替换/删除，不单独修补。
	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

func (Order) TableName() string { return "orders" }

// IsOpen reports whether the order still occupies its table:
// unpaid and not yet cancelled.
func (o *Order) IsOpen() bool {
	if o.PaymentStatus != PaymentUnpaid {
		return false
	}
	switch o.OrderStatus {
	case OrderPending, OrderPreparing, OrderServed:
		return true
	default:
		return false
	}
}

// RecalcTotal 按当前明细重算总额。属于调用方契约：任何明细变更后、
// 落库前必须调用。
func (o *Order) RecalcTotal() {
	var sum int64
	for i := range o.Items {
		sum += o.Items[i].Subtotal()
	}
	o.TotalAmount = sum
}
