package model

import "time"

// Receipt 小票。存在性不变量：订单 Paid ⟺ 有且仅有一张小票；
// AmountPaid 跟随最近一次同步时的订单总额。
type Receipt struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ReceiptNo  string    `gorm:"size:64;uniqueIndex;not null" json:"receipt_no"`
	OrderID    uint      `gorm:"uniqueIndex;not null" json:"order_id"`
	AmountPaid int64     `gorm:"not null" json:"amount_paid"` // 单位分
	IssuedAt   time.Time `gorm:"not null" json:"issued_at"`
}

func (Receipt) TableName() string { return "receipts" }
