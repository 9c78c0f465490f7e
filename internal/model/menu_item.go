package model

import (
	"time"

	"gorm.io/gorm"
)

// MenuItem 菜单条目：名称、售价。订单只在下单瞬间读取它冻结单价。
type MenuItem struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name      string `gorm:"size:128;not null" json:"name"`
	Price     int64  `gorm:"not null" json:"price"` // 单位：分
	Available bool   `gorm:"not null;default:true" json:"available"`
}

func (MenuItem) TableName() string { return "menu_items" }
