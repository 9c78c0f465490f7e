package model

import "time"

// TableStatus 桌位状态，永远是订单行的派生值，不落库——
// 唯一例外是 ManualStatus 人工覆盖。
type TableStatus string

const (
	TableAvailable TableStatus = "Available"
	TableOccupied  TableStatus = "Occupied"
)

// Table 物理桌位登记。状态不存列：Occupied 与否由 open 订单实时推导。
type Table struct {
	Label     string    `gorm:"primarykey;size:16" json:"label"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// ManualStatus 运维逃生口：非空时绕过派生逻辑直接生效。
	// 仅供人工恢复使用，自动流程一律不写。
	ManualStatus *TableStatus `gorm:"size:16" json:"manual_status,omitempty"`
}

func (Table) TableName() string { return "tables" }

// TableOption 是查桌接口的返回行。
type TableOption struct {
	Label      string      `json:"label"`
	Status     TableStatus `json:"status"`
	Selectable bool        `json:"selectable"`
}
