package model

import "gorm.io/gorm"

// openIndexSQL 的状态列表必须与 OpenOrderStatuses 保持一致。
const openIndexSQL = `
CREATE UNIQUE INDEX IF NOT EXISTS uniq_open_order_per_table
ON orders (table_label)
WHERE payment_status = 'Unpaid'
  AND order_status IN ('Pending', 'Preparing', 'Served')
  AND table_label IS NOT NULL
  AND deleted_at IS NULL
`

// Migrate 自动建表，并补一条部分唯一索引兜底
// “同一桌最多一张 open 订单”。检查-再写入在弱隔离级别下可能双写，
// 索引让并发写入者中的后提交者直接失败（sqlite / postgres 均支持）。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&MenuItem{},
		&Table{},
		&Order{},
		&OrderItem{},
		&Receipt{},
	); err != nil {
		return err
	}
	return db.Exec(openIndexSQL).Error
}
