package pos

import (
	"context"

	"cafe_pos/internal/model"

	"gorm.io/gorm"
)

// Resolver 推导每张桌的实时状态。状态永不落库：
// Occupied ⟺ 存在引用该桌、且 open（Unpaid × Pending/Preparing/Served）
// 的其他订单。纯读操作，订单任何可能改变 open 集合的写入之后都要重查。
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// ListTables 返回全部登记桌位及其派生状态。
// ignoreOrderID 用于编辑既有订单的场景：把订单自己排除出占用计算，
// 免得它“占用”了自己正坐着的桌。
func (r *Resolver) ListTables(ctx context.Context, ignoreOrderID *uint) ([]model.TableOption, error) {
	var tables []model.Table
	if err := r.db.WithContext(ctx).Order("label").Find(&tables).Error; err != nil {
		return nil, &StorageError{Op: "list tables", Err: err}
	}

	occupied, err := r.occupiedLabels(ctx, ignoreOrderID)
	if err != nil {
		return nil, err
	}

	out := make([]model.TableOption, 0, len(tables))
	for _, t := range tables {
		status := model.TableAvailable
		if occupied[t.Label] {
			status = model.TableOccupied
		}
		// 人工覆盖直接生效，绕过派生逻辑。
		if t.ManualStatus != nil {
			status = *t.ManualStatus
		}
		out = append(out, model.TableOption{
			Label:      t.Label,
			Status:     status,
			Selectable: status == model.TableAvailable,
		})
	}
	return out, nil
}

// occupiedLabels 收集当前被 open 订单占用的桌号集合。
func (r *Resolver) occupiedLabels(ctx context.Context, ignoreOrderID *uint) (map[string]bool, error) {
	q := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("table_label IS NOT NULL").
		Where("payment_status = ?", model.PaymentUnpaid).
		Where("order_status IN ?", model.OpenOrderStatuses())
	if ignoreOrderID != nil {
		q = q.Where("id <> ?", *ignoreOrderID)
	}

	var labels []string
	if err := q.Distinct().Pluck("table_label", &labels).Error; err != nil {
		return nil, &StorageError{Op: "resolve occupancy", Err: err}
	}

	occupied := make(map[string]bool, len(labels))
	for _, l := range labels {
		occupied[l] = true
	}
	return occupied, nil
}

// openOrderExists 是 Writer 在事务内复用的占用检查：
// label 上是否存在 id ≠ ignoreID 的 open 订单。必须与写入同事务执行。
func openOrderExists(tx *gorm.DB, label string, ignoreID uint) (bool, error) {
	var n int64
	q := tx.Model(&model.Order{}).
		Where("table_label = ?", label).
		Where("payment_status = ?", model.PaymentUnpaid).
		Where("order_status IN ?", model.OpenOrderStatuses())
	if ignoreID != 0 {
		q = q.Where("id <> ?", ignoreID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
