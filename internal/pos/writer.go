package pos

import (
	"context"
	"errors"

	"cafe_pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentHook 在一次可能改变支付状态的写入 **提交之后** 被调用。
// 钩子失败不回滚订单（订单已提交），由挂接方自行记录并择机补偿。
type PaymentHook func(ctx context.Context, orderID uint)

// Writer 是订单（含明细）唯一的写入口，也是
// “一桌至多一张 open 订单”不变量的唯一执行者。
//
// 防并发分三层：事务内占用检查（基本路径）、orders 上的部分唯一索引
// （权威兜底，见 model.Migrate）、可选的 Redis 桌位锁（收窄窗口）。
type Writer struct {
	db     *gorm.DB
	locker TableLocker // 可为 nil
	hooks  []PaymentHook
}

func NewWriter(db *gorm.DB, locker TableLocker) *Writer {
	return &Writer{db: db, locker: locker}
}

// OnPaymentChange 注册提交后钩子（典型挂接：小票同步器）。
func (w *Writer) OnPaymentChange(h PaymentHook) {
	w.hooks = append(w.hooks, h)
}

// Create 建单：校验桌号 → 事务内查占用 → 插入订单头和明细。
// 桌位被占返回 TableConflictError，且不留任何半成品行。
func (w *Writer) Create(ctx context.Context, order *model.Order) (uint, error) {
	label, err := requireTable(order)
	if err != nil {
		return 0, err
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = model.PaymentUnpaid
	}
	if order.OrderStatus == "" {
		order.OrderStatus = model.OrderPending
	}

	unlock, err := w.lockTable(ctx, label)
	if err != nil {
		return 0, err
	}
	defer unlock()

	err = w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		occupied, err := openOrderExists(tx, label, 0)
		if err != nil {
			return &StorageError{Op: "check occupancy", Err: err}
		}
		if occupied {
			return &TableConflictError{Table: label}
		}
		// gorm 关联写入：订单头和明细同事务插入。
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return 0, w.classify(err, label, "create order")
	}

	w.fireHooks(ctx, order.ID)
	return order.ID, nil
}

// Update 整单更新：占用检查排除自身（换桌/保桌都合法），
// 明细采用整体替换——先删光旧行再插入新集合，不做差量。
// 全部动作在一个事务内，要么都成要么都不成。
func (w *Writer) Update(ctx context.Context, order *model.Order) error {
	label, err := requireTable(order)
	if err != nil {
		return err
	}

	var prev model.Order
	if err := w.db.WithContext(ctx).First(&prev, order.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "order", ID: order.ID}
		}
		return &StorageError{Op: "load order", Err: err}
	}

	unlock, err := w.lockTable(ctx, label)
	if err != nil {
		return err
	}
	defer unlock()

	err = w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		occupied, err := openOrderExists(tx, label, order.ID)
		if err != nil {
			return &StorageError{Op: "check occupancy", Err: err}
		}
		if occupied {
			return &TableConflictError{Table: label}
		}

		if err := tx.Where("order_id = ?", order.ID).Delete(&model.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Order{}).Where("id = ?", order.ID).Updates(map[string]any{
			"customer_id":        order.CustomerID,
			"table_label":        order.TableLabel,
			"total_amount":       order.TotalAmount,
			"payment_status":     order.PaymentStatus,
			"order_status":       order.OrderStatus,
			"cash_register_id":   order.CashRegisterID,
			"ordered_by_user_id": order.OrderedByUserID,
		}).Error; err != nil {
			return err
		}
		if len(order.Items) > 0 {
			for i := range order.Items {
				order.Items[i].ID = 0
				order.Items[i].OrderID = order.ID
			}
			if err := tx.Create(&order.Items).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return w.classify(err, label, "update order")
	}

	if prev.PaymentStatus != order.PaymentStatus {
		w.fireHooks(ctx, order.ID)
	}
	return nil
}

// Delete 删单：同事务先删明细再删订单头。
func (w *Writer) Delete(ctx context.Context, orderID uint) error {
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderID).Delete(&model.OrderItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Order{}, orderID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &NotFoundError{Entity: "order", ID: orderID}
		}
		return nil
	})
	if err != nil {
		return w.classify(err, "", "delete order")
	}

	// 订单没了，小票也该没了——让同步器收尾。
	w.fireHooks(ctx, orderID)
	return nil
}

// Get 读取订单头和明细。
func (w *Writer) Get(ctx context.Context, orderID uint) (*model.Order, error) {
	var o model.Order
	err := w.db.WithContext(ctx).Preload("Items").First(&o, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "order", ID: orderID}
		}
		return nil, &StorageError{Op: "load order", Err: err}
	}
	return &o, nil
}

// GetItems 返回订单当前的完整明细集合。
func (w *Writer) GetItems(ctx context.Context, orderID uint) ([]model.OrderItem, error) {
	var n int64
	if err := w.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", orderID).Count(&n).Error; err != nil {
		return nil, &StorageError{Op: "load order", Err: err}
	}
	if n == 0 {
		return nil, &NotFoundError{Entity: "order", ID: orderID}
	}
	var items []model.OrderItem
	if err := w.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id").Find(&items).Error; err != nil {
		return nil, &StorageError{Op: "load items", Err: err}
	}
	return items, nil
}

func requireTable(order *model.Order) (string, error) {
	if order.TableLabel == nil || *order.TableLabel == "" {
		return "", &ValidationError{Field: "table_label", Reason: "is required"}
	}
	return *order.TableLabel, nil
}

// lockTable 拿桌位建议锁；locker 缺席时为空操作。
// 拿不到锁等价于桌位正被并发认领，直接按冲突处理。
func (w *Writer) lockTable(ctx context.Context, label string) (func(), error) {
	if w.locker == nil {
		return func() {}, nil
	}
	token := uuid.New().String()
	ok, err := w.locker.Acquire(ctx, label, token)
	if err != nil {
		return nil, &StorageError{Op: "acquire table lock", Err: err}
	}
	if !ok {
		return nil, &TableConflictError{Table: label}
	}
	return func() { _ = w.locker.Release(ctx, label, token) }, nil
}

// classify 把事务错误翻译成对外错误类型。
// 部分唯一索引被打中说明另一写入者刚赢得这张桌 → 冲突而非故障。
func (w *Writer) classify(err error, label, op string) error {
	var ve *ValidationError
	var ce *TableConflictError
	var ne *NotFoundError
	var se *StorageError
	switch {
	case errors.As(err, &ve), errors.As(err, &ce), errors.As(err, &ne), errors.As(err, &se):
		return err
	case isUniqueViolation(err) && label != "":
		return &TableConflictError{Table: label}
	default:
		return &StorageError{Op: op, Err: err}
	}
}

func (w *Writer) fireHooks(ctx context.Context, orderID uint) {
	for _, h := range w.hooks {
		h(ctx, orderID)
	}
}
