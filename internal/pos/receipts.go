package pos

import (
	"context"
	"errors"
	"time"

	"cafe_pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Syncer 维护小票不变量：订单 Paid ⟺ 存在一张小票，
// 金额跟随最近一次同步时的订单总额。所有方法可重入、幂等。
type Syncer struct {
	db *gorm.DB
}

func NewSyncer(db *gorm.DB) *Syncer {
	return &Syncer{db: db}
}

// SyncForOrder 把单个订单的小票对齐到当前支付状态：
//   - Paid：没票则开票（金额=总额，签发时间=now），有票则只刷新金额，
//     不动签发时间；
//   - 非 Paid 或订单已删除：清掉遗留小票。
func (s *Syncer) SyncForOrder(ctx context.Context, orderID uint) error {
	var order model.Order
	err := s.db.WithContext(ctx).First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.deleteReceipt(ctx, orderID)
		}
		return &StorageError{Op: "load order", Err: err}
	}

	if order.PaymentStatus != model.PaymentPaid {
		return s.deleteReceipt(ctx, orderID)
	}

	var rec model.Receipt
	err = s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&rec).Error
	switch {
	case err == nil:
		// 重复同步：只对齐金额。
		if rec.AmountPaid == order.TotalAmount {
			return nil
		}
		if err := s.db.WithContext(ctx).Model(&rec).Update("amount_paid", order.TotalAmount).Error; err != nil {
			return &StorageError{Op: "update receipt", Err: err}
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec = model.Receipt{
			ReceiptNo:  uuid.New().String(),
			OrderID:    orderID,
			AmountPaid: order.TotalAmount,
			IssuedAt:   time.Now(),
		}
		if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
			// order_id 唯一索引：并发同步抢先开了票，降级为金额对齐。
			if isUniqueViolation(err) {
				return s.db.WithContext(ctx).Model(&model.Receipt{}).
					Where("order_id = ?", orderID).
					Update("amount_paid", order.TotalAmount).Error
			}
			return &StorageError{Op: "create receipt", Err: err}
		}
		return nil
	default:
		return &StorageError{Op: "load receipt", Err: err}
	}
}

// GetForOrder 查订单小票。
func (s *Syncer) GetForOrder(ctx context.Context, orderID uint) (*model.Receipt, error) {
	var rec model.Receipt
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "receipt", ID: orderID}
		}
		return nil, &StorageError{Op: "load receipt", Err: err}
	}
	return &rec, nil
}

// EnsureAllForPaidOrders 兜底对账：给所有已付但缺票的订单补票，
// 返回补票张数。修复用，不在热路径上。
func (s *Syncer) EnsureAllForPaidOrders(ctx context.Context) (int, error) {
	var orphans []model.Order
	sub := s.db.Model(&model.Receipt{}).Select("order_id")
	err := s.db.WithContext(ctx).
		Where("payment_status = ?", model.PaymentPaid).
		Where("id NOT IN (?)", sub).
		Find(&orphans).Error
	if err != nil {
		return 0, &StorageError{Op: "list paid orders", Err: err}
	}

	created := 0
	for _, o := range orphans {
		rec := model.Receipt{
			ReceiptNo:  uuid.New().String(),
			OrderID:    o.ID,
			AmountPaid: o.TotalAmount,
			IssuedAt:   time.Now(),
		}
		if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
			if isUniqueViolation(err) {
				continue // 对账期间被人抢先补上了，跳过
			}
			return created, &StorageError{Op: "create receipt", Err: err}
		}
		created++
	}
	return created, nil
}

func (s *Syncer) deleteReceipt(ctx context.Context, orderID uint) error {
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&model.Receipt{}).Error; err != nil {
		return &StorageError{Op: "delete receipt", Err: err}
	}
	return nil
}
