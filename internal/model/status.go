package model

// PaymentStatus 订单支付状态（入库存字符串）。
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "Unpaid"
	PaymentPaid   PaymentStatus = "Paid"
)

// OrderStatus 订单流转状态。
type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderPreparing OrderStatus = "Preparing"
	OrderServed    OrderStatus = "Served"
	OrderCancelled OrderStatus = "Cancelled"
)

// ParsePaymentStatus 解析存量数据：未知值一律回退 Unpaid，不报错。
func ParsePaymentStatus(s string) PaymentStatus {
	switch PaymentStatus(s) {
	case PaymentPaid, PaymentUnpaid:
		return PaymentStatus(s)
	default:
		return PaymentUnpaid
	}
}

// ParseOrderStatus 解析存量数据：未知值回退 Pending。
func ParseOrderStatus(s string) OrderStatus {
	switch OrderStatus(s) {
	case OrderPending, OrderPreparing, OrderServed, OrderCancelled:
		return OrderStatus(s)
	default:
		return OrderPending
	}
}

// OpenOrderStatuses 返回仍占用桌位的订单状态集合（open 谓词的一半）。
func OpenOrderStatuses() []OrderStatus {
	return []OrderStatus{OrderPending, OrderPreparing, OrderServed}
}
