package model

import "testing"

func TestParseStatusFallback(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantPayment PaymentStatus
		wantOrder   OrderStatus
	}{
		{name: "valid paid/served", raw: "", wantPayment: PaymentUnpaid, wantOrder: OrderPending},
		{name: "unknown legacy value", raw: "PAID_LEGACY", wantPayment: PaymentUnpaid, wantOrder: OrderPending},
		{name: "paid", raw: "Paid", wantPayment: PaymentPaid, wantOrder: OrderPending},
		{name: "cancelled", raw: "Cancelled", wantPayment: PaymentUnpaid, wantOrder: OrderCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParsePaymentStatus(tt.raw); got != tt.wantPayment {
				t.Errorf("ParsePaymentStatus(%q) = %q, want %q", tt.raw, got, tt.wantPayment)
			}
			if got := ParseOrderStatus(tt.raw); got != tt.wantOrder {
				t.Errorf("ParseOrderStatus(%q) = %q, want %q", tt.raw, got, tt.wantOrder)
			}
		})
	}
}

func TestOrderIsOpen(t *testing.T) {
	tests := []struct {
		name    string
		payment PaymentStatus
		status  OrderStatus
		want    bool
	}{
		{"unpaid pending", PaymentUnpaid, OrderPending, true},
		{"unpaid preparing", PaymentUnpaid, OrderPreparing, true},
		{"unpaid served", PaymentUnpaid, OrderServed, true},
		{"unpaid cancelled", PaymentUnpaid, OrderCancelled, false},
		{"paid pending", PaymentPaid, OrderPending, false},
		{"paid cancelled", PaymentPaid, OrderCancelled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := Order{PaymentStatus: tt.payment, OrderStatus: tt.status}
			if got := o.IsOpen(); got != tt.want {
				t.Errorf("IsOpen() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecalcTotal(t *testing.T) {
	o := Order{Items: []OrderItem{
		{ProductID: 1, Quantity: 2, UnitPrice: 5000},
		{ProductID: 2, Quantity: 1, UnitPrice: 350},
	}}
	o.RecalcTotal()
	if o.TotalAmount != 10350 {
		t.Fatalf("TotalAmount = %d, want 10350", o.TotalAmount)
	}

	o.Items = nil
	o.RecalcTotal()
	if o.TotalAmount != 0 {
		t.Fatalf("TotalAmount after clearing items = %d, want 0", o.TotalAmount)
	}
}
