package domain_test

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// helper для создания базового заказа с двумя позициями.
func makeOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:          "order-1",
		CustomerID:  "customer-1",
		Status:      domain.OrderStatusPlaced,
		AmountMinor: 2500,
		Items: []domain.OrderItem{
			{
				ID:          "item-1",
				ProductID:   "product-a",
				Description: "Product A",
				Qty:         2,
				PriceMinor:  1000,
				CreatedAt:   now,
			},
			{
				ID:          "item-2",
				ProductID:   "product-b",
				Description: "Product B",
				Qty:         1,
				PriceMinor:  500,
				CreatedAt:   now,
			},
		},
		Version:   0,
		PlacedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderValidateInvariants_Ok(t *testing.T) {
	order := makeOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestOrderValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(o *domain.Order)
	}{
		{
			name: "no customer",
			mut: func(o *domain.Order) {
				o.CustomerID = ""
			},
		},
		{
			name: "no items",
			mut: func(o *domain.Order) {
				o.Items = nil
			},
		},
		{
			name: "negative amount",
			mut: func(o *domain.Order) {
				o.AmountMinor = -1
			},
		},
		{
			name: "qty invalid",
			mut: func(o *domain.Order) {
				o.Items[0].Qty = 0
			},
		},
		{
			name: "price invalid",
			mut: func(o *domain.Order) {
				o.Items[0].PriceMinor = -5
			},
		},
		{
			name: "amount mismatch",
			mut: func(o *domain.Order) {
				o.AmountMinor = 999
			},
		},
		{
			name: "unknown status",
			mut: func(o *domain.Order) {
				o.Status = domain.OrderStatus("shipped")
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := makeOrder()
			// Изменяем состояние согласно сценарию.
			tc.mut(&order)

			if len(order.ValidateInvariants()) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
		})
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    domain.OrderStatus
		to      domain.OrderStatus
		allowed bool
	}{
		{domain.OrderStatusPlaced, domain.OrderStatusPaid, true},
		{domain.OrderStatusPlaced, domain.OrderStatusCancelled, true},
		{domain.OrderStatusPlaced, domain.OrderStatusDelivered, false},
		{domain.OrderStatusPaid, domain.OrderStatusDispatched, true},
		{domain.OrderStatusPaid, domain.OrderStatusCancelled, true},
		{domain.OrderStatusPaid, domain.OrderStatusPlaced, false},
		{domain.OrderStatusDispatched, domain.OrderStatusDelivered, true},
		{domain.OrderStatusDispatched, domain.OrderStatusCancelled, false},
		{domain.OrderStatusDelivered, domain.OrderStatusPaid, false},
		{domain.OrderStatusCancelled, domain.OrderStatusPlaced, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestOrderStatusValid(t *testing.T) {
	for _, s := range []domain.OrderStatus{
		domain.OrderStatusPlaced,
		domain.OrderStatusPaid,
		domain.OrderStatusDispatched,
		domain.OrderStatusDelivered,
		domain.OrderStatusCancelled,
	} {
		if !s.Valid() {
			t.Errorf("status %s must be valid", s)
		}
	}
	if domain.OrderStatus("refunded").Valid() {
		t.Error("unexpected status must be invalid")
	}
}
