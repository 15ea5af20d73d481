package domain_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		sentinel error
	}{
		{
			name:     "invalid product",
			err:      domain.InvalidProductError{ProductID: "p-1"},
			sentinel: domain.ErrProductNotFound,
		},
		{
			name:     "insufficient stock",
			err:      domain.InsufficientStockError{ProductID: "p-1", Available: 1, Requested: 3},
			sentinel: domain.ErrInsufficientStock,
		},
		{
			name:     "stock entry missing",
			err:      domain.StockEntryMissingError{ProductID: "p-1"},
			sentinel: domain.ErrStockEntryMissing,
		},
		{
			name:     "status transition",
			err:      domain.StatusTransitionError{From: domain.OrderStatusCancelled, To: domain.OrderStatusPlaced},
			sentinel: domain.ErrStatusTransition,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, tc.sentinel) {
				t.Fatalf("errors.Is(%v, %v) = false", tc.err, tc.sentinel)
			}
			// Обёртки не должны ломать сопоставление.
			wrapped := fmt.Errorf("create order: %w", tc.err)
			if !errors.Is(wrapped, tc.sentinel) {
				t.Fatalf("wrapped error lost sentinel match: %v", wrapped)
			}
		})
	}
}

func TestTypedErrorsCarryProductID(t *testing.T) {
	wrapped := fmt.Errorf("stock validation: %w", domain.InsufficientStockError{
		ProductID: "product-7",
		Available: 2,
		Requested: 5,
	})

	var stockErr domain.InsufficientStockError
	if !errors.As(wrapped, &stockErr) {
		t.Fatal("expected errors.As to extract InsufficientStockError")
	}
	if stockErr.ProductID != "product-7" {
		t.Fatalf("unexpected product id: %s", stockErr.ProductID)
	}
	if !strings.Contains(wrapped.Error(), "product-7") {
		t.Fatalf("error text must name the product: %s", wrapped.Error())
	}
}

func TestIsVersionConflict(t *testing.T) {
	if !domain.IsVersionConflict(fmt.Errorf("save: %w", domain.ErrOrderVersionConflict)) {
		t.Fatal("wrapped version conflict must be detected")
	}
	if domain.IsVersionConflict(domain.ErrOrderNotFound) {
		t.Fatal("not found is not a version conflict")
	}
}
