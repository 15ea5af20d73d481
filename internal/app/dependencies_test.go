package app

import (
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestNewDependencies(t *testing.T) {
	logger := log.WithField("test", "dependencies")
	deps := NewDependencies(logger)

	if deps == nil {
		t.Fatal("NewDependencies should not return nil")
	}
	if deps.Customers == nil {
		t.Error("Customers should not be nil")
	}
	if deps.Catalog == nil {
		t.Error("Catalog should not be nil")
	}
	if deps.Orders == nil {
		t.Error("Orders should not be nil")
	}
	if deps.History == nil {
		t.Error("History should not be nil")
	}
	if deps.Outbox == nil {
		t.Error("Outbox should not be nil")
	}
	if deps.Idempotency == nil {
		t.Error("Idempotency should not be nil")
	}
	if deps.TxManager == nil {
		t.Error("TxManager should not be nil")
	}
	if deps.Logger == nil {
		t.Error("Logger should not be nil")
	}
}

func TestNewDependencies_WithNilLogger(t *testing.T) {
	deps := NewDependencies(nil)

	if deps == nil {
		t.Fatal("NewDependencies should not return nil")
	}
	if deps.Logger == nil {
		t.Error("Logger should be initialized even when nil is passed")
	}
}

func TestNewDependencies_SeedsDemoData(t *testing.T) {
	deps := NewDependencies(nil)

	customer, err := deps.Customers.FindCustomer("cust-1")
	if err != nil {
		t.Fatalf("demo customer lookup failed: %v", err)
	}
	if customer.Name == "" {
		t.Error("demo customer should have a name")
	}

	product, err := deps.Catalog.FindProduct("prod-1")
	if err != nil {
		t.Fatalf("demo product lookup failed: %v", err)
	}
	if product.PriceMinor <= 0 {
		t.Errorf("demo product should have a positive price, got %d", product.PriceMinor)
	}
}

func TestDependencies_CloseWithoutPostgres(t *testing.T) {
	deps := NewDependencies(nil)

	if err := deps.Close(); err != nil {
		t.Errorf("Close on in-memory deps should not fail: %v", err)
	}
}
