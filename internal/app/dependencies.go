package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

// Dependencies содержит хранилища и справочники приложения.
type Dependencies struct {
	Customers   domain.CustomerDirectory
	Catalog     domain.ProductCatalog
	Orders      domain.OrderRepository
	History     domain.StatusHistoryRepository
	Outbox      domain.OutboxRepository
	Idempotency domain.IdempotencyRepository
	TxManager   domain.TxManager
	Logger      *log.Entry

	// PG непустой только в postgres-режиме (нужен для health-проверки и Close).
	PG *postgres.Store
}

// NewDependencies создаёт in-memory зависимости с демо-данными.
// Используется в dev-режиме, когда STOREFRONT_DB_DSN не задан.
func NewDependencies(logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	customers := memory.NewCustomerDirectory()
	catalog := memory.NewProductCatalog()
	store := memory.NewStore()
	seedDemoData(customers, catalog, store)

	return &Dependencies{
		Customers:   customers,
		Catalog:     catalog,
		Orders:      store.Orders(),
		History:     store.History(),
		Outbox:      store.Outbox(),
		Idempotency: memory.NewIdempotencyRepository(),
		TxManager:   store,
		Logger:      logger,
	}
}

// NewPostgresDependencies создаёт зависимости поверх PostgreSQL и применяет миграции.
func NewPostgresDependencies(ctx context.Context, dsn string, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &Dependencies{
		Customers:   postgres.NewCustomerDirectory(store),
		Catalog:     postgres.NewProductCatalog(store),
		Orders:      postgres.NewOrderRepository(store),
		History:     postgres.NewStatusHistoryRepository(store),
		Outbox:      postgres.NewOutboxRepository(store),
		Idempotency: postgres.NewIdempotencyRepository(store),
		TxManager:   store,
		Logger:      logger,
		PG:          store,
	}, nil
}

// Close освобождает ресурсы зависимостей.
func (d *Dependencies) Close() error {
	if d == nil || d.PG == nil {
		return nil
	}
	return d.PG.Close()
}

// seedDemoData наполняет in-memory справочники минимальным набором
// для ручной проверки API без базы.
func seedDemoData(customers *memory.CustomerDirectory, catalog *memory.ProductCatalog, store *memory.Store) {
	customers.Put(domain.Customer{ID: "cust-1", Name: "Acme LLC", TaxID: "7707083893"})
	customers.Put(domain.Customer{ID: "cust-2", Name: "Globex", TaxID: "7702070139"})

	catalog.Put(domain.Product{ID: "prod-1", Description: "Widget", PriceMinor: 1000})
	catalog.Put(domain.Product{ID: "prod-2", Description: "Gadget", PriceMinor: 500})
	catalog.Put(domain.Product{ID: "prod-3", Description: "Sprocket", PriceMinor: 250})

	store.StockSeed().Put(domain.StockEntry{ProductID: "prod-1", Quantity: 100})
	store.StockSeed().Put(domain.StockEntry{ProductID: "prod-2", Quantity: 50})
	store.StockSeed().Put(domain.StockEntry{ProductID: "prod-3", Quantity: 25})
}
