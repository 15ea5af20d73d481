package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func integrationOrder(customerID string) domain.Order {
	now := time.Now().UTC().Truncate(time.Microsecond)
	orderID := uuid.NewString()
	return domain.Order{
		ID:          orderID,
		CustomerID:  customerID,
		Status:      domain.OrderStatusPlaced,
		AmountMinor: 2500,
		Items: []domain.OrderItem{
			{ID: uuid.NewString(), ProductID: "prod-1", Description: "Widget", Qty: 2, PriceMinor: 1000, CreatedAt: now},
			{ID: uuid.NewString(), ProductID: "prod-2", Description: "Gadget", Qty: 1, PriceMinor: 500, CreatedAt: now},
		},
		PlacedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestIntegration_WithinTxCommitsOrderAndStock(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	seedCatalogForIntegrationTest(t, store)

	order := integrationOrder("cust-1")
	err := store.WithinTx(context.Background(), func(tx domain.Tx) error {
		if err := tx.Orders().Create(order); err != nil {
			return err
		}
		for _, item := range order.Items {
			if err := tx.Stock().Decrement(item.ProductID, item.Qty); err != nil {
				return err
			}
		}
		return tx.History().Append(domain.StatusChange{
			OrderID:  order.ID,
			To:       domain.OrderStatusPlaced,
			Occurred: order.PlacedAt,
		})
	})
	require.NoError(t, err)

	got, err := NewOrderRepository(store).Get(order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.AmountMinor, got.AmountMinor)
	assert.Len(t, got.Items, 2)

	entry, err := NewStockLedger(store).Get("prod-1")
	require.NoError(t, err)
	assert.Equal(t, int64(8), entry.Quantity)

	history, err := NewStatusHistoryRepository(store).List(order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.OrderStatusPlaced, history[0].To)
}

func TestIntegration_WithinTxRollsBackEverything(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	seedCatalogForIntegrationTest(t, store)

	order := integrationOrder("cust-1")
	boom := errors.New("boom")
	err := store.WithinTx(context.Background(), func(tx domain.Tx) error {
		if err := tx.Orders().Create(order); err != nil {
			return err
		}
		if err := tx.Stock().Decrement("prod-1", 2); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = NewOrderRepository(store).Get(order.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	entry, err := NewStockLedger(store).Get("prod-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), entry.Quantity)
}

func TestIntegration_StockDecrementNeverGoesNegative(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	seedCatalogForIntegrationTest(t, store)

	ledger := NewStockLedger(store)

	err := ledger.Decrement("prod-2", 6)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	var insufficient domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(5), insufficient.Available)

	assert.ErrorIs(t, ledger.Decrement("prod-404", 1), domain.ErrStockEntryMissing)

	require.NoError(t, ledger.Decrement("prod-2", 5))
	entry, err := ledger.Get("prod-2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), entry.Quantity)
}

func TestIntegration_OrderSaveReplacesItemsAndBumpsVersion(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	seedCatalogForIntegrationTest(t, store)

	repo := NewOrderRepository(store)
	order := integrationOrder("cust-1")
	require.NoError(t, repo.Create(order))

	order.Items = order.Items[:1]
	order.AmountMinor = 2000
	require.NoError(t, repo.Save(order))

	got, err := repo.Get(order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Version+1, got.Version)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, int64(2000), got.AmountMinor)

	// Повтор с несвежей версией отклоняется.
	assert.ErrorIs(t, repo.Save(order), domain.ErrOrderVersionConflict)
}

func TestIntegration_CatalogLookups(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	seedCatalogForIntegrationTest(t, store)

	customer, err := NewCustomerDirectory(store).FindCustomer("cust-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme LLC", customer.Name)

	_, err = NewCustomerDirectory(store).FindCustomer("cust-404")
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)

	product, err := NewProductCatalog(store).FindProduct("prod-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), product.PriceMinor)

	_, err = NewProductCatalog(store).FindProduct("prod-404")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}
