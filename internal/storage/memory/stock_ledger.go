package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// stockLedgerInMemory хранит остатки по товарам в памяти.
type stockLedgerInMemory struct {
	mu      sync.RWMutex
	entries map[string]int64
}

// NewStockLedger возвращает in-memory реализацию StockLedger.
func NewStockLedger() *stockLedgerInMemory {
	return &stockLedgerInMemory{entries: make(map[string]int64)}
}

// Put записывает остаток товара (наполнение данных в dev-режиме и тестах).
func (l *stockLedgerInMemory) Put(entry domain.StockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[entry.ProductID] = entry.Quantity
}

// Get возвращает остаток товара или StockEntryMissingError.
func (l *stockLedgerInMemory) Get(productID string) (domain.StockEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	qty, ok := l.entries[productID]
	if !ok {
		return domain.StockEntry{}, domain.StockEntryMissingError{ProductID: productID}
	}
	return domain.StockEntry{ProductID: productID, Quantity: qty}, nil
}

// Decrement списывает qty единиц. Остаток не может уйти в минус: это
// зеркало CHECK-ограничения в PostgreSQL-реализации.
func (l *stockLedgerInMemory) Decrement(productID string, qty int32) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.entries[productID]
	if !ok {
		return domain.StockEntryMissingError{ProductID: productID}
	}
	if current < int64(qty) {
		return domain.InsufficientStockError{
			ProductID: productID,
			Available: current,
			Requested: int64(qty),
		}
	}
	l.entries[productID] = current - int64(qty)
	return nil
}

// Restore возвращает qty единиц на склад.
func (l *stockLedgerInMemory) Restore(productID string, qty int32) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.entries[productID]
	if !ok {
		return domain.StockEntryMissingError{ProductID: productID}
	}
	l.entries[productID] = current + int64(qty)
	return nil
}

func (l *stockLedgerInMemory) snapshot() map[string]int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	copied := make(map[string]int64, len(l.entries))
	for id, qty := range l.entries {
		copied[id] = qty
	}
	return copied
}

func (l *stockLedgerInMemory) restore(snapshot map[string]int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = snapshot
}

var _ domain.StockLedger = (*stockLedgerInMemory)(nil)
