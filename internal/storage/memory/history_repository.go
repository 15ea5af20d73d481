package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// statusHistoryInMemory хранит переходы статусов в памяти (для разработки/тестов).
type statusHistoryInMemory struct {
	mu      sync.RWMutex
	changes map[string][]domain.StatusChange
}

// NewStatusHistoryRepository создаёт in-memory реализацию StatusHistoryRepository.
func NewStatusHistoryRepository() *statusHistoryInMemory {
	return &statusHistoryInMemory{changes: make(map[string][]domain.StatusChange)}
}

// Append добавляет переход в историю заказа.
func (r *statusHistoryInMemory) Append(change domain.StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.changes[change.OrderID] = append(r.changes[change.OrderID], change)

	sort.Slice(r.changes[change.OrderID], func(i, j int) bool {
		return r.changes[change.OrderID][i].Occurred.Before(r.changes[change.OrderID][j].Occurred)
	})

	return nil
}

// List возвращает переходы заказа в хронологическом порядке.
func (r *statusHistoryInMemory) List(orderID string) ([]domain.StatusChange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	changes := r.changes[orderID]
	result := make([]domain.StatusChange, len(changes))
	copy(result, changes)
	return result, nil
}

func (r *statusHistoryInMemory) snapshot() map[string][]domain.StatusChange {
	r.mu.RLock()
	defer r.mu.RUnlock()

	copied := make(map[string][]domain.StatusChange, len(r.changes))
	for id, changes := range r.changes {
		copied[id] = append([]domain.StatusChange(nil), changes...)
	}
	return copied
}

func (r *statusHistoryInMemory) restore(snapshot map[string][]domain.StatusChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = snapshot
}

var _ domain.StatusHistoryRepository = (*statusHistoryInMemory)(nil)
