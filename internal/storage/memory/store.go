package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Store объединяет in-memory хранилища под общим менеджером транзакций.
// Используется в dev-режиме и как основа юнит-тестов; контракт совпадает
// с PostgreSQL-реализацией.
type Store struct {
	// txMu сериализует транзакции целиком: валидация стока и списание
	// не могут перемежаться между конкурентными коммитами.
	txMu sync.Mutex

	orders  *orderRepositoryInMemory
	stock   *stockLedgerInMemory
	outbox  *outboxRepositoryInMemory
	history *statusHistoryInMemory
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		orders:  newOrderRepository(),
		stock:   NewStockLedger(),
		outbox:  NewOutboxRepository(),
		history: NewStatusHistoryRepository(),
	}
}

// Orders возвращает репозиторий заказов для чтения вне транзакций.
func (s *Store) Orders() domain.OrderRepository { return s.orders }

// Stock возвращает складской учёт.
func (s *Store) Stock() domain.StockLedger { return s.stock }

// StockSeed возвращает конкретный тип для наполнения остатков.
func (s *Store) StockSeed() *stockLedgerInMemory { return s.stock }

// Outbox возвращает transactional outbox.
func (s *Store) Outbox() domain.OutboxRepository { return s.outbox }

// History возвращает историю статусов.
func (s *Store) History() domain.StatusHistoryRepository { return s.history }

// WithinTx выполняет fn под глобальной блокировкой с откатом всех хранилищ
// при ошибке. Снимки дешёвые: in-memory store живёт на объёмах разработки
// и тестов.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	ordersSnap := s.orders.snapshot()
	stockSnap := s.stock.snapshot()
	outboxSnap := s.outbox.snapshot()
	historySnap := s.history.snapshot()

	if err := fn(memTx{store: s}); err != nil {
		s.orders.restore(ordersSnap)
		s.stock.restore(stockSnap)
		s.outbox.restore(outboxSnap)
		s.history.restore(historySnap)
		return err
	}

	return nil
}

// memTx отдаёт те же хранилища: атомарность обеспечивает txMu + снимки.
type memTx struct {
	store *Store
}

func (t memTx) Orders() domain.OrderRepository          { return t.store.orders }
func (t memTx) Stock() domain.StockLedger               { return t.store.stock }
func (t memTx) Outbox() domain.OutboxRepository         { return t.store.outbox }
func (t memTx) History() domain.StatusHistoryRepository { return t.store.history }

var (
	_ domain.TxManager = (*Store)(nil)
	_ domain.Tx        = memTx{}
)
