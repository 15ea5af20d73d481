package domain

import (
	"context"
	"time"
)

// CustomerDirectory описывает внешний сервис клиентов.
type CustomerDirectory interface {
	// FindCustomer возвращает клиента или ErrCustomerNotFound.
	FindCustomer(id string) (Customer, error)
}

// ProductCatalog описывает внешний каталог товаров.
type ProductCatalog interface {
	// FindProduct возвращает товар или ErrProductNotFound.
	FindProduct(id string) (Product, error)
}

// StockLedger описывает складской учёт остатков.
type StockLedger interface {
	// Get возвращает остаток товара или StockEntryMissingError.
	Get(productID string) (StockEntry, error)
	// Decrement списывает qty единиц. Достаточность остатка валидируется
	// до вызова; хранилище лишь гарантирует, что остаток не уйдёт в минус.
	Decrement(productID string, qty int32) error
	// Restore возвращает qty единиц на склад (компенсация при ревизии).
	Restore(productID string, qty int32) error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(order Order) error
	// Get возвращает заказ с позициями или ErrOrderNotFound, если его нет.
	Get(id string) (Order, error)
	// ListByCustomer возвращает заказы клиента с опциональным ограничением на количество.
	ListByCustomer(customerID string, limit int) ([]Order, error)
	// Save применяет обновления к заказу (включая замену позиций) с учётом optimistic locking.
	Save(order Order) error
}

// StatusHistoryRepository хранит переходы статусов заказа.
type StatusHistoryRepository interface {
	Append(change StatusChange) error
	List(orderID string) ([]StatusChange, error)
}

// Tx предоставляет хранилища, привязанные к одной атомарной транзакции.
// Чтения стока внутри транзакции удерживают блокировку строки до коммита,
// поэтому валидация и списание не гонятся между конкурентными заказами.
type Tx interface {
	Orders() OrderRepository
	Stock() StockLedger
	Outbox() OutboxRepository
	History() StatusHistoryRepository
}

// TxManager выполняет fn в границах одной транзакции: commit при nil,
// полный откат при любой ошибке.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
