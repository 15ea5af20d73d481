package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCustomerRequired — отсутствующий идентификатор клиента.
	ErrCustomerRequired = errors.New("customer_id is required")
	// ErrEmptyOrder — в заказе нет ни одной позиции.
	ErrEmptyOrder = errors.New("order must contain at least one item")
	// ErrAmountNegative — отрицательная сумма заказа.
	ErrAmountNegative = errors.New("amount_minor must be non-negative")
	// ErrItemQtyInvalid — некорректное количество товара в позиции (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// ErrItemPriceInvalid — отрицательная цена позиции.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// ErrAmountMismatch — сумма заказа не сходится с суммой позиций.
	ErrAmountMismatch = errors.New("order amount does not match items sum")

	// ErrInvalidCustomer возвращается при оформлении заказа на неизвестного клиента.
	ErrInvalidCustomer = errors.New("invalid customer id")
	// ErrCustomerNotFound возвращается read-путями, когда клиент не найден.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrProductNotFound возвращается каталогом, когда товар не найден.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")

	// ErrInsufficientStock — запрошено больше, чем есть на складе.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStockEntryMissing — для товара нет записи на складе.
	// Это нарушение целостности данных, а не ошибка пользовательского ввода.
	ErrStockEntryMissing = errors.New("stock entry not found for product")

	// ErrStatusUnknown — статус вне поддерживаемого набора.
	ErrStatusUnknown = errors.New("unknown order status")
	// ErrStatusTransition — переход статусов запрещён таблицей переходов.
	ErrStatusTransition = errors.New("status transition is not allowed")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// ErrIdempotencyKeyRequired — пустой idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой хэш запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyAlreadyExists — ключ уже зарегистрирован.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — ключ переиспользован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key is used with different request")
	// ErrIdempotencyKeyNotFound — запись по ключу не найдена.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
)

// InvalidProductError указывает на неизвестный товар в запросе.
type InvalidProductError struct {
	ProductID string
}

func (e InvalidProductError) Error() string {
	return fmt.Sprintf("invalid product id: %s", e.ProductID)
}

// Is позволяет errors.Is сопоставлять ошибку с ErrProductNotFound.
func (e InvalidProductError) Is(target error) bool {
	return target == ErrProductNotFound
}

// InsufficientStockError сообщает, по какому товару не хватило остатка.
type InsufficientStockError struct {
	ProductID string
	Available int64
	Requested int64
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

func (e InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// StockEntryMissingError сообщает, для какого товара отсутствует складская запись.
type StockEntryMissingError struct {
	ProductID string
}

func (e StockEntryMissingError) Error() string {
	return fmt.Sprintf("stock entry not found for product %s", e.ProductID)
}

func (e StockEntryMissingError) Is(target error) bool {
	return target == ErrStockEntryMissing
}

// StatusTransitionError описывает запрещённый переход статусов.
type StatusTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e StatusTransitionError) Error() string {
	return fmt.Sprintf("status transition %s -> %s is not allowed", e.From, e.To)
}

func (e StatusTransitionError) Is(target error) bool {
	return target == ErrStatusTransition
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}
