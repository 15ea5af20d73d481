package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

const (
	rejectReasonInvalidCustomer   = "invalid_customer"
	rejectReasonInvalidProduct    = "invalid_product"
	rejectReasonEmptyOrder        = "empty_order"
	rejectReasonInsufficientStock = "insufficient_stock"
	rejectReasonStockMissing      = "stock_entry_missing"
	rejectReasonStatusTransition  = "status_transition"
)

// ItemRequest — запрошенная позиция: товар и количество.
type ItemRequest struct {
	ProductID string
	Qty       int32
}

// Request описывает входные данные создания или ревизии заказа.
// Сумма заказа клиентом не принимается: она всегда вычисляется на сервере.
type Request struct {
	CustomerID string
	Items      []ItemRequest
}

// Details — заказ вместе с данными клиента и историей статусов для detail view.
type Details struct {
	Order    domain.Order
	Customer domain.Customer
	History  []domain.StatusChange
}

// Processor реализует протокол коммита заказа: резолв клиента и товаров,
// расчёт суммы, валидацию стока и атомарную запись заказа со списанием.
type Processor struct {
	customers domain.CustomerDirectory
	catalog   domain.ProductCatalog
	orders    domain.OrderRepository
	history   domain.StatusHistoryRepository
	txm       domain.TxManager
	logger    *log.Entry
	metrics   *metrics.OrderMetrics
}

// NewProcessor создаёт рабочий экземпляр процессора заказов.
func NewProcessor(
	customers domain.CustomerDirectory,
	catalog domain.ProductCatalog,
	orders domain.OrderRepository,
	history domain.StatusHistoryRepository,
	txm domain.TxManager,
	logger *log.Entry,
) *Processor {
	p := newProcessor(customers, catalog, orders, history, txm, logger)
	p.metrics = metrics.NewOrderMetrics()
	return p
}

// NewProcessorWithoutMetrics создаёт процессор без метрик (для тестов).
func NewProcessorWithoutMetrics(
	customers domain.CustomerDirectory,
	catalog domain.ProductCatalog,
	orders domain.OrderRepository,
	history domain.StatusHistoryRepository,
	txm domain.TxManager,
	logger *log.Entry,
) *Processor {
	return newProcessor(customers, catalog, orders, history, txm, logger)
}

func newProcessor(
	customers domain.CustomerDirectory,
	catalog domain.ProductCatalog,
	orders domain.OrderRepository,
	history domain.StatusHistoryRepository,
	txm domain.TxManager,
	logger *log.Entry,
) *Processor {
	if logger == nil {
		logger = log.New().WithField("component", "order-processor")
	}
	return &Processor{
		customers: customers,
		catalog:   catalog,
		orders:    orders,
		history:   history,
		txm:       txm,
		logger:    logger,
	}
}

// Create оформляет новый заказ.
// Заказ не сохраняется, если хотя бы одна позиция не покрыта остатком;
// успешный коммит записывает заказ и списывает сток одной транзакцией.
func (p *Processor) Create(ctx context.Context, req Request) (domain.Order, error) {
	if _, err := p.resolveCustomer(req.CustomerID); err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			p.reject(rejectReasonInvalidCustomer)
			return domain.Order{}, domain.ErrInvalidCustomer
		}
		return domain.Order{}, err
	}

	if len(req.Items) == 0 {
		p.reject(rejectReasonEmptyOrder)
		return domain.Order{}, domain.ErrEmptyOrder
	}

	now := time.Now().UTC()
	items, amount, err := p.buildItems(req.Items, now)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			p.reject(rejectReasonInvalidProduct)
		}
		return domain.Order{}, err
	}

	order := domain.Order{
		ID:          uuid.NewString(),
		CustomerID:  req.CustomerID,
		Status:      domain.OrderStatusPlaced,
		AmountMinor: amount,
		Items:       items,
		Version:     0,
		PlacedAt:    now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, errors.Join(errs...)
	}

	commitStart := time.Now()
	err = p.txm.WithinTx(ctx, func(tx domain.Tx) error {
		// Валидация и списание идут под одной блокировкой строк стока.
		if err := validateStock(tx.Stock(), order.Items); err != nil {
			return err
		}
		if err := tx.Orders().Create(order); err != nil {
			return fmt.Errorf("persist order: %w", err)
		}
		if err := decrementStock(tx.Stock(), order.Items); err != nil {
			return err
		}
		if err := tx.History().Append(domain.StatusChange{
			OrderID:  order.ID,
			To:       domain.OrderStatusPlaced,
			Occurred: now,
		}); err != nil {
			return fmt.Errorf("append status history: %w", err)
		}
		return p.enqueueEvent(tx.Outbox(), kafka.NewOrderEvent(
			kafka.EventTypeOrderPlaced, order.ID, order.CustomerID, string(order.Status),
			map[string]any{
				"amount_minor": order.AmountMinor,
				"items_count":  len(order.Items),
			},
		))
	})
	if err != nil {
		p.rejectCommit(err)
		return domain.Order{}, err
	}

	if p.metrics != nil {
		p.metrics.RecordOrderPlaced()
		p.metrics.RecordCommitDuration(time.Since(commitStart))
	}
	p.logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"customer_id":  order.CustomerID,
		"amount_minor": order.AmountMinor,
	}).Info("order placed")

	return order, nil
}

// Revise заменяет клиента и весь набор позиций существующего заказа.
// Сначала сток по старым позициям возвращается на склад, затем новый набор
// валидируется и списывается — всё в одной транзакции.
func (p *Processor) Revise(ctx context.Context, orderID string, req Request) (domain.Order, error) {
	if _, err := p.resolveCustomer(req.CustomerID); err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			p.reject(rejectReasonInvalidCustomer)
			return domain.Order{}, domain.ErrInvalidCustomer
		}
		return domain.Order{}, err
	}

	if len(req.Items) == 0 {
		p.reject(rejectReasonEmptyOrder)
		return domain.Order{}, domain.ErrEmptyOrder
	}

	now := time.Now().UTC()
	items, amount, err := p.buildItems(req.Items, now)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			p.reject(rejectReasonInvalidProduct)
		}
		return domain.Order{}, err
	}

	var revised domain.Order
	commitStart := time.Now()
	err = p.txm.WithinTx(ctx, func(tx domain.Tx) error {
		existing, err := tx.Orders().Get(orderID)
		if err != nil {
			return err
		}

		// Компенсация: старые позиции возвращаются до валидации новых.
		for _, item := range existing.Items {
			if err := tx.Stock().Restore(item.ProductID, item.Qty); err != nil {
				return fmt.Errorf("restore stock for %s: %w", item.ProductID, err)
			}
		}

		if err := validateStock(tx.Stock(), items); err != nil {
			return err
		}

		existing.CustomerID = req.CustomerID
		existing.Items = items
		existing.AmountMinor = amount
		existing.PlacedAt = now
		existing.UpdatedAt = now
		if errs := existing.ValidateInvariants(); len(errs) > 0 {
			return errors.Join(errs...)
		}

		if err := tx.Orders().Save(existing); err != nil {
			return fmt.Errorf("persist revised order: %w", err)
		}
		existing.Version++

		if err := decrementStock(tx.Stock(), items); err != nil {
			return err
		}

		if err := p.enqueueEvent(tx.Outbox(), kafka.NewOrderEvent(
			kafka.EventTypeOrderRevised, existing.ID, existing.CustomerID, string(existing.Status),
			map[string]any{
				"amount_minor": existing.AmountMinor,
				"items_count":  len(existing.Items),
			},
		)); err != nil {
			return err
		}

		revised = existing
		return nil
	})
	if err != nil {
		p.rejectCommit(err)
		return domain.Order{}, err
	}

	if p.metrics != nil {
		p.metrics.RecordOrderRevised()
		p.metrics.RecordCommitDuration(time.Since(commitStart))
	}
	p.logger.WithFields(log.Fields{
		"order_id":     revised.ID,
		"amount_minor": revised.AmountMinor,
	}).Info("order revised")

	return revised, nil
}

// UpdateStatus переводит заказ в новый статус согласно таблице переходов.
// Сток и сумма заказа не затрагиваются. Повторная установка текущего
// статуса — no-op.
func (p *Processor) UpdateStatus(ctx context.Context, orderID string, newStatus domain.OrderStatus) error {
	if !newStatus.Valid() {
		return fmt.Errorf("%w: %s", domain.ErrStatusUnknown, newStatus)
	}

	err := p.txm.WithinTx(ctx, func(tx domain.Tx) error {
		order, err := tx.Orders().Get(orderID)
		if err != nil {
			return err
		}
		if order.Status == newStatus {
			return nil
		}
		if !order.Status.CanTransition(newStatus) {
			return domain.StatusTransitionError{From: order.Status, To: newStatus}
		}

		previous := order.Status
		now := time.Now().UTC()
		order.Status = newStatus
		order.UpdatedAt = now
		if err := tx.Orders().Save(order); err != nil {
			return fmt.Errorf("persist status: %w", err)
		}
		if err := tx.History().Append(domain.StatusChange{
			OrderID:  order.ID,
			From:     previous,
			To:       newStatus,
			Occurred: now,
		}); err != nil {
			return fmt.Errorf("append status history: %w", err)
		}
		return p.enqueueEvent(tx.Outbox(), kafka.NewOrderEvent(
			kafka.EventTypeOrderStatusChanged, order.ID, order.CustomerID, string(newStatus),
			map[string]any{
				"from": string(previous),
				"to":   string(newStatus),
			},
		))
	})
	if err != nil {
		if errors.Is(err, domain.ErrStatusTransition) {
			p.reject(rejectReasonStatusTransition)
		}
		return err
	}

	if p.metrics != nil {
		p.metrics.RecordStatusUpdate()
	}
	p.logger.WithFields(log.Fields{
		"order_id": orderID,
		"status":   newStatus,
	}).Info("order status updated")

	return nil
}

// Get возвращает заказ с позициями, данными клиента и историей статусов.
func (p *Processor) Get(_ context.Context, orderID string) (Details, error) {
	order, err := p.orders.Get(orderID)
	if err != nil {
		return Details{}, err
	}

	details := Details{Order: order}

	customer, err := p.customers.FindCustomer(order.CustomerID)
	if err != nil {
		// Заказ важнее справочных данных: отдаём его и без карточки клиента.
		p.logger.WithError(err).WithField("order_id", orderID).Warn("failed to resolve order customer")
		details.Customer = domain.Customer{ID: order.CustomerID}
	} else {
		details.Customer = customer
	}

	if p.history != nil {
		history, err := p.history.List(orderID)
		if err != nil {
			p.logger.WithError(err).WithField("order_id", orderID).Warn("failed to load status history")
		} else {
			details.History = history
		}
	}

	return details, nil
}

// ListByCustomer возвращает заказы клиента, новые первыми.
func (p *Processor) ListByCustomer(_ context.Context, customerID string, limit int) ([]domain.Order, error) {
	if _, err := p.resolveCustomer(customerID); err != nil {
		return nil, err
	}
	return p.orders.ListByCustomer(customerID, limit)
}

func (p *Processor) resolveCustomer(customerID string) (domain.Customer, error) {
	if customerID == "" {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	customer, err := p.customers.FindCustomer(customerID)
	if err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, fmt.Errorf("resolve customer %s: %w", customerID, err)
	}
	return customer, nil
}

// buildItems резолвит товары и собирает позиции заказа.
// Цена и описание снимаются с каталога в момент вызова, количество берётся
// из запроса как есть.
func (p *Processor) buildItems(reqItems []ItemRequest, now time.Time) ([]domain.OrderItem, int64, error) {
	items := make([]domain.OrderItem, 0, len(reqItems))
	var amount int64
	for _, ri := range reqItems {
		product, err := p.catalog.FindProduct(ri.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				return nil, 0, domain.InvalidProductError{ProductID: ri.ProductID}
			}
			return nil, 0, fmt.Errorf("resolve product %s: %w", ri.ProductID, err)
		}
		items = append(items, domain.OrderItem{
			ID:          uuid.NewString(),
			ProductID:   product.ID,
			Description: product.Description,
			Qty:         ri.Qty,
			PriceMinor:  product.PriceMinor,
			CreatedAt:   now,
		})
		amount += int64(ri.Qty) * product.PriceMinor
	}
	return items, amount, nil
}

// validateStock проверяет покрытие всех позиций остатком: всё или ничего.
func validateStock(ledger domain.StockLedger, items []domain.OrderItem) error {
	for _, item := range items {
		entry, err := ledger.Get(item.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrStockEntryMissing) {
				return domain.StockEntryMissingError{ProductID: item.ProductID}
			}
			return fmt.Errorf("read stock for %s: %w", item.ProductID, err)
		}
		if entry.Quantity < int64(item.Qty) {
			return domain.InsufficientStockError{
				ProductID: item.ProductID,
				Available: entry.Quantity,
				Requested: int64(item.Qty),
			}
		}
	}
	return nil
}

func decrementStock(ledger domain.StockLedger, items []domain.OrderItem) error {
	for _, item := range items {
		if err := ledger.Decrement(item.ProductID, item.Qty); err != nil {
			return fmt.Errorf("decrement stock for %s: %w", item.ProductID, err)
		}
	}
	return nil
}

func (p *Processor) enqueueEvent(outbox domain.OutboxRepository, event *kafka.OrderEvent) error {
	if outbox == nil {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.EventType, err)
	}
	if _, err := outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   event.OrderID,
		EventType:     string(event.EventType),
		Payload:       data,
	}); err != nil {
		return fmt.Errorf("enqueue %s event: %w", event.EventType, err)
	}
	if p.metrics != nil {
		p.metrics.RecordOutboxEvent()
	}
	return nil
}

func (p *Processor) reject(reason string) {
	if p.metrics != nil {
		p.metrics.RecordOrderRejected(reason)
	}
}

func (p *Processor) rejectCommit(err error) {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		if p.metrics != nil {
			p.metrics.RecordStockConflict()
		}
		p.reject(rejectReasonInsufficientStock)
	case errors.Is(err, domain.ErrStockEntryMissing):
		p.reject(rejectReasonStockMissing)
	}
}
