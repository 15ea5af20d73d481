package httpx

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/order"
)

const idempotencyKeyHeader = "Idempotency-Key"

// OrdersHandler — JSON API поверх процессора заказов.
type OrdersHandler struct {
	processor *order.Processor
	idem      domain.IdempotencyRepository
	logger    *log.Entry
}

// NewOrdersHandler создаёт обработчик API заказов.
// idem может быть nil: тогда заголовок Idempotency-Key игнорируется.
func NewOrdersHandler(processor *order.Processor, idem domain.IdempotencyRepository, logger *log.Entry) *OrdersHandler {
	if logger == nil {
		logger = log.WithField("component", "orders-handler")
	}
	return &OrdersHandler{
		processor: processor,
		idem:      idem,
		logger:    logger,
	}
}

// Register навешивает маршруты API заказов на роутер.
func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Put("/orders/{orderID}", h.reviseOrder)
	r.Patch("/orders/{orderID}", h.updateStatus)
	r.Get("/customers/{customerID}/orders", h.listCustomerOrders)
}

type orderItemRequest struct {
	ProductID string `json:"product_id"`
	Qty       int32  `json:"qty"`
}

// orderRequest — тело создания и ревизии заказа.
// Поле total клиентом не принимается: сумма всегда вычисляется на сервере.
type orderRequest struct {
	CustomerID string             `json:"customer_id"`
	Items      []orderItemRequest `json:"items"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type orderItemView struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	Description string `json:"description"`
	Qty         int32  `json:"qty"`
	PriceMinor  int64  `json:"price_minor"`
}

type orderView struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customer_id"`
	Status      string          `json:"status"`
	AmountMinor int64           `json:"amount_minor"`
	Version     int64           `json:"version"`
	PlacedAt    time.Time       `json:"placed_at"`
	Items       []orderItemView `json:"items"`
}

type customerView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	TaxID string `json:"tax_id,omitempty"`
}

type statusChangeView struct {
	From     string    `json:"from,omitempty"`
	To       string    `json:"to"`
	Occurred time.Time `json:"occurred"`
}

type orderDetailsView struct {
	orderView
	Customer customerView       `json:"customer"`
	History  []statusChangeView `json:"history"`
}

type errorResponse struct {
	Error     string `json:"error"`
	ProductID string `json:"product_id,omitempty"`
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("failed to read request body"))
		return
	}

	idemKey := r.Header.Get(idempotencyKeyHeader)
	if h.idem != nil && idemKey != "" {
		if done := h.beginIdempotent(w, idemKey, body); done {
			return
		}
	}

	var req orderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.finishIdempotent(idemKey, h.writeError(w, http.StatusBadRequest, errors.New("invalid json")))
		return
	}

	created, err := h.processor.Create(r.Context(), toServiceRequest(req))
	if err != nil {
		h.finishIdempotent(idemKey, h.writeBusinessError(w, err))
		return
	}

	h.finishIdempotent(idemKey, h.writeJSON(w, http.StatusCreated, toOrderView(created)))
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	details, err := h.processor.Get(r.Context(), orderID)
	if err != nil {
		h.writeBusinessError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toDetailsView(details))
}

func (h *OrdersHandler) reviseOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid json"))
		return
	}

	revised, err := h.processor.Revise(r.Context(), orderID, toServiceRequest(req))
	if err != nil {
		h.writeBusinessError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderView(revised))
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid json"))
		return
	}

	if err := h.processor.UpdateStatus(r.Context(), orderID, domain.OrderStatus(req.Status)); err != nil {
		h.writeBusinessError(w, err)
		return
	}

	details, err := h.processor.Get(r.Context(), orderID)
	if err != nil {
		h.writeBusinessError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toOrderView(details.Order))
}

func (h *OrdersHandler) listCustomerOrders(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, errors.New("invalid limit"))
			return
		}
		limit = parsed
	}

	orders, err := h.processor.ListByCustomer(r.Context(), customerID, limit)
	if err != nil {
		h.writeBusinessError(w, err)
		return
	}

	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"orders": views})
}

// idempotentResult — сохранённый ответ для MarkDone/MarkFailed.
type idempotentResult struct {
	status int
	body   []byte
}

// beginIdempotent занимает idempotency-ключ. Возвращает true, если ответ
// уже записан (повтор или конфликт) и обработку нужно прекратить.
func (h *OrdersHandler) beginIdempotent(w http.ResponseWriter, key string, body []byte) bool {
	hash := sha256.Sum256(body)
	record, err := h.idem.CreateProcessing(key, hex.EncodeToString(hash[:]), time.Time{})
	switch {
	case err == nil:
		return false
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		h.writeError(w, http.StatusConflict, errors.New("idempotency key reused with a different request body"))
		return true
	case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
		if record.Status == domain.IdempotencyStatusProcessing {
			h.writeError(w, http.StatusConflict, errors.New("request with this idempotency key is being processed"))
			return true
		}
		// Повтор завершённого запроса: отдаём сохранённый ответ как есть.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(record.HTTPStatus)
		_, _ = w.Write(record.ResponseBody)
		return true
	default:
		h.logger.WithError(err).WithField("idempotency_key", key).Error("failed to register idempotency key")
		h.writeError(w, http.StatusInternalServerError, errors.New("internal error"))
		return true
	}
}

func (h *OrdersHandler) finishIdempotent(key string, result idempotentResult) {
	if h.idem == nil || key == "" {
		return
	}

	var err error
	if result.status >= 200 && result.status < 300 {
		err = h.idem.MarkDone(key, result.body, result.status)
	} else {
		err = h.idem.MarkFailed(key, result.body, result.status)
	}
	if err != nil {
		h.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to record idempotent response")
	}
}

// writeBusinessError транслирует доменные ошибки в HTTP-статусы.
func (h *OrdersHandler) writeBusinessError(w http.ResponseWriter, err error) idempotentResult {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrCustomerNotFound):
		return h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrStatusTransition),
		errors.Is(err, domain.ErrOrderVersionConflict):
		return h.writeError(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrInvalidCustomer),
		errors.Is(err, domain.ErrEmptyOrder),
		errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrStockEntryMissing),
		errors.Is(err, domain.ErrStatusUnknown),
		errors.Is(err, domain.ErrItemQtyInvalid),
		errors.Is(err, domain.ErrItemPriceInvalid),
		errors.Is(err, domain.ErrAmountNegative):
		return h.writeError(w, http.StatusUnprocessableEntity, err)
	default:
		h.logger.WithError(err).Error("order request failed")
		return h.writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func (h *OrdersHandler) writeError(w http.ResponseWriter, status int, err error) idempotentResult {
	resp := errorResponse{Error: err.Error()}

	var invalidProduct domain.InvalidProductError
	var insufficient domain.InsufficientStockError
	var missing domain.StockEntryMissingError
	switch {
	case errors.As(err, &invalidProduct):
		resp.ProductID = invalidProduct.ProductID
	case errors.As(err, &insufficient):
		resp.ProductID = insufficient.ProductID
	case errors.As(err, &missing):
		resp.ProductID = missing.ProductID
	}

	return h.writeJSON(w, status, resp)
}

func (h *OrdersHandler) writeJSON(w http.ResponseWriter, status int, v any) idempotentResult {
	body, err := json.Marshal(v)
	if err != nil {
		h.logger.WithError(err).Error("failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return idempotentResult{status: http.StatusInternalServerError}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
	return idempotentResult{status: status, body: body}
}

func toServiceRequest(req orderRequest) order.Request {
	items := make([]order.ItemRequest, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, order.ItemRequest{ProductID: item.ProductID, Qty: item.Qty})
	}
	return order.Request{CustomerID: req.CustomerID, Items: items}
}

func toOrderView(o domain.Order) orderView {
	items := make([]orderItemView, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemView{
			ID:          item.ID,
			ProductID:   item.ProductID,
			Description: item.Description,
			Qty:         item.Qty,
			PriceMinor:  item.PriceMinor,
		})
	}
	return orderView{
		ID:          o.ID,
		CustomerID:  o.CustomerID,
		Status:      string(o.Status),
		AmountMinor: o.AmountMinor,
		Version:     o.Version,
		PlacedAt:    o.PlacedAt,
		Items:       items,
	}
}

func toDetailsView(details order.Details) orderDetailsView {
	history := make([]statusChangeView, 0, len(details.History))
	for _, change := range details.History {
		history = append(history, statusChangeView{
			From:     string(change.From),
			To:       string(change.To),
			Occurred: change.Occurred,
		})
	}
	return orderDetailsView{
		orderView: toOrderView(details.Order),
		Customer: customerView{
			ID:    details.Customer.ID,
			Name:  details.Customer.Name,
			TaxID: details.Customer.TaxID,
		},
		History: history,
	}
}
