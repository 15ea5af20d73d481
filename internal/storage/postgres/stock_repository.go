package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type stockLedger struct {
	q   querier
	ctx context.Context
	// forUpdate включает блокировку строки при чтении остатка. Выставляется
	// только внутри транзакции коммита: там чтение и списание должны быть
	// защищены от параллельных заказов на тот же товар.
	forUpdate bool
}

// NewStockLedger создаёт PostgreSQL-реализацию StockLedger.
func NewStockLedger(store *Store) domain.StockLedger {
	return &stockLedger{q: store.DB()}
}

func (l *stockLedger) opCtx() (context.Context, context.CancelFunc) {
	if l.ctx != nil {
		return l.ctx, func() {}
	}
	return context.WithTimeout(context.Background(), opTimeout)
}

func (l *stockLedger) Get(productID string) (domain.StockEntry, error) {
	ctx, cancel := l.opCtx()
	defer cancel()

	query := `SELECT product_id, quantity FROM stock_entries WHERE product_id = $1`
	if l.forUpdate {
		query += ` FOR UPDATE`
	}

	var entry domain.StockEntry
	err := l.q.QueryRowContext(ctx, query, productID).Scan(&entry.ProductID, &entry.Quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StockEntry{}, domain.StockEntryMissingError{ProductID: productID}
		}
		return domain.StockEntry{}, fmt.Errorf("select stock entry: %w", err)
	}

	return entry, nil
}

// Decrement списывает qty единиц условным UPDATE: остаток не может уйти
// в минус даже без предварительного чтения.
func (l *stockLedger) Decrement(productID string, qty int32) error {
	ctx, cancel := l.opCtx()
	defer cancel()

	res, err := l.q.ExecContext(ctx, `
		UPDATE stock_entries
		SET quantity = quantity - $2,
		    updated_at = NOW()
		WHERE product_id = $1
		  AND quantity >= $2
	`, productID, int64(qty))
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("stock rows affected: %w", err)
	}
	if affected == 0 {
		entry, getErr := l.Get(productID)
		if getErr != nil {
			return getErr
		}
		return domain.InsufficientStockError{
			ProductID: productID,
			Available: entry.Quantity,
			Requested: int64(qty),
		}
	}

	return nil
}

// Restore возвращает qty единиц на склад.
func (l *stockLedger) Restore(productID string, qty int32) error {
	ctx, cancel := l.opCtx()
	defer cancel()

	res, err := l.q.ExecContext(ctx, `
		UPDATE stock_entries
		SET quantity = quantity + $2,
		    updated_at = NOW()
		WHERE product_id = $1
	`, productID, int64(qty))
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("stock rows affected: %w", err)
	}
	if affected == 0 {
		return domain.StockEntryMissingError{ProductID: productID}
	}

	return nil
}

var _ domain.StockLedger = (*stockLedger)(nil)
