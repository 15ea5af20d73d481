package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type statusHistoryRepository struct {
	q   querier
	ctx context.Context
}

// NewStatusHistoryRepository создаёт PostgreSQL-реализацию StatusHistoryRepository.
func NewStatusHistoryRepository(store *Store) domain.StatusHistoryRepository {
	return &statusHistoryRepository{q: store.DB()}
}

func (r *statusHistoryRepository) opCtx() (context.Context, context.CancelFunc) {
	if r.ctx != nil {
		return r.ctx, func() {}
	}
	return context.WithTimeout(context.Background(), opTimeout)
}

func (r *statusHistoryRepository) Append(change domain.StatusChange) error {
	ctx, cancel := r.opCtx()
	defer cancel()

	if change.Occurred.IsZero() {
		change.Occurred = time.Now().UTC()
	}

	if _, err := r.q.ExecContext(ctx, `
		INSERT INTO order_status_history (order_id, from_status, to_status, occurred)
		VALUES ($1,$2,$3,$4)
	`, change.OrderID, string(change.From), string(change.To), change.Occurred); err != nil {
		return fmt.Errorf("append status change: %w", err)
	}

	return nil
}

func (r *statusHistoryRepository) List(orderID string) ([]domain.StatusChange, error) {
	ctx, cancel := r.opCtx()
	defer cancel()

	rows, err := r.q.QueryContext(ctx, `
		SELECT order_id, from_status, to_status, occurred
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY occurred ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list status changes: %w", err)
	}
	defer rows.Close()

	changes := make([]domain.StatusChange, 0)
	for rows.Next() {
		var (
			change   domain.StatusChange
			from, to string
		)
		if err := rows.Scan(&change.OrderID, &from, &to, &change.Occurred); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		change.From = domain.OrderStatus(from)
		change.To = domain.OrderStatus(to)
		changes = append(changes, change)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status changes: %w", err)
	}

	return changes, nil
}

var _ domain.StatusHistoryRepository = (*statusHistoryRepository)(nil)
