package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type customerDirectory struct {
	db *sql.DB
}

// NewCustomerDirectory создаёт PostgreSQL-реализацию CustomerDirectory.
func NewCustomerDirectory(store *Store) domain.CustomerDirectory {
	return &customerDirectory{db: store.DB()}
}

func (d *customerDirectory) FindCustomer(id string) (domain.Customer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var customer domain.Customer
	err := d.db.QueryRowContext(ctx, `
		SELECT id, name, tax_id
		FROM customers
		WHERE id = $1
	`, id).Scan(&customer.ID, &customer.Name, &customer.TaxID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, fmt.Errorf("select customer: %w", err)
	}

	return customer, nil
}

type productCatalog struct {
	db *sql.DB
}

// NewProductCatalog создаёт PostgreSQL-реализацию ProductCatalog.
func NewProductCatalog(store *Store) domain.ProductCatalog {
	return &productCatalog{db: store.DB()}
}

func (c *productCatalog) FindProduct(id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var product domain.Product
	err := c.db.QueryRowContext(ctx, `
		SELECT id, description, price_minor
		FROM products
		WHERE id = $1
	`, id).Scan(&product.ID, &product.Description, &product.PriceMinor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}

	return product, nil
}

var (
	_ domain.CustomerDirectory = (*customerDirectory)(nil)
	_ domain.ProductCatalog    = (*productCatalog)(nil)
)
