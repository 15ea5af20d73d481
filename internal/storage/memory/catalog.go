package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// CustomerDirectory — in-memory справочник клиентов (dev-режим и тесты).
// В production его место занимает клиент внешнего сервиса клиентов.
type CustomerDirectory struct {
	mu    sync.RWMutex
	items map[string]domain.Customer
}

// NewCustomerDirectory создаёт пустой справочник клиентов.
func NewCustomerDirectory() *CustomerDirectory {
	return &CustomerDirectory{items: make(map[string]domain.Customer)}
}

// Put добавляет или заменяет карточку клиента.
func (d *CustomerDirectory) Put(customer domain.Customer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items[customer.ID] = customer
}

// FindCustomer возвращает клиента или ErrCustomerNotFound.
func (d *CustomerDirectory) FindCustomer(id string) (domain.Customer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	customer, ok := d.items[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

// ProductCatalog — in-memory каталог товаров (dev-режим и тесты).
type ProductCatalog struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewProductCatalog создаёт пустой каталог.
func NewProductCatalog() *ProductCatalog {
	return &ProductCatalog{items: make(map[string]domain.Product)}
}

// Put добавляет или заменяет товар.
func (c *ProductCatalog) Put(product domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[product.ID] = product
}

// FindProduct возвращает товар или ErrProductNotFound.
func (c *ProductCatalog) FindProduct(id string) (domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	product, ok := c.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

var (
	_ domain.CustomerDirectory = (*CustomerDirectory)(nil)
	_ domain.ProductCatalog    = (*ProductCatalog)(nil)
)
