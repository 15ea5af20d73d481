package domain

// Customer описывает клиента. Данные принадлежат внешнему сервису клиентов,
// заказ хранит только ссылку по CustomerID.
type Customer struct {
	ID    string
	Name  string
	TaxID string
}

// Product описывает товар каталога. Цена хранится в минимальных денежных
// единицах, чтобы не терять точность на плавающей запятой.
type Product struct {
	ID          string
	Description string
	PriceMinor  int64
}

// StockEntry хранит текущий остаток товара на складе.
// Инвариант: Quantity никогда не уходит в минус.
type StockEntry struct {
	ProductID string
	Quantity  int64
}
