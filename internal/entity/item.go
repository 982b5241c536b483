package entity

import "github.com/uptrace/bun"

// Item is a sellable catalog entry.
type Item struct {
	bun.BaseModel `bun:"table:items,alias:i"`

	ID            int64  `bun:",pk,autoincrement"`
	Name          string `bun:"name,notnull"`
	Price         int64  `bun:"price,notnull"`
	StockQuantity int    `bun:"stock_quantity,notnull"`
}

// RemoveStock decrements stock, reporting whether enough was available.
func (i *Item) RemoveStock(count int) bool {
	if count <= 0 || i.StockQuantity < count {
		return false
	}
	i.StockQuantity -= count
	return true
}

// AddStock returns previously ordered quantity to the catalog.
func (i *Item) AddStock(count int) {
	if count > 0 {
		i.StockQuantity += count
	}
}
