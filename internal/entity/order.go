package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Order status values.
const (
	StatusOrdered   = "ordered"
	StatusCancelled = "cancelled"
)

// Order represents a purchase order stored in the relational database.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID         int64     `bun:",pk,autoincrement"`
	MemberID   int64     `bun:"member_id,notnull"`
	DeliveryID int64     `bun:"delivery_id,notnull"`
	Status     string    `bun:"status,notnull"`
	OrderedAt  time.Time `bun:"ordered_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`

	Member   *Member      `bun:"rel:belongs-to,join:member_id=id"`
	Delivery *Delivery    `bun:"rel:belongs-to,join:delivery_id=id"`
	Items    []*OrderItem `bun:"rel:has-many,join:id=order_id"`
}

// TotalPrice sums order line prices. Items must be loaded.
func (o *Order) TotalPrice() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.OrderPrice * int64(item.Count)
	}
	return total
}

// OrderItem is a single line of an order. OrderPrice snapshots the item
// price at purchase time, so later catalog changes do not affect it.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	ID         int64 `bun:",pk,autoincrement"`
	OrderID    int64 `bun:"order_id,notnull"`
	ItemID     int64 `bun:"item_id,notnull"`
	OrderPrice int64 `bun:"order_price,notnull"`
	Count      int   `bun:"count,notnull"`

	Item *Item `bun:"rel:belongs-to,join:item_id=id"`
}
