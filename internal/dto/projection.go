package dto

import "time"

// OrderItemProjection is an order line selected straight from SQL without
// touching the entity graph. It keeps the order id so batched queries can be
// regrouped by parent.
type OrderItemProjection struct {
	OrderID    int64  `json:"order_id"`
	ItemName   string `json:"item_name"`
	OrderPrice int64  `json:"order_price"`
	Count      int    `json:"count"`
}

// OrderProjection is an order header selected straight from SQL. Items are
// attached by a second query or by in-memory grouping, depending on the
// fetch strategy.
type OrderProjection struct {
	OrderID     int64                 `json:"order_id"`
	Name        string                `json:"name"`
	OrderDate   time.Time             `json:"order_date"`
	OrderStatus string                `json:"order_status"`
	Address     AddressResponse       `json:"address"`
	OrderItems  []OrderItemProjection `json:"order_items"`
}
