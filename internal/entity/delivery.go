package entity

import "github.com/uptrace/bun"

// Delivery status values.
const (
	DeliveryReady     = "ready"
	DeliveryCompleted = "completed"
)

// Delivery records where an order ships and how far along it is.
type Delivery struct {
	bun.BaseModel `bun:"table:deliveries,alias:d"`

	ID     int64  `bun:",pk,autoincrement"`
	Status string `bun:"status,notnull"`

	Address
}
