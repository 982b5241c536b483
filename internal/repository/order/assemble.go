package order

import (
	"time"

	"github.com/orderview/orderview/internal/entity"
)

// flatOrderRow is one row of the five-way join. Every order appears once per
// order line.
type flatOrderRow struct {
	OrderID     int64     `bun:"order_id"`
	OrderStatus string    `bun:"order_status"`
	OrderedAt   time.Time `bun:"ordered_at"`

	MemberID      int64  `bun:"member_id"`
	MemberName    string `bun:"member_name"`
	MemberCity    string `bun:"member_city"`
	MemberStreet  string `bun:"member_street"`
	MemberZipcode string `bun:"member_zipcode"`

	DeliveryID      int64  `bun:"delivery_id"`
	DeliveryStatus  string `bun:"delivery_status"`
	DeliveryCity    string `bun:"delivery_city"`
	DeliveryStreet  string `bun:"delivery_street"`
	DeliveryZipcode string `bun:"delivery_zipcode"`

	OrderItemID int64 `bun:"order_item_id"`
	OrderPrice  int64 `bun:"order_price"`
	Count       int   `bun:"count"`

	ItemID    int64  `bun:"item_id"`
	ItemName  string `bun:"item_name"`
	ItemPrice int64  `bun:"item_price"`
}

// assembleOrders rebuilds order entity graphs from joined rows, deduplicating
// by order id. First-seen row order is preserved, so a sorted query yields a
// sorted result.
func assembleOrders(rows []flatOrderRow) []*entity.Order {
	orders := make([]*entity.Order, 0)
	byID := make(map[int64]*entity.Order)

	for _, row := range rows {
		order, ok := byID[row.OrderID]
		if !ok {
			order = &entity.Order{
				ID:         row.OrderID,
				MemberID:   row.MemberID,
				DeliveryID: row.DeliveryID,
				Status:     row.OrderStatus,
				OrderedAt:  row.OrderedAt,
				Member: &entity.Member{
					ID:   row.MemberID,
					Name: row.MemberName,
					Address: entity.Address{
						City:    row.MemberCity,
						Street:  row.MemberStreet,
						Zipcode: row.MemberZipcode,
					},
				},
				Delivery: &entity.Delivery{
					ID:     row.DeliveryID,
					Status: row.DeliveryStatus,
					Address: entity.Address{
						City:    row.DeliveryCity,
						Street:  row.DeliveryStreet,
						Zipcode: row.DeliveryZipcode,
					},
				},
			}
			byID[row.OrderID] = order
			orders = append(orders, order)
		}

		order.Items = append(order.Items, &entity.OrderItem{
			ID:         row.OrderItemID,
			OrderID:    row.OrderID,
			ItemID:     row.ItemID,
			OrderPrice: row.OrderPrice,
			Count:      row.Count,
			Item: &entity.Item{
				ID:    row.ItemID,
				Name:  row.ItemName,
				Price: row.ItemPrice,
			},
		})
	}
	return orders
}
