package dto

import (
	"time"

	"github.com/orderview/orderview/internal/entity"
)

// AddressResponse mirrors the embedded address value object.
type AddressResponse struct {
	City    string `json:"city"`
	Street  string `json:"street"`
	Zipcode string `json:"zipcode"`
}

// OrderItemResponse is a single order line as exposed via transport layers.
type OrderItemResponse struct {
	ItemName   string `json:"item_name"`
	OrderPrice int64  `json:"order_price"`
	Count      int    `json:"count"`
}

// OrderResponse represents an order built from a loaded entity graph.
// The order's member, delivery, and items (with their catalog items) must be
// populated before conversion.
type OrderResponse struct {
	OrderID     int64               `json:"order_id"`
	Name        string              `json:"name"`
	OrderDate   time.Time           `json:"order_date"`
	OrderStatus string              `json:"order_status"`
	Address     AddressResponse     `json:"address"`
	OrderItems  []OrderItemResponse `json:"order_items"`
}

// NewOrderResponse flattens a fully loaded order graph into its view model.
func NewOrderResponse(order *entity.Order) OrderResponse {
	resp := OrderResponse{
		OrderID:     order.ID,
		OrderDate:   order.OrderedAt,
		OrderStatus: order.Status,
		OrderItems:  make([]OrderItemResponse, 0, len(order.Items)),
	}
	if order.Member != nil {
		resp.Name = order.Member.Name
	}
	if order.Delivery != nil {
		resp.Address = NewAddressResponse(order.Delivery.Address)
	}
	for _, line := range order.Items {
		item := OrderItemResponse{
			OrderPrice: line.OrderPrice,
			Count:      line.Count,
		}
		if line.Item != nil {
			item.ItemName = line.Item.Name
		}
		resp.OrderItems = append(resp.OrderItems, item)
	}
	return resp
}

// NewAddressResponse converts the address value object.
func NewAddressResponse(addr entity.Address) AddressResponse {
	return AddressResponse{
		City:    addr.City,
		Street:  addr.Street,
		Zipcode: addr.Zipcode,
	}
}
