package dto_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderview/orderview/internal/dto"
	"github.com/orderview/orderview/internal/entity"
)

func TestNewOrderResponse(t *testing.T) {
	orderedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	order := &entity.Order{
		ID:        1,
		Status:    entity.StatusOrdered,
		OrderedAt: orderedAt,
		Member:    &entity.Member{Name: "userA"},
		Delivery: &entity.Delivery{
			Address: entity.Address{City: "Seoul", Street: "1", Zipcode: "1111"},
		},
		Items: []*entity.OrderItem{
			{OrderPrice: 10000, Count: 1, Item: &entity.Item{Name: "JPA1 BOOK"}},
			{OrderPrice: 20000, Count: 2, Item: &entity.Item{Name: "JPA2 BOOK"}},
		},
	}

	resp := dto.NewOrderResponse(order)

	assert.Equal(t, int64(1), resp.OrderID)
	assert.Equal(t, "userA", resp.Name)
	assert.Equal(t, orderedAt, resp.OrderDate)
	assert.Equal(t, "Seoul", resp.Address.City)
	require.Len(t, resp.OrderItems, 2)
	assert.Equal(t, "JPA2 BOOK", resp.OrderItems[1].ItemName)
	assert.Equal(t, 2, resp.OrderItems[1].Count)
}

func TestNewOrderResponseToleratesMissingRelations(t *testing.T) {
	resp := dto.NewOrderResponse(&entity.Order{ID: 2, Status: entity.StatusOrdered})

	assert.Equal(t, int64(2), resp.OrderID)
	assert.Empty(t, resp.Name)
	assert.Empty(t, resp.Address.City)
	assert.NotNil(t, resp.OrderItems)
	assert.Empty(t, resp.OrderItems)
}
