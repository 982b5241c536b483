package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleOrdersDeduplicatesByOrderID(t *testing.T) {
	orderedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []flatOrderRow{
		{
			OrderID: 1, OrderStatus: "ordered", OrderedAt: orderedAt,
			MemberID: 10, MemberName: "userA", MemberCity: "Seoul",
			DeliveryID: 20, DeliveryStatus: "ready", DeliveryCity: "Seoul",
			OrderItemID: 100, OrderPrice: 10000, Count: 1,
			ItemID: 200, ItemName: "JPA1 BOOK", ItemPrice: 10000,
		},
		{
			OrderID: 1, OrderStatus: "ordered", OrderedAt: orderedAt,
			MemberID: 10, MemberName: "userA", MemberCity: "Seoul",
			DeliveryID: 20, DeliveryStatus: "ready", DeliveryCity: "Seoul",
			OrderItemID: 101, OrderPrice: 20000, Count: 2,
			ItemID: 201, ItemName: "JPA2 BOOK", ItemPrice: 20000,
		},
		{
			OrderID: 2, OrderStatus: "ordered", OrderedAt: orderedAt,
			MemberID: 11, MemberName: "userB", MemberCity: "Jinju",
			DeliveryID: 21, DeliveryStatus: "ready", DeliveryCity: "Jinju",
			OrderItemID: 102, OrderPrice: 20000, Count: 3,
			ItemID: 202, ItemName: "SPRING1 BOOK", ItemPrice: 20000,
		},
	}

	orders := assembleOrders(rows)

	require.Len(t, orders, 2)

	first := orders[0]
	assert.Equal(t, int64(1), first.ID)
	require.NotNil(t, first.Member)
	assert.Equal(t, "userA", first.Member.Name)
	require.NotNil(t, first.Delivery)
	assert.Equal(t, "Seoul", first.Delivery.City)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "JPA1 BOOK", first.Items[0].Item.Name)
	assert.Equal(t, "JPA2 BOOK", first.Items[1].Item.Name)
	assert.Equal(t, int64(50000), first.TotalPrice())

	second := orders[1]
	assert.Equal(t, int64(2), second.ID)
	require.Len(t, second.Items, 1)
	assert.Equal(t, 3, second.Items[0].Count)
}

func TestAssembleOrdersPreservesRowOrder(t *testing.T) {
	rows := []flatOrderRow{
		{OrderID: 3, OrderItemID: 1},
		{OrderID: 1, OrderItemID: 2},
		{OrderID: 3, OrderItemID: 3},
		{OrderID: 2, OrderItemID: 4},
	}

	orders := assembleOrders(rows)

	require.Len(t, orders, 3)
	assert.Equal(t, int64(3), orders[0].ID)
	assert.Equal(t, int64(1), orders[1].ID)
	assert.Equal(t, int64(2), orders[2].ID)
	assert.Len(t, orders[0].Items, 2)
}

func TestAssembleOrdersEmpty(t *testing.T) {
	assert.Empty(t, assembleOrders(nil))
}

func TestChunkIDs(t *testing.T) {
	ids := []int64{1, 2, 3, 4, 5}

	chunks := chunkIDs(ids, 2)
	require.Len(t, chunks, 3)
	assert.Equal(t, []int64{1, 2}, chunks[0])
	assert.Equal(t, []int64{3, 4}, chunks[1])
	assert.Equal(t, []int64{5}, chunks[2])

	assert.Len(t, chunkIDs(ids, 10), 1)
	assert.Len(t, chunkIDs(ids, 0), 1)
	assert.Nil(t, chunkIDs(nil, 2))
}
