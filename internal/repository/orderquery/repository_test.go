package orderquery_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderview/orderview/internal/repository/orderquery"
)

func TestGroupFlatRowsMergesLines(t *testing.T) {
	orderDate := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []orderquery.FlatRow{
		{OrderID: 1, Name: "userA", OrderDate: orderDate, OrderStatus: "ordered", City: "Seoul", ItemName: "JPA1 BOOK", OrderPrice: 10000, Count: 1},
		{OrderID: 1, Name: "userA", OrderDate: orderDate, OrderStatus: "ordered", City: "Seoul", ItemName: "JPA2 BOOK", OrderPrice: 20000, Count: 2},
		{OrderID: 2, Name: "userB", OrderDate: orderDate, OrderStatus: "ordered", City: "Jinju", ItemName: "SPRING1 BOOK", OrderPrice: 20000, Count: 3},
		{OrderID: 2, Name: "userB", OrderDate: orderDate, OrderStatus: "ordered", City: "Jinju", ItemName: "SPRING2 BOOK", OrderPrice: 40000, Count: 4},
	}

	orders := orderquery.GroupFlatRows(rows)

	require.Len(t, orders, 2)

	assert.Equal(t, int64(1), orders[0].OrderID)
	assert.Equal(t, "userA", orders[0].Name)
	assert.Equal(t, "Seoul", orders[0].Address.City)
	require.Len(t, orders[0].OrderItems, 2)
	assert.Equal(t, "JPA1 BOOK", orders[0].OrderItems[0].ItemName)
	assert.Equal(t, int64(1), orders[0].OrderItems[0].OrderID)

	assert.Equal(t, int64(2), orders[1].OrderID)
	require.Len(t, orders[1].OrderItems, 2)
	assert.Equal(t, 4, orders[1].OrderItems[1].Count)
}

func TestGroupFlatRowsPreservesFirstSeenOrder(t *testing.T) {
	rows := []orderquery.FlatRow{
		{OrderID: 9, ItemName: "a"},
		{OrderID: 4, ItemName: "b"},
		{OrderID: 9, ItemName: "c"},
	}

	orders := orderquery.GroupFlatRows(rows)

	require.Len(t, orders, 2)
	assert.Equal(t, int64(9), orders[0].OrderID)
	assert.Equal(t, int64(4), orders[1].OrderID)
	assert.Len(t, orders[0].OrderItems, 2)
	assert.Len(t, orders[1].OrderItems, 1)
}

func TestGroupFlatRowsEmpty(t *testing.T) {
	assert.Empty(t, orderquery.GroupFlatRows(nil))
}
