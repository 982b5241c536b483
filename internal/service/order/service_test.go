package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orderview/orderview/internal/cache"
	"github.com/orderview/orderview/internal/dto"
	"github.com/orderview/orderview/internal/entity"
	repo "github.com/orderview/orderview/internal/repository/order"
	"github.com/orderview/orderview/internal/repository/orderquery"
	"github.com/orderview/orderview/pkg/errorbank"
)

type fakeRepo struct {
	orders     []*entity.Order
	members    map[int64]*entity.Member
	deliveries map[int64]*entity.Delivery
	items      map[int64]*entity.Item
	lines      map[int64][]*entity.OrderItem
	graphs     map[int64]*entity.Order

	pagedOffset int
	pagedLimit  int
	pagedCalls  int
	getCalls    int
	created     *entity.Order
	cancelled   *entity.Order
	adjustments []repo.StockAdjustment
	createErr   error
	cancelErr   error
}

func (f *fakeRepo) FindAll(context.Context) ([]*entity.Order, error) { return f.orders, nil }

func (f *fakeRepo) FindAllWithItems(context.Context) ([]*entity.Order, error) { return f.orders, nil }

func (f *fakeRepo) FindAllWithMemberDelivery(_ context.Context, offset, limit int) ([]*entity.Order, error) {
	f.pagedOffset = offset
	f.pagedLimit = limit
	f.pagedCalls++
	return f.orders, nil
}

func (f *fakeRepo) OrderItemsByOrderID(_ context.Context, orderID int64) ([]*entity.OrderItem, error) {
	return f.lines[orderID], nil
}

func (f *fakeRepo) OrderItemsByOrderIDs(_ context.Context, orderIDs []int64) (map[int64][]*entity.OrderItem, error) {
	grouped := make(map[int64][]*entity.OrderItem)
	for _, id := range orderIDs {
		if items, ok := f.lines[id]; ok {
			grouped[id] = items
		}
	}
	return grouped, nil
}

func (f *fakeRepo) MemberByID(_ context.Context, id int64) (*entity.Member, error) {
	member, ok := f.members[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return member, nil
}

func (f *fakeRepo) DeliveryByID(_ context.Context, id int64) (*entity.Delivery, error) {
	delivery, ok := f.deliveries[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return delivery, nil
}

func (f *fakeRepo) ItemByID(_ context.Context, id int64) (*entity.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return item, nil
}

func (f *fakeRepo) ItemsByIDs(_ context.Context, ids []int64) ([]*entity.Item, error) {
	var items []*entity.Item
	for _, id := range ids {
		if item, ok := f.items[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64) (*entity.Order, error) {
	f.getCalls++
	order, ok := f.graphs[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return order, nil
}

func (f *fakeRepo) CreateOrder(_ context.Context, order *entity.Order, adjustments []repo.StockAdjustment) error {
	if f.createErr != nil {
		return f.createErr
	}
	order.ID = 42
	f.created = order
	f.adjustments = adjustments
	return nil
}

func (f *fakeRepo) CancelOrder(_ context.Context, order *entity.Order, adjustments []repo.StockAdjustment) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = order
	f.adjustments = adjustments
	for _, adj := range adjustments {
		if item, ok := f.items[adj.ItemID]; ok {
			item.AddStock(adj.Delta)
		}
	}
	return nil
}

type fakeQuery struct {
	heads   []dto.OrderProjection
	lines   map[int64][]dto.OrderItemProjection
	flats   []orderquery.FlatRow
	batched bool
}

func (f *fakeQuery) Orders(context.Context) ([]dto.OrderProjection, error) {
	out := make([]dto.OrderProjection, len(f.heads))
	copy(out, f.heads)
	return out, nil
}

func (f *fakeQuery) OrderItems(_ context.Context, orderID int64) ([]dto.OrderItemProjection, error) {
	return f.lines[orderID], nil
}

func (f *fakeQuery) OrderItemsByOrderIDs(_ context.Context, orderIDs []int64) (map[int64][]dto.OrderItemProjection, error) {
	f.batched = true
	grouped := make(map[int64][]dto.OrderItemProjection)
	for _, id := range orderIDs {
		if items, ok := f.lines[id]; ok {
			grouped[id] = items
		}
	}
	return grouped, nil
}

func (f *fakeQuery) FlatRows(context.Context) ([]orderquery.FlatRow, error) { return f.flats, nil }

type memoryCache struct {
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := m.data[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return value, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func newTestService(r Repository, q QueryRepository, store cache.Store) *Service {
	return &Service{
		repo:     r,
		query:    q,
		cache:    store,
		cacheTTL: time.Minute,
		logger:   zap.NewNop(),
	}
}

func sampleGraph() (*fakeRepo, *entity.Order) {
	item := &entity.Item{ID: 7, Name: "JPA1 BOOK", Price: 10000, StockQuantity: 10}
	order := &entity.Order{
		ID:         1,
		MemberID:   10,
		DeliveryID: 20,
		Status:     entity.StatusOrdered,
		OrderedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Member:     &entity.Member{ID: 10, Name: "userA", Address: entity.Address{City: "Seoul"}},
		Delivery:   &entity.Delivery{ID: 20, Status: entity.DeliveryReady, Address: entity.Address{City: "Seoul"}},
		Items: []*entity.OrderItem{
			{ID: 100, OrderID: 1, ItemID: 7, OrderPrice: 10000, Count: 2, Item: item},
		},
	}
	return &fakeRepo{
		orders:     []*entity.Order{{ID: 1, MemberID: 10, DeliveryID: 20, Status: entity.StatusOrdered}},
		members:    map[int64]*entity.Member{10: order.Member},
		deliveries: map[int64]*entity.Delivery{20: order.Delivery},
		items:      map[int64]*entity.Item{7: item},
		lines:      map[int64][]*entity.OrderItem{1: order.Items},
		graphs:     map[int64]*entity.Order{1: order},
	}, order
}

func TestListDetailedResolvesRelationsRowByRow(t *testing.T) {
	fake, _ := sampleGraph()
	svc := newTestService(fake, &fakeQuery{}, newMemoryCache())

	orders, err := svc.ListDetailed(context.Background())

	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "userA", orders[0].Name)
	assert.Equal(t, "Seoul", orders[0].Address.City)
	require.Len(t, orders[0].OrderItems, 1)
	assert.Equal(t, "JPA1 BOOK", orders[0].OrderItems[0].ItemName)
}

func TestListPagedAttachesBatchedItems(t *testing.T) {
	fake, _ := sampleGraph()
	svc := newTestService(fake, &fakeQuery{}, newMemoryCache())

	orders, err := svc.ListPaged(context.Background(), 5, 50)

	require.NoError(t, err)
	assert.Equal(t, 5, fake.pagedOffset)
	assert.Equal(t, 50, fake.pagedLimit)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].OrderItems, 1)
	assert.Equal(t, int64(10000), orders[0].OrderItems[0].OrderPrice)
}

func TestListPagedZeroLimit(t *testing.T) {
	fake, _ := sampleGraph()
	svc := newTestService(fake, &fakeQuery{}, newMemoryCache())

	orders, err := svc.ListPaged(context.Background(), 5, 0)

	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
	assert.Zero(t, fake.pagedCalls)
}

func TestListProjectedBatchUsesSingleBatch(t *testing.T) {
	query := &fakeQuery{
		heads: []dto.OrderProjection{
			{OrderID: 1, Name: "userA"},
			{OrderID: 2, Name: "userB"},
		},
		lines: map[int64][]dto.OrderItemProjection{
			1: {{OrderID: 1, ItemName: "JPA1 BOOK", OrderPrice: 10000, Count: 1}},
		},
	}
	svc := newTestService(&fakeRepo{}, query, newMemoryCache())

	orders, err := svc.ListProjectedBatch(context.Background())

	require.NoError(t, err)
	assert.True(t, query.batched)
	require.Len(t, orders, 2)
	assert.Len(t, orders[0].OrderItems, 1)
	assert.Empty(t, orders[1].OrderItems)
}

func TestListProjectedFlatGroupsRows(t *testing.T) {
	query := &fakeQuery{
		flats: []orderquery.FlatRow{
			{OrderID: 1, Name: "userA", ItemName: "JPA1 BOOK"},
			{OrderID: 1, Name: "userA", ItemName: "JPA2 BOOK"},
		},
	}
	svc := newTestService(&fakeRepo{}, query, newMemoryCache())

	orders, err := svc.ListProjectedFlat(context.Background())

	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Len(t, orders[0].OrderItems, 2)
}

func TestGetServesFromCacheOnSecondRead(t *testing.T) {
	fake, _ := sampleGraph()
	svc := newTestService(fake, &fakeQuery{}, newMemoryCache())

	first, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	second, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, fake.getCalls)
	assert.Equal(t, first.OrderID, second.OrderID)
}

func TestGetUnknownOrder(t *testing.T) {
	svc := newTestService(&fakeRepo{graphs: map[int64]*entity.Order{}}, &fakeQuery{}, newMemoryCache())

	_, err := svc.Get(context.Background(), 99)

	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestCreateSnapshotsPriceAndDecrementsStock(t *testing.T) {
	fake, _ := sampleGraph()
	svc := newTestService(fake, &fakeQuery{}, newMemoryCache())

	view, err := svc.Create(context.Background(), CreateOrderInput{
		MemberID: 10,
		Lines:    []OrderLine{{ItemID: 7, Count: 3}},
	})

	require.NoError(t, err)
	require.NotNil(t, fake.created)
	assert.Equal(t, entity.StatusOrdered, fake.created.Status)
	require.Len(t, fake.created.Items, 1)
	assert.Equal(t, int64(10000), fake.created.Items[0].OrderPrice)
	assert.Equal(t, 7, fake.items[7].StockQuantity)
	require.Len(t, fake.adjustments, 1)
	assert.Equal(t, repo.StockAdjustment{ItemID: 7, Delta: -3}, fake.adjustments[0])
	assert.Equal(t, "Seoul", view.Address.City)
	assert.Equal(t, int64(42), view.OrderID)
}

func TestCreateRejectsUnknownMember(t *testing.T) {
	fake, _ := sampleGraph()
	svc := newTestService(fake, &fakeQuery{}, newMemoryCache())

	_, err := svc.Create(context.Background(), CreateOrderInput{
		MemberID: 999,
		Lines:    []OrderLine{{ItemID: 7, Count: 1}},
	})

	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestCreateRejectsInsufficientStock(t *testing.T) {
	fake, _ := sampleGraph()
	svc := newTestService(fake, &fakeQuery{}, newMemoryCache())

	_, err := svc.Create(context.Background(), CreateOrderInput{
		MemberID: 10,
		Lines:    []OrderLine{{ItemID: 7, Count: 11}},
	})

	require.Error(t, err)
	assert.Equal(t, errorbank.KindUnprocessableEntity, errorbank.From(err).Kind())
	assert.Nil(t, fake.created)
}

func TestCreateValidatesInput(t *testing.T) {
	svc := newTestService(&fakeRepo{}, &fakeQuery{}, newMemoryCache())

	_, err := svc.Create(context.Background(), CreateOrderInput{})
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())

	_, err = svc.Create(context.Background(), CreateOrderInput{
		MemberID: 1,
		Lines:    []OrderLine{{ItemID: 7, Count: 0}},
	})
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestCancelRestoresStockAndEvictsCache(t *testing.T) {
	fake, order := sampleGraph()
	store := newMemoryCache()
	store.data["orders:1"] = []byte(`{}`)
	svc := newTestService(fake, &fakeQuery{}, store)

	err := svc.Cancel(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, entity.StatusCancelled, order.Status)
	assert.Equal(t, 12, fake.items[7].StockQuantity)
	require.NotNil(t, fake.cancelled)
	assert.NotContains(t, store.data, "orders:1")
}

func TestCancelAlreadyCancelled(t *testing.T) {
	fake, order := sampleGraph()
	order.Status = entity.StatusCancelled
	svc := newTestService(fake, &fakeQuery{}, newMemoryCache())

	err := svc.Cancel(context.Background(), 1)

	require.Error(t, err)
	assert.Equal(t, errorbank.KindConflict, errorbank.From(err).Kind())
}

func TestCancelRacingCancel(t *testing.T) {
	fake, _ := sampleGraph()
	fake.cancelErr = repo.ErrAlreadyCancelled
	svc := newTestService(fake, &fakeQuery{}, newMemoryCache())

	err := svc.Cancel(context.Background(), 1)

	require.Error(t, err)
	assert.Equal(t, errorbank.KindConflict, errorbank.From(err).Kind())
	assert.Equal(t, 10, fake.items[7].StockQuantity)
}

func TestCreateStockRace(t *testing.T) {
	fake, _ := sampleGraph()
	fake.createErr = repo.ErrInsufficientStock
	svc := newTestService(fake, &fakeQuery{}, newMemoryCache())

	_, err := svc.Create(context.Background(), CreateOrderInput{
		MemberID: 10,
		Lines:    []OrderLine{{ItemID: 7, Count: 3}},
	})

	require.Error(t, err)
	assert.Equal(t, errorbank.KindUnprocessableEntity, errorbank.From(err).Kind())
	assert.Nil(t, fake.created)
}

func TestCancelCompletedDelivery(t *testing.T) {
	fake, order := sampleGraph()
	order.Delivery.Status = entity.DeliveryCompleted
	svc := newTestService(fake, &fakeQuery{}, newMemoryCache())

	err := svc.Cancel(context.Background(), 1)

	require.Error(t, err)
	assert.Equal(t, errorbank.KindUnprocessableEntity, errorbank.From(err).Kind())
	assert.Nil(t, fake.cancelled)
}
