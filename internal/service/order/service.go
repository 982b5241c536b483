package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/orderview/orderview/internal/cache"
	"github.com/orderview/orderview/internal/config"
	"github.com/orderview/orderview/internal/dto"
	"github.com/orderview/orderview/internal/entity"
	"github.com/orderview/orderview/internal/messaging"
	repo "github.com/orderview/orderview/internal/repository/order"
	"github.com/orderview/orderview/internal/repository/orderquery"
	"github.com/orderview/orderview/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/orderview/orderview/service/order")

// Repository is the entity-loading side of order persistence.
type Repository interface {
	FindAll(ctx context.Context) ([]*entity.Order, error)
	FindAllWithItems(ctx context.Context) ([]*entity.Order, error)
	FindAllWithMemberDelivery(ctx context.Context, offset, limit int) ([]*entity.Order, error)
	OrderItemsByOrderID(ctx context.Context, orderID int64) ([]*entity.OrderItem, error)
	OrderItemsByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64][]*entity.OrderItem, error)
	MemberByID(ctx context.Context, id int64) (*entity.Member, error)
	DeliveryByID(ctx context.Context, id int64) (*entity.Delivery, error)
	ItemByID(ctx context.Context, id int64) (*entity.Item, error)
	ItemsByIDs(ctx context.Context, ids []int64) ([]*entity.Item, error)
	GetByID(ctx context.Context, id int64) (*entity.Order, error)
	CreateOrder(ctx context.Context, order *entity.Order, adjustments []repo.StockAdjustment) error
	CancelOrder(ctx context.Context, order *entity.Order, adjustments []repo.StockAdjustment) error
}

// QueryRepository is the projection side of order persistence.
type QueryRepository interface {
	Orders(ctx context.Context) ([]dto.OrderProjection, error)
	OrderItems(ctx context.Context, orderID int64) ([]dto.OrderItemProjection, error)
	OrderItemsByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64][]dto.OrderItemProjection, error)
	FlatRows(ctx context.Context) ([]orderquery.FlatRow, error)
}

// Service exposes the order fetch strategies and the write operations.
type Service struct {
	repo      Repository
	query     QueryRepository
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Query      *orderquery.Repository
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
	Publisher  messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:      p.Repository,
		query:     p.Query,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		logger:    p.Logger,
		publisher: p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
	}
}

// ListDetailed resolves every relation row by row: one query for the order
// roots, then one query per member, delivery, item list, and catalog item.
// This is the N+1 baseline the other strategies improve on.
func (s *Service) ListDetailed(ctx context.Context) ([]dto.OrderResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListDetailed")
	defer span.End()

	orders, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, s.internal(span, "failed to load orders", err)
	}

	for _, order := range orders {
		if err := s.loadGraph(ctx, order); err != nil {
			return nil, s.internal(span, "failed to load order graph", err)
		}
	}
	return toResponses(orders), nil
}

// ListJoined loads everything in a single join, deduplicated in memory.
func (s *Service) ListJoined(ctx context.Context) ([]dto.OrderResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListJoined")
	defer span.End()

	orders, err := s.repo.FindAllWithItems(ctx)
	if err != nil {
		return nil, s.internal(span, "failed to load orders", err)
	}
	return toResponses(orders), nil
}

// ListPaged pages order roots with their to-one relations joined, then
// attaches the lines from IN-clause batches. Two queries per page regardless
// of page size. A zero limit is an empty page; it never reaches the
// database, where an absent LIMIT clause would read the whole table.
func (s *Service) ListPaged(ctx context.Context, offset, limit int) ([]dto.OrderResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListPaged",
		trace.WithAttributes(attribute.Int("offset", offset), attribute.Int("limit", limit)))
	defer span.End()

	if limit <= 0 {
		return []dto.OrderResponse{}, nil
	}

	orders, err := s.repo.FindAllWithMemberDelivery(ctx, offset, limit)
	if err != nil {
		return nil, s.internal(span, "failed to load orders", err)
	}
	if len(orders) == 0 {
		return []dto.OrderResponse{}, nil
	}

	grouped, err := s.repo.OrderItemsByOrderIDs(ctx, orderIDs(orders))
	if err != nil {
		return nil, s.internal(span, "failed to load order items", err)
	}
	for _, order := range orders {
		order.Items = grouped[order.ID]
	}
	return toResponses(orders), nil
}

// ListProjected selects view rows directly: one header query, then one line
// query per order.
func (s *Service) ListProjected(ctx context.Context) ([]dto.OrderProjection, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListProjected")
	defer span.End()

	orders, err := s.query.Orders(ctx)
	if err != nil {
		return nil, s.internal(span, "failed to load order projections", err)
	}
	for i := range orders {
		items, err := s.query.OrderItems(ctx, orders[i].OrderID)
		if err != nil {
			return nil, s.internal(span, "failed to load line projections", err)
		}
		orders[i].OrderItems = items
	}
	return orders, nil
}

// ListProjectedBatch selects view rows with exactly two queries: headers,
// then all lines in one IN clause, regrouped in memory.
func (s *Service) ListProjectedBatch(ctx context.Context) ([]dto.OrderProjection, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListProjectedBatch")
	defer span.End()

	orders, err := s.query.Orders(ctx)
	if err != nil {
		return nil, s.internal(span, "failed to load order projections", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]int64, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.OrderID)
	}
	grouped, err := s.query.OrderItemsByOrderIDs(ctx, ids)
	if err != nil {
		return nil, s.internal(span, "failed to load line projections", err)
	}
	for i := range orders {
		if items, ok := grouped[orders[i].OrderID]; ok {
			orders[i].OrderItems = items
		}
	}
	return orders, nil
}

// ListProjectedFlat selects the whole dataset in one flat join and regroups
// it in memory. One query, at the cost of shipping duplicated header columns.
func (s *Service) ListProjectedFlat(ctx context.Context) ([]dto.OrderProjection, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListProjectedFlat")
	defer span.End()

	rows, err := s.query.FlatRows(ctx)
	if err != nil {
		return nil, s.internal(span, "failed to load flat projections", err)
	}
	return orderquery.GroupFlatRows(rows), nil
}

// Get retrieves one order view by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id int64) (*dto.OrderResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if view, err := s.getFromCache(ctx, id); err == nil {
		return view, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		if s.logger != nil {
			s.logger.Warn("orders cache read failed", zap.Int64("id", id), zap.Error(err))
		}
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		return nil, s.internal(span, "failed to load order", err)
	}

	view := dto.NewOrderResponse(order)
	s.storeInCache(ctx, &view)
	return &view, nil
}

// OrderLine is one requested line of a new order.
type OrderLine struct {
	ItemID int64 `json:"item_id"`
	Count  int   `json:"count"`
}

// CreateOrderInput carries everything needed to place an order.
type CreateOrderInput struct {
	MemberID int64       `json:"member_id"`
	Lines    []OrderLine `json:"lines"`
}

// Create places a new order: snapshots item prices, decrements stock, ships
// to the member's address, and publishes an order event.
func (s *Service) Create(ctx context.Context, input CreateOrderInput) (*dto.OrderResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Create",
		trace.WithAttributes(attribute.Int64("member.id", input.MemberID), attribute.Int("lines", len(input.Lines))))
	defer span.End()

	if input.MemberID <= 0 || len(input.Lines) == 0 {
		return nil, errorbank.BadRequest("member_id and at least one line are required")
	}
	for _, line := range input.Lines {
		if line.ItemID <= 0 || line.Count <= 0 {
			return nil, errorbank.BadRequest("every line needs an item_id and a positive count")
		}
	}

	member, err := s.repo.MemberByID(ctx, input.MemberID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.BadRequest("unknown member", errorbank.WithDetail("member_id", input.MemberID))
		}
		return nil, s.internal(span, "failed to load member", err)
	}

	itemIDs := make([]int64, 0, len(input.Lines))
	for _, line := range input.Lines {
		itemIDs = append(itemIDs, line.ItemID)
	}
	items, err := s.repo.ItemsByIDs(ctx, itemIDs)
	if err != nil {
		return nil, s.internal(span, "failed to load items", err)
	}
	itemsByID := make(map[int64]*entity.Item, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
	}

	order := &entity.Order{
		MemberID:  member.ID,
		Status:    entity.StatusOrdered,
		OrderedAt: time.Now().UTC(),
		Member:    member,
		Delivery: &entity.Delivery{
			Status:  entity.DeliveryReady,
			Address: member.Address,
		},
	}

	adjustments := make([]repo.StockAdjustment, 0, len(input.Lines))
	for _, line := range input.Lines {
		item, ok := itemsByID[line.ItemID]
		if !ok {
			return nil, errorbank.BadRequest("unknown item", errorbank.WithDetail("item_id", line.ItemID))
		}
		if !item.RemoveStock(line.Count) {
			return nil, errorbank.Unprocessable("insufficient stock",
				errorbank.WithDetail("item_id", item.ID),
				errorbank.WithDetail("available", item.StockQuantity))
		}
		adjustments = append(adjustments, repo.StockAdjustment{ItemID: item.ID, Delta: -line.Count})
		order.Items = append(order.Items, &entity.OrderItem{
			ItemID:     item.ID,
			OrderPrice: item.Price,
			Count:      line.Count,
			Item:       item,
		})
	}

	if err := s.repo.CreateOrder(ctx, order, adjustments); err != nil {
		if errors.Is(err, repo.ErrInsufficientStock) {
			return nil, errorbank.Unprocessable("insufficient stock")
		}
		return nil, s.internal(span, "failed to create order", err)
	}

	view := dto.NewOrderResponse(order)
	s.storeInCache(ctx, &view)
	s.publishEvent(ctx, EventOrderCreated, order)
	return &view, nil
}

// Cancel cancels an order and restores the ordered quantities to stock.
// Completed deliveries cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Cancel", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errorbank.NotFound("order not found")
		}
		return s.internal(span, "failed to load order", err)
	}
	if order.Status == entity.StatusCancelled {
		return errorbank.Conflict("order already cancelled")
	}
	if order.Delivery != nil && order.Delivery.Status == entity.DeliveryCompleted {
		return errorbank.Unprocessable("delivered orders cannot be cancelled")
	}

	adjustments := make([]repo.StockAdjustment, 0, len(order.Items))
	for _, line := range order.Items {
		adjustments = append(adjustments, repo.StockAdjustment{ItemID: line.ItemID, Delta: line.Count})
	}

	order.Status = entity.StatusCancelled
	if err := s.repo.CancelOrder(ctx, order, adjustments); err != nil {
		if errors.Is(err, repo.ErrAlreadyCancelled) {
			return errorbank.Conflict("order already cancelled")
		}
		return s.internal(span, "failed to cancel order", err)
	}

	s.evictFromCache(ctx, id)
	s.publishEvent(ctx, EventOrderCancelled, order)
	return nil
}

// loadGraph resolves the relations of one order with separate queries,
// including one catalog query per line.
func (s *Service) loadGraph(ctx context.Context, order *entity.Order) error {
	member, err := s.repo.MemberByID(ctx, order.MemberID)
	if err != nil {
		return err
	}
	order.Member = member

	delivery, err := s.repo.DeliveryByID(ctx, order.DeliveryID)
	if err != nil {
		return err
	}
	order.Delivery = delivery

	lines, err := s.repo.OrderItemsByOrderID(ctx, order.ID)
	if err != nil {
		return err
	}
	for _, line := range lines {
		item, err := s.repo.ItemByID(ctx, line.ItemID)
		if err != nil {
			return err
		}
		line.Item = item
	}
	order.Items = lines
	return nil
}

func (s *Service) internal(span trace.Span, message string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "repository error")
	return errorbank.Internal(message, errorbank.WithCause(err))
}

func (s *Service) publishEvent(ctx context.Context, eventType string, order *entity.Order) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	event := OrderEvent{
		Type:       eventType,
		OrderID:    order.ID,
		Status:     order.Status,
		TotalPrice: order.TotalPrice(),
		OccurredAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("marshal order event", zap.Error(err))
		}
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("order-%d", order.ID)), payload); err != nil {
		if s.logger != nil {
			s.logger.Error("publish order event", zap.String("type", eventType), zap.Error(err))
		}
	}
}

func (s *Service) cacheKey(id int64) string {
	return fmt.Sprintf("orders:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*dto.OrderResponse, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil {
		return nil, err
	}
	var view dto.OrderResponse
	if err := json.Unmarshal(bytes, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *Service) storeInCache(ctx context.Context, view *dto.OrderResponse) {
	if s.cache == nil || view == nil {
		return
	}
	bytes, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(view.OrderID), bytes, s.cacheTTL); err != nil {
		if s.logger != nil {
			s.logger.Warn("orders cache write failed", zap.Int64("id", view.OrderID), zap.Error(err))
		}
	}
}

func (s *Service) evictFromCache(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cacheKey(id)); err != nil {
		if s.logger != nil {
			s.logger.Warn("orders cache evict failed", zap.Int64("id", id), zap.Error(err))
		}
	}
}

func orderIDs(orders []*entity.Order) []int64 {
	ids := make([]int64, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID)
	}
	return ids
}

func toResponses(orders []*entity.Order) []dto.OrderResponse {
	responses := make([]dto.OrderResponse, 0, len(orders))
	for _, order := range orders {
		responses = append(responses, dto.NewOrderResponse(order))
	}
	return responses
}
