package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/orderview/orderview/internal/config"
	"github.com/orderview/orderview/internal/database"
	"github.com/orderview/orderview/internal/entity"
)

var repoTracer = otel.Tracer("github.com/orderview/orderview/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// ErrAlreadyCancelled is returned when a cancel loses the race against
// another cancel of the same order.
var ErrAlreadyCancelled = errors.New("order already cancelled")

// ErrInsufficientStock is returned when a stock decrement would drive an
// item's quantity below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

// Repository loads and stores order entity graphs. Each Find variant uses a
// different fetch strategy; the service picks one per endpoint.
type Repository struct {
	writer         *bun.DB
	reader         *bun.DB
	batchFetchSize int
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections, cfg config.Config) *Repository {
	return &Repository{
		writer:         conns.Writer,
		reader:         conns.Reader,
		batchFetchSize: cfg.Database.BatchFetchSize,
	}
}

// FindAll loads bare order roots with no relations. Callers that need the
// member, delivery, or items resolve them row by row via the per-row loaders.
func (r *Repository) FindAll(ctx context.Context) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.FindAll")
	defer span.End()

	var orders []*entity.Order
	if err := r.reader.NewSelect().Model(&orders).Order("o.id ASC").Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// MemberByID resolves a single member row.
func (r *Repository) MemberByID(ctx context.Context, id int64) (*entity.Member, error) {
	member := new(entity.Member)
	err := r.reader.NewSelect().Model(member).Where("m.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return member, nil
}

// DeliveryByID resolves a single delivery row.
func (r *Repository) DeliveryByID(ctx context.Context, id int64) (*entity.Delivery, error) {
	delivery := new(entity.Delivery)
	err := r.reader.NewSelect().Model(delivery).Where("d.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return delivery, nil
}

// ItemByID resolves a single catalog item row.
func (r *Repository) ItemByID(ctx context.Context, id int64) (*entity.Item, error) {
	item := new(entity.Item)
	err := r.reader.NewSelect().Model(item).Where("i.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ItemsByIDs loads catalog items for the given ids in one query.
func (r *Repository) ItemsByIDs(ctx context.Context, ids []int64) ([]*entity.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []*entity.Item
	err := r.reader.NewSelect().Model(&items).Where("i.id IN (?)", bun.In(ids)).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// OrderItemsByOrderID loads the lines of one order, without their items.
func (r *Repository) OrderItemsByOrderID(ctx context.Context, orderID int64) ([]*entity.OrderItem, error) {
	var items []*entity.OrderItem
	err := r.reader.NewSelect().Model(&items).
		Where("oi.order_id = ?", orderID).
		Order("oi.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// FindAllWithItems loads every order in a single five-way join and rebuilds
// the entity graphs in memory. The to-many join multiplies order rows by their
// line count, so the result is deduplicated by order id, the way an ORM
// dedupes a fetch join.
func (r *Repository) FindAllWithItems(ctx context.Context) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.FindAllWithItems")
	defer span.End()

	var rows []flatOrderRow
	err := r.reader.NewSelect().
		TableExpr("orders AS o").
		ColumnExpr("o.id AS order_id, o.status AS order_status, o.ordered_at AS ordered_at").
		ColumnExpr("m.id AS member_id, m.name AS member_name").
		ColumnExpr("m.city AS member_city, m.street AS member_street, m.zipcode AS member_zipcode").
		ColumnExpr("d.id AS delivery_id, d.status AS delivery_status").
		ColumnExpr("d.city AS delivery_city, d.street AS delivery_street, d.zipcode AS delivery_zipcode").
		ColumnExpr("oi.id AS order_item_id, oi.order_price AS order_price, oi.count AS count").
		ColumnExpr("i.id AS item_id, i.name AS item_name, i.price AS item_price").
		Join("JOIN members AS m ON m.id = o.member_id").
		Join("JOIN deliveries AS d ON d.id = o.delivery_id").
		Join("JOIN order_items AS oi ON oi.order_id = o.id").
		Join("JOIN items AS i ON i.id = oi.item_id").
		OrderExpr("o.id ASC, oi.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "join select failed")
		return nil, err
	}
	return assembleOrders(rows), nil
}

// FindAllWithMemberDelivery pages order roots with their to-one relations
// joined in the same query. The to-many items are left for the caller to
// batch-fetch, so paging in SQL stays correct.
func (r *Repository) FindAllWithMemberDelivery(ctx context.Context, offset, limit int) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.FindAllWithMemberDelivery",
		trace.WithAttributes(attribute.Int("offset", offset), attribute.Int("limit", limit)))
	defer span.End()

	var orders []*entity.Order
	err := r.reader.NewSelect().Model(&orders).
		Relation("Member").
		Relation("Delivery").
		Order("o.id ASC").
		Offset(offset).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// OrderItemsByOrderIDs loads the lines (with their catalog items) for a set
// of orders, grouped by order id. The IN clause is chunked so no single query
// carries more than the configured batch fetch size.
func (r *Repository) OrderItemsByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64][]*entity.OrderItem, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.OrderItemsByOrderIDs",
		trace.WithAttributes(attribute.Int("orders", len(orderIDs))))
	defer span.End()

	grouped := make(map[int64][]*entity.OrderItem, len(orderIDs))
	for _, chunk := range chunkIDs(orderIDs, r.batchFetchSize) {
		var items []*entity.OrderItem
		err := r.reader.NewSelect().Model(&items).
			Relation("Item").
			Where("oi.order_id IN (?)", bun.In(chunk)).
			Order("oi.id ASC").
			Scan(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "batch select failed")
			return nil, err
		}
		for _, item := range items {
			grouped[item.OrderID] = append(grouped[item.OrderID], item)
		}
	}
	return grouped, nil
}

// GetByID loads one order with its full graph.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).
		Relation("Member").
		Relation("Delivery").
		Relation("Items", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("oi.id ASC")
		}).
		Relation("Items.Item").
		Where("o.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// CreateOrder persists the delivery, the order, and its lines in one
// transaction, together with the stock adjustments for the touched items.
func (r *Repository) CreateOrder(ctx context.Context, order *entity.Order, adjustments []StockAdjustment) error {
	if order == nil || order.Delivery == nil || len(order.Items) == 0 {
		return errors.New("incomplete order graph")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.CreateOrder",
		trace.WithAttributes(attribute.Int("lines", len(order.Items))))
	defer span.End()

	err := r.writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(order.Delivery).Exec(ctx); err != nil {
			return err
		}
		order.DeliveryID = order.Delivery.ID
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return err
		}
		for _, line := range order.Items {
			line.OrderID = order.ID
		}
		if _, err := tx.NewInsert().Model(&order.Items).Exec(ctx); err != nil {
			return err
		}
		return adjustStock(ctx, tx, adjustments)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
	}
	return err
}

// CancelOrder marks the order cancelled and restores stock in one
// transaction. The status update only matches orders still in the ordered
// state, so concurrent cancels of the same order restore stock at most once;
// the loser gets ErrAlreadyCancelled.
func (r *Repository) CancelOrder(ctx context.Context, order *entity.Order, adjustments []StockAdjustment) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.CancelOrder",
		trace.WithAttributes(attribute.Int64("order.id", order.ID)))
	defer span.End()

	err := r.writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model(order).
			Column("status").
			WherePK().
			Where("status = ?", entity.StatusOrdered).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrAlreadyCancelled
		}
		return adjustStock(ctx, tx, adjustments)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancel failed")
	}
	return err
}

// StockAdjustment is a relative change to one item's stock quantity.
type StockAdjustment struct {
	ItemID int64
	Delta  int
}

// adjustStock applies each delta in SQL relative to the stored quantity, so
// concurrent writers cannot lose each other's updates. A decrement that would
// go negative matches no row and fails the transaction.
func adjustStock(ctx context.Context, tx bun.Tx, adjustments []StockAdjustment) error {
	for _, adj := range adjustments {
		res, err := tx.NewUpdate().
			Table("items").
			Set("stock_quantity = stock_quantity + ?", adj.Delta).
			Where("id = ?", adj.ItemID).
			Where("stock_quantity + ? >= 0", adj.Delta).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			if adj.Delta < 0 {
				return ErrInsufficientStock
			}
			return fmt.Errorf("stock adjustment matched no row for item %d", adj.ItemID)
		}
	}
	return nil
}

// chunkIDs splits ids into slices of at most size elements.
func chunkIDs(ids []int64, size int) [][]int64 {
	if len(ids) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(ids)
	}
	chunks := make([][]int64, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
