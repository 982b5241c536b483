package orderquery

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/orderview/orderview/internal/database"
	"github.com/orderview/orderview/internal/dto"
)

var repoTracer = otel.Tracer("github.com/orderview/orderview/repository/orderquery")

// Repository selects order view models straight from SQL, bypassing the
// entity graph. Each method is one building block of a projection-based
// fetch strategy.
type Repository struct {
	reader *bun.DB
}

// NewRepository wires the projection repository onto the read connection.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{reader: conns.Reader}
}

type orderHeadRow struct {
	OrderID     int64     `bun:"order_id"`
	Name        string    `bun:"name"`
	OrderDate   time.Time `bun:"order_date"`
	OrderStatus string    `bun:"order_status"`
	City        string    `bun:"city"`
	Street      string    `bun:"street"`
	Zipcode     string    `bun:"zipcode"`
}

type orderItemRow struct {
	OrderID    int64  `bun:"order_id"`
	ItemName   string `bun:"item_name"`
	OrderPrice int64  `bun:"order_price"`
	Count      int    `bun:"count"`
}

// Orders selects order headers with their to-one relations in one query.
func (r *Repository) Orders(ctx context.Context) ([]dto.OrderProjection, error) {
	ctx, span := repoTracer.Start(ctx, "OrderQueryRepository.Orders")
	defer span.End()

	var rows []orderHeadRow
	err := r.reader.NewSelect().
		TableExpr("orders AS o").
		ColumnExpr("o.id AS order_id, m.name AS name, o.ordered_at AS order_date, o.status AS order_status").
		ColumnExpr("d.city AS city, d.street AS street, d.zipcode AS zipcode").
		Join("JOIN members AS m ON m.id = o.member_id").
		Join("JOIN deliveries AS d ON d.id = o.delivery_id").
		OrderExpr("o.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}

	orders := make([]dto.OrderProjection, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, headToProjection(row))
	}
	return orders, nil
}

// OrderItems selects the line projections of a single order.
func (r *Repository) OrderItems(ctx context.Context, orderID int64) ([]dto.OrderItemProjection, error) {
	var rows []orderItemRow
	err := r.reader.NewSelect().
		TableExpr("order_items AS oi").
		ColumnExpr("oi.order_id AS order_id, i.name AS item_name, oi.order_price AS order_price, oi.count AS count").
		Join("JOIN items AS i ON i.id = oi.item_id").
		Where("oi.order_id = ?", orderID).
		OrderExpr("oi.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	return itemRowsToProjections(rows), nil
}

// OrderItemsByOrderIDs selects the line projections for every given order in
// a single IN-clause query, grouped by order id.
func (r *Repository) OrderItemsByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64][]dto.OrderItemProjection, error) {
	ctx, span := repoTracer.Start(ctx, "OrderQueryRepository.OrderItemsByOrderIDs",
		trace.WithAttributes(attribute.Int("orders", len(orderIDs))))
	defer span.End()

	if len(orderIDs) == 0 {
		return map[int64][]dto.OrderItemProjection{}, nil
	}

	var rows []orderItemRow
	err := r.reader.NewSelect().
		TableExpr("order_items AS oi").
		ColumnExpr("oi.order_id AS order_id, i.name AS item_name, oi.order_price AS order_price, oi.count AS count").
		Join("JOIN items AS i ON i.id = oi.item_id").
		Where("oi.order_id IN (?)", bun.In(orderIDs)).
		OrderExpr("oi.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "batch select failed")
		return nil, err
	}

	grouped := make(map[int64][]dto.OrderItemProjection, len(orderIDs))
	for _, row := range rows {
		grouped[row.OrderID] = append(grouped[row.OrderID], itemRowToProjection(row))
	}
	return grouped, nil
}

// FlatRow is one row of the full order×line join, header fields repeated per
// line.
type FlatRow struct {
	OrderID     int64     `bun:"order_id"`
	Name        string    `bun:"name"`
	OrderDate   time.Time `bun:"order_date"`
	OrderStatus string    `bun:"order_status"`
	City        string    `bun:"city"`
	Street      string    `bun:"street"`
	Zipcode     string    `bun:"zipcode"`
	ItemName    string    `bun:"item_name"`
	OrderPrice  int64     `bun:"order_price"`
	Count       int       `bun:"count"`
}

// FlatRows selects the entire dataset in one flat join. Callers regroup the
// rows into order view models with GroupFlatRows.
func (r *Repository) FlatRows(ctx context.Context) ([]FlatRow, error) {
	ctx, span := repoTracer.Start(ctx, "OrderQueryRepository.FlatRows")
	defer span.End()

	var rows []FlatRow
	err := r.reader.NewSelect().
		TableExpr("orders AS o").
		ColumnExpr("o.id AS order_id, m.name AS name, o.ordered_at AS order_date, o.status AS order_status").
		ColumnExpr("d.city AS city, d.street AS street, d.zipcode AS zipcode").
		ColumnExpr("i.name AS item_name, oi.order_price AS order_price, oi.count AS count").
		Join("JOIN members AS m ON m.id = o.member_id").
		Join("JOIN deliveries AS d ON d.id = o.delivery_id").
		Join("JOIN order_items AS oi ON oi.order_id = o.id").
		Join("JOIN items AS i ON i.id = oi.item_id").
		OrderExpr("o.id ASC, oi.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "flat select failed")
		return nil, err
	}
	return rows, nil
}

// GroupFlatRows folds flat join rows into order view models. Rows sharing an
// order id merge their lines; first-seen row order is preserved, so a sorted
// query yields a sorted result.
func GroupFlatRows(rows []FlatRow) []dto.OrderProjection {
	orders := make([]dto.OrderProjection, 0)
	index := make(map[int64]int)

	for _, row := range rows {
		at, ok := index[row.OrderID]
		if !ok {
			at = len(orders)
			index[row.OrderID] = at
			orders = append(orders, dto.OrderProjection{
				OrderID:     row.OrderID,
				Name:        row.Name,
				OrderDate:   row.OrderDate,
				OrderStatus: row.OrderStatus,
				Address: dto.AddressResponse{
					City:    row.City,
					Street:  row.Street,
					Zipcode: row.Zipcode,
				},
				OrderItems: make([]dto.OrderItemProjection, 0, 1),
			})
		}
		orders[at].OrderItems = append(orders[at].OrderItems, dto.OrderItemProjection{
			OrderID:    row.OrderID,
			ItemName:   row.ItemName,
			OrderPrice: row.OrderPrice,
			Count:      row.Count,
		})
	}
	return orders
}

func headToProjection(row orderHeadRow) dto.OrderProjection {
	return dto.OrderProjection{
		OrderID:     row.OrderID,
		Name:        row.Name,
		OrderDate:   row.OrderDate,
		OrderStatus: row.OrderStatus,
		Address: dto.AddressResponse{
			City:    row.City,
			Street:  row.Street,
			Zipcode: row.Zipcode,
		},
		OrderItems: make([]dto.OrderItemProjection, 0),
	}
}

func itemRowToProjection(row orderItemRow) dto.OrderItemProjection {
	return dto.OrderItemProjection{
		OrderID:    row.OrderID,
		ItemName:   row.ItemName,
		OrderPrice: row.OrderPrice,
		Count:      row.Count,
	}
}

func itemRowsToProjections(rows []orderItemRow) []dto.OrderItemProjection {
	items := make([]dto.OrderItemProjection, 0, len(rows))
	for _, row := range rows {
		items = append(items, itemRowToProjection(row))
	}
	return items
}
