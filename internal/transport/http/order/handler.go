package order

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/orderview/orderview/internal/dto"
	"github.com/orderview/orderview/internal/presentation/http/response"
	service "github.com/orderview/orderview/internal/service/order"
	"github.com/orderview/orderview/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/orderview/orderview/transport/http/order")

// Paging defaults for the paged listing.
const (
	defaultOffset = 0
	defaultLimit  = 100
)

// OrderService is the slice of the order service the HTTP layer depends on.
type OrderService interface {
	ListDetailed(ctx context.Context) ([]dto.OrderResponse, error)
	ListJoined(ctx context.Context) ([]dto.OrderResponse, error)
	ListPaged(ctx context.Context, offset, limit int) ([]dto.OrderResponse, error)
	ListProjected(ctx context.Context) ([]dto.OrderProjection, error)
	ListProjectedBatch(ctx context.Context) ([]dto.OrderProjection, error)
	ListProjectedFlat(ctx context.Context) ([]dto.OrderProjection, error)
	Get(ctx context.Context, id int64) (*dto.OrderResponse, error)
	Create(ctx context.Context, input service.CreateOrderInput) (*dto.OrderResponse, error)
	Cancel(ctx context.Context, id int64) error
}

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc OrderService
}

// NewHandler constructs an order Handler.
func NewHandler(svc OrderService) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance. The versioned listings
// return bare JSON arrays; the order resource endpoints use the response
// envelope.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/api")
	g.GET("/v2/orders", h.listDetailed)
	g.GET("/v3/orders", h.listJoined)
	g.GET("/v3.1/orders", h.listPaged)
	g.GET("/v4/orders", h.listProjected)
	g.GET("/v5/orders", h.listProjectedBatch)
	g.GET("/v6/orders", h.listProjectedFlat)

	g.GET("/orders/:id", h.getByID)
	g.POST("/orders", h.create)
	g.POST("/orders/:id/cancel", h.cancel)
}

func (h *Handler) listDetailed(c echo.Context) error {
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.listDetailed")
	defer span.End()

	orders, err := h.svc.ListDetailed(ctx)
	if err != nil {
		return response.New(c).WithError(err).Build()
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *Handler) listJoined(c echo.Context) error {
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.listJoined")
	defer span.End()

	orders, err := h.svc.ListJoined(ctx)
	if err != nil {
		return response.New(c).WithError(err).Build()
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *Handler) listPaged(c echo.Context) error {
	offset, err := queryInt(c, "offset", defaultOffset)
	if err != nil {
		return response.New(c).WithError(err).Build()
	}
	limit, err := queryInt(c, "limit", defaultLimit)
	if err != nil {
		return response.New(c).WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.listPaged",
		trace.WithAttributes(attribute.Int("offset", offset), attribute.Int("limit", limit)))
	defer span.End()

	orders, err := h.svc.ListPaged(ctx, offset, limit)
	if err != nil {
		return response.New(c).WithError(err).Build()
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *Handler) listProjected(c echo.Context) error {
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.listProjected")
	defer span.End()

	orders, err := h.svc.ListProjected(ctx)
	if err != nil {
		return response.New(c).WithError(err).Build()
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *Handler) listProjectedBatch(c echo.Context) error {
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.listProjectedBatch")
	defer span.End()

	orders, err := h.svc.ListProjectedBatch(ctx)
	if err != nil {
		return response.New(c).WithError(err).Build()
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *Handler) listProjectedFlat(c echo.Context) error {
	ctx, span := httpTracer.Start(c.Request().Context(), "orders.listProjectedFlat")
	defer span.End()

	orders, err := h.svc.ListProjectedFlat(ctx)
	if err != nil {
		return response.New(c).WithError(err).Build()
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := pathID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(order).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var input service.CreateOrderInput
	if err := c.Bind(&input); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create",
		trace.WithAttributes(attribute.Int64("member.id", input.MemberID)))
	defer span.End()

	order, err := h.svc.Create(ctx, input)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(order).Build()
}

func (h *Handler) cancel(c echo.Context) error {
	b := response.New(c)

	id, err := pathID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.cancel", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if err := h.svc.Cancel(ctx, id); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusNoContent).Build()
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errorbank.BadRequest("invalid id")
	}
	return id, nil
}

// queryInt parses an optional non-negative integer query parameter; absence
// falls back to the default, garbage is a 400.
func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, errorbank.BadRequest("invalid "+name, errorbank.WithDetail(name, raw))
	}
	return value, nil
}
