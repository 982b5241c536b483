package order_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderview/orderview/internal/dto"
	service "github.com/orderview/orderview/internal/service/order"
	transport "github.com/orderview/orderview/internal/transport/http/order"
	"github.com/orderview/orderview/pkg/errorbank"
)

type fakeService struct {
	orders      []dto.OrderResponse
	projections []dto.OrderProjection

	pagedOffset int
	pagedLimit  int
	createInput service.CreateOrderInput
	cancelledID int64
}

func (f *fakeService) ListDetailed(context.Context) ([]dto.OrderResponse, error) {
	return f.orders, nil
}

func (f *fakeService) ListJoined(context.Context) ([]dto.OrderResponse, error) {
	return f.orders, nil
}

func (f *fakeService) ListPaged(_ context.Context, offset, limit int) ([]dto.OrderResponse, error) {
	f.pagedOffset = offset
	f.pagedLimit = limit
	return f.orders, nil
}

func (f *fakeService) ListProjected(context.Context) ([]dto.OrderProjection, error) {
	return f.projections, nil
}

func (f *fakeService) ListProjectedBatch(context.Context) ([]dto.OrderProjection, error) {
	return f.projections, nil
}

func (f *fakeService) ListProjectedFlat(context.Context) ([]dto.OrderProjection, error) {
	return f.projections, nil
}

func (f *fakeService) Get(_ context.Context, id int64) (*dto.OrderResponse, error) {
	for i := range f.orders {
		if f.orders[i].OrderID == id {
			return &f.orders[i], nil
		}
	}
	return nil, errorbank.NotFound("order not found")
}

func (f *fakeService) Create(_ context.Context, input service.CreateOrderInput) (*dto.OrderResponse, error) {
	f.createInput = input
	return &dto.OrderResponse{OrderID: 42}, nil
}

func (f *fakeService) Cancel(_ context.Context, id int64) error {
	f.cancelledID = id
	return nil
}

func setup(svc *fakeService) *echo.Echo {
	e := echo.New()
	transport.Register(e, transport.NewHandler(svc))
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestListEndpointsReturnBareArrays(t *testing.T) {
	svc := &fakeService{
		orders:      []dto.OrderResponse{{OrderID: 1, Name: "userA"}},
		projections: []dto.OrderProjection{{OrderID: 1, Name: "userA"}},
	}
	e := setup(svc)

	for _, target := range []string{
		"/api/v2/orders",
		"/api/v3/orders",
		"/api/v3.1/orders",
		"/api/v4/orders",
		"/api/v5/orders",
		"/api/v6/orders",
	} {
		rec := do(e, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code, target)

		var body []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), target)
		require.Len(t, body, 1, target)
		assert.EqualValues(t, 1, body[0]["order_id"], target)
	}
}

func TestListPagedDefaults(t *testing.T) {
	svc := &fakeService{}
	e := setup(svc)

	rec := do(e, http.MethodGet, "/api/v3.1/orders", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, svc.pagedOffset)
	assert.Equal(t, 100, svc.pagedLimit)
}

func TestListPagedExplicitParams(t *testing.T) {
	svc := &fakeService{}
	e := setup(svc)

	rec := do(e, http.MethodGet, "/api/v3.1/orders?offset=10&limit=5", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, svc.pagedOffset)
	assert.Equal(t, 5, svc.pagedLimit)
}

func TestListPagedRejectsBadParams(t *testing.T) {
	e := setup(&fakeService{})

	for _, target := range []string{
		"/api/v3.1/orders?offset=abc",
		"/api/v3.1/orders?limit=-1",
	} {
		rec := do(e, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestGetByID(t *testing.T) {
	svc := &fakeService{orders: []dto.OrderResponse{{OrderID: 7, Name: "userB"}}}
	e := setup(svc)

	rec := do(e, http.MethodGet, "/api/orders/7", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success bool              `json:"success"`
		Data    dto.OrderResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, int64(7), body.Data.OrderID)
}

func TestGetByIDNotFound(t *testing.T) {
	e := setup(&fakeService{})

	rec := do(e, http.MethodGet, "/api/orders/404", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetByIDInvalid(t *testing.T) {
	e := setup(&fakeService{})

	rec := do(e, http.MethodGet, "/api/orders/abc", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreate(t *testing.T) {
	svc := &fakeService{}
	e := setup(svc)

	rec := do(e, http.MethodPost, "/api/orders", `{"member_id":10,"lines":[{"item_id":7,"count":2}]}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(10), svc.createInput.MemberID)
	require.Len(t, svc.createInput.Lines, 1)
	assert.Equal(t, 2, svc.createInput.Lines[0].Count)
}

func TestCancel(t *testing.T) {
	svc := &fakeService{}
	e := setup(svc)

	rec := do(e, http.MethodPost, "/api/orders/9/cancel", "")

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(9), svc.cancelledID)
}
