package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostline-scm/frostline/internal/order"
	"github.com/frostline-scm/frostline/internal/shared"
)

func newTestHandler(t *testing.T) (*Handler, *mockRepository, *Service) {
	t.Helper()
	repo := newMockRepository()
	svc := NewService(repo, testLogger())
	return NewHandler(testLogger(), svc), repo, svc
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Route("/orders", h.MountRoutes)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func withActor(req *http.Request, actor shared.Actor) *http.Request {
	return req.WithContext(shared.ContextWithActor(req.Context(), actor))
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func TestCreateOrderEndpoint(t *testing.T) {
	h, repo, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/orders", jsonBody(t, validCreate()))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(h, withActor(req, shared.Actor{ID: 9, Role: shared.RoleSales}))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var view OrderView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, order.StatusPendingCreditApproval, view.Status)
	assert.False(t, view.FullyPacked)
	assert.Contains(t, repo.orders, view.Order.ID)
}

func TestCreateOrderRejectsUnknownFields(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/orders",
		bytes.NewReader([]byte(`{"kind":"SALES_ORDER","surprise":true}`)))
	rec := serve(h, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrderValidationFailure(t *testing.T) {
	h, _, _ := newTestHandler(t)

	body := validCreate()
	body.Lines[0].OrderedQty = -1
	req := httptest.NewRequest(http.MethodPost, "/orders", jsonBody(t, body))
	rec := serve(h, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestShowOrderNotFound(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/orders/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShowOrderBadID(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/orders/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransitionEndpoint(t *testing.T) {
	h, _, svc := newTestHandler(t)

	o, err := svc.Create(context.Background(), validCreate(), shared.Actor{ID: 9})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/orders/"+o.ID.String()+"/transitions",
		jsonBody(t, TransitionRequest{Trigger: TriggerApprove}))
	rec := serve(h, withActor(req, shared.Actor{ID: 2, Role: shared.RoleCredit}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view OrderView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, order.StatusPendingWarehouseSelection, view.Status)
}

func TestTransitionInvalidFromStatus(t *testing.T) {
	h, _, svc := newTestHandler(t)

	o, err := svc.Create(context.Background(), validCreate(), shared.Actor{ID: 9})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/orders/"+o.ID.String()+"/transitions",
		jsonBody(t, TransitionRequest{Trigger: TriggerConfirmPickup}))
	rec := serve(h, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTransitionMissingReason(t *testing.T) {
	h, _, svc := newTestHandler(t)

	o, err := svc.Create(context.Background(), validCreate(), shared.Actor{ID: 9})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/orders/"+o.ID.String()+"/transitions",
		jsonBody(t, TransitionRequest{Trigger: TriggerReject}))
	rec := serve(h, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTransitionUnauthorizedResubmit(t *testing.T) {
	h, repo, svc := newTestHandler(t)

	o, err := svc.Create(context.Background(), validCreate(), shared.Actor{ID: 9, Role: shared.RoleSales})
	require.NoError(t, err)
	repo.orders[o.ID].Status = order.StatusRejected

	req := httptest.NewRequest(http.MethodPost, "/orders/"+o.ID.String()+"/transitions",
		jsonBody(t, TransitionRequest{Trigger: TriggerResubmit}))
	rec := serve(h, withActor(req, shared.Actor{ID: 4, Role: shared.RoleSales}))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTransitionPersistenceConflict(t *testing.T) {
	h, repo, svc := newTestHandler(t)

	o, err := svc.Create(context.Background(), validCreate(), shared.Actor{ID: 9})
	require.NoError(t, err)
	repo.saveErr = order.ErrPersistenceConflict

	req := httptest.NewRequest(http.MethodPost, "/orders/"+o.ID.String()+"/transitions",
		jsonBody(t, TransitionRequest{Trigger: TriggerApprove}))
	rec := serve(h, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "reload")
}

func TestListEndpointFilterValidation(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/orders?status=NOT_A_STATUS", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/orders?status=ON_HOLD", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCostingEndpoint(t *testing.T) {
	h, repo, svc := newTestHandler(t)

	o, err := svc.Create(context.Background(), validCreate(), shared.Actor{ID: 9})
	require.NoError(t, err)
	stored := repo.orders[o.ID]
	stored.Lines[0].Allocations = []order.BatchAllocation{{BatchCode: "LOT-A", Qty: 10}}
	stored.Logistics = &order.LogisticsDetails{FirstLegAmount: 120}

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/orders/"+o.ID.String()+"/costing", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var summary CostSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 120.0, summary.TotalCost)
	assert.InDelta(t, 0.12, summary.CostRatio, 1e-9)
}
