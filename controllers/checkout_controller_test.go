package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/antonioqueb/ooak/apperr"
	"github.com/antonioqueb/ooak/cart"
	"github.com/antonioqueb/ooak/controllers"
	"github.com/antonioqueb/ooak/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- mock implementing services.CheckoutService ----

type mockCheckoutSvc struct {
	items     []models.CartItem
	cartID    string
	createRes *models.CheckoutSessionResponse
	createErr error
	confirm   *models.ConfirmResponse
	confirmID string
	err       error
	status    *models.SessionStatusResponse
}

func (m *mockCheckoutSvc) CreateSession(ctx context.Context, items []models.CartItem, cartID string) (*models.CheckoutSessionResponse, error) {
	m.items = items
	m.cartID = cartID
	return m.createRes, m.createErr
}

func (m *mockCheckoutSvc) Confirm(ctx context.Context, sessionID string) (*models.ConfirmResponse, error) {
	m.confirmID = sessionID
	return m.confirm, m.err
}

func (m *mockCheckoutSvc) SessionStatus(ctx context.Context, sessionID string) (*models.SessionStatusResponse, error) {
	return m.status, m.err
}

func setupCheckoutRouter(t *testing.T, svc *mockCheckoutSvc) (*gin.Engine, *cart.Registry) {
	gin.SetMode(gin.TestMode)
	carts := cart.NewRegistry(time.Hour)
	t.Cleanup(carts.Close)

	r := gin.New()
	c := controllers.NewCheckoutController(svc, carts)
	r.POST("/api/checkout/session", c.CreateSession)
	r.GET("/api/checkout/confirm", c.Confirm)
	r.GET("/api/checkout/session-status", c.SessionStatus)
	return r, carts
}

func TestCreateSession_FromBody(t *testing.T) {
	svc := &mockCheckoutSvc{createRes: &models.CheckoutSessionResponse{SessionID: "cs_1", ClientSecret: "secret_1"}}
	r, _ := setupCheckoutRouter(t, svc)

	body, _ := json.Marshal(models.CheckoutRequest{Items: []models.CartItem{
		{ID: "p1", Name: "Jarrón", Price: 100, Quantity: 2},
	}})
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/session", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp models.CheckoutSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "secret_1", resp.ClientSecret)
	require.Len(t, svc.items, 1)
	assert.Equal(t, "p1", svc.items[0].ID)
	assert.Empty(t, svc.cartID)
}

func TestCreateSession_FromCartHeader(t *testing.T) {
	svc := &mockCheckoutSvc{createRes: &models.CheckoutSessionResponse{SessionID: "cs_2", ClientSecret: "secret_2"}}
	r, carts := setupCheckoutRouter(t, svc)
	id, store := carts.Get("")
	store.Add(models.CartItem{ID: "tapete-teotitlan", Name: "Tapete", Price: 250, Quantity: 1})

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/session", nil)
	req.Header.Set(controllers.CartHeader, id)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, svc.cartID)
	require.Len(t, svc.items, 1)
	assert.Equal(t, "tapete-teotitlan", svc.items[0].ID)
}

func TestCreateSession_EmptyCart(t *testing.T) {
	svc := &mockCheckoutSvc{createErr: apperr.InvalidInput("cart is empty")}
	r, _ := setupCheckoutRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/session", bytes.NewBufferString(`{"items":[]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"cart is empty"}`, w.Body.String())
}

func TestCreateSession_ProviderFailure(t *testing.T) {
	svc := &mockCheckoutSvc{createErr: apperr.Upstream("Invalid currency: xyz", nil)}
	r, _ := setupCheckoutRouter(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/checkout/session", bytes.NewBufferString(`{"items":[{"id":"a","name":"A","price":1,"quantity":1}]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid currency")
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name       string
		svc        *mockCheckoutSvc
		wantStatus int
		wantBody   string
	}{
		{
			name:       "synced",
			svc:        &mockCheckoutSvc{confirm: &models.ConfirmResponse{Status: models.ConfirmSynced, OrderID: "S00042"}},
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"synced","order_id":"S00042"}`,
		},
		{
			name:       "processing",
			svc:        &mockCheckoutSvc{confirm: &models.ConfirmResponse{Status: models.ConfirmProcessing}},
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"processing"}`,
		},
		{
			name:       "unpaid",
			svc:        &mockCheckoutSvc{err: apperr.New(apperr.KindPaymentIncomplete, "payment not completed", nil)},
			wantStatus: http.StatusPaymentRequired,
			wantBody:   `{"error":"payment not completed"}`,
		},
		{
			name:       "unknown session",
			svc:        &mockCheckoutSvc{err: apperr.NotFound("checkout session not found")},
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"checkout session not found"}`,
		},
		{
			name:       "sync failure",
			svc:        &mockCheckoutSvc{err: apperr.New(apperr.KindSyncFailed, "order sync failed", nil)},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"order sync failed"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := setupCheckoutRouter(t, tt.svc)
			req := httptest.NewRequest(http.MethodGet, "/api/checkout/confirm?session_id=cs_test_1", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			assert.Equal(t, "cs_test_1", tt.svc.confirmID)
		})
	}
}

func TestSessionStatus(t *testing.T) {
	svc := &mockCheckoutSvc{status: &models.SessionStatusResponse{Status: "complete", PaymentStatus: "paid", CustomerEmail: "ana@example.com"}}
	r, _ := setupCheckoutRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/checkout/session-status?session_id=cs_test_1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"complete","payment_status":"paid","customer_email":"ana@example.com"}`, w.Body.String())
}
