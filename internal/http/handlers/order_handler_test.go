// README: Order handler tests over an in-memory service.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"mealdrop/internal/http/middleware"
	"mealdrop/internal/modules/catalog"
	"mealdrop/internal/modules/dispatch"
	"mealdrop/internal/modules/notify"
	"mealdrop/internal/modules/order"
	"mealdrop/internal/modules/profile"
	"mealdrop/internal/types"
)

type memOrderStore struct {
	mu     sync.Mutex
	orders map[types.ID]*order.Order
}

func (m *memOrderStore) Create(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memOrderStore) Get(_ context.Context, id types.ID) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrderStore) UpdateStatus(_ context.Context, id types.ID, from, to order.Status, version int, cancelReason *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != from || o.StatusVersion != version {
		return false, nil
	}
	o.Status = to
	o.StatusVersion++
	if cancelReason != nil {
		o.CancelReason = cancelReason
	}
	return true, nil
}

func (m *memOrderStore) SetPaymentStatus(_ context.Context, id types.ID, ps order.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.PaymentStatus = ps
	return nil
}

type stubCatalog struct{}

func (stubCatalog) GetRestaurant(_ context.Context, id types.ID) (*catalog.Restaurant, error) {
	if id != "r1" {
		return nil, catalog.ErrNotFound
	}
	return &catalog.Restaurant{
		ID: "r1", OwnerID: "owner1", Name: "Napoli",
		DeliveryFee: types.USD(300), PrepTimeMinutes: 30,
	}, nil
}

func (stubCatalog) GetMenuItem(_ context.Context, id types.ID) (*catalog.MenuItem, error) {
	if id != "m1" {
		return nil, catalog.ErrNotFound
	}
	return &catalog.MenuItem{
		ID: "m1", RestaurantID: "r1", Name: "Margherita",
		Price: types.USD(1230), IsAvailable: true,
	}, nil
}

type stubPayments struct{}

func (stubPayments) Capture(context.Context, types.ID, types.Money) error { return nil }
func (stubPayments) Refund(context.Context, types.ID, types.Money) error  { return nil }

type stubHistory struct{}

func (stubHistory) AppendOrderHistory(context.Context, types.ID, profile.HistoryEntry) error {
	return nil
}

type nullTransport struct{}

func (nullTransport) Publish(context.Context, string, []byte) error { return nil }

// stubDispatcher stands in for the assignment engine; no drivers around.
type stubDispatcher struct{}

func (stubDispatcher) Assign(context.Context, types.ID) (*dispatch.Assignment, error) {
	return nil, dispatch.ErrUnassigned
}

func newTestRouter(store *memOrderStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := order.NewService(store, stubCatalog{}, stubPayments{}, stubHistory{}, notify.NewRouter(nullTransport{}))
	h := NewOrderHandler(svc, stubDispatcher{}, stubCatalog{})

	r := gin.New()
	api := r.Group("/api", middleware.Identity())
	api.POST("/orders", h.Checkout)
	api.GET("/orders/:id", h.Get)
	api.POST("/orders/:id/status", h.AdvanceStatus)
	api.POST("/orders/:id/cancel", h.Cancel)
	api.POST("/payments/result", h.PaymentResult)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body, role string) *httptest.ResponseRecorder {
	t.Helper()
	return doJSONAs(t, r, method, path, body, "c1", role)
}

func doJSONAs(t *testing.T, r *gin.Engine, method, path, body, uid, role string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", uid)
	if role != "" {
		req.Header.Set("X-User-Role", role)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCheckoutEndpoint(t *testing.T) {
	store := &memOrderStore{orders: make(map[types.ID]*order.Order)}
	r := newTestRouter(store)

	w := doJSON(t, r, http.MethodPost, "/api/orders",
		`{"restaurant_id":"r1","items":[{"menu_item_id":"m1","quantity":2}],"tip_cents":0}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		OrderID    string `json:"order_id"`
		TotalCents int64  `json:"total_cents"`
		Status     string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// 2460 subtotal + 300 fee + 197 tax
	if resp.TotalCents != 2957 {
		t.Errorf("total = %d, want 2957", resp.TotalCents)
	}
	if resp.Status != "pending" {
		t.Errorf("status = %s", resp.Status)
	}
	if _, err := store.Get(context.Background(), types.ID(resp.OrderID)); err != nil {
		t.Errorf("order not persisted: %v", err)
	}
}

func TestCheckoutEndpointValidation(t *testing.T) {
	r := newTestRouter(&memOrderStore{orders: make(map[types.ID]*order.Order)})

	cases := []struct {
		name string
		body string
	}{
		{"empty items", `{"restaurant_id":"r1","items":[]}`},
		{"missing restaurant", `{"items":[{"menu_item_id":"m1","quantity":1}]}`},
		{"zero quantity", `{"restaurant_id":"r1","items":[{"menu_item_id":"m1","quantity":0}]}`},
		{"negative tip", `{"restaurant_id":"r1","items":[{"menu_item_id":"m1","quantity":1}],"tip_cents":-5}`},
		{"not json", `{{{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/orders", tc.body, "")
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestCheckoutEndpointRequiresIdentity(t *testing.T) {
	r := newTestRouter(&memOrderStore{orders: make(map[types.ID]*order.Order)})

	req := httptest.NewRequest(http.MethodPost, "/api/orders",
		strings.NewReader(`{"restaurant_id":"r1","items":[{"menu_item_id":"m1","quantity":1}]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestGetOrderEndpointNotFound(t *testing.T) {
	r := newTestRouter(&memOrderStore{orders: make(map[types.ID]*order.Order)})
	w := doJSON(t, r, http.MethodGet, "/api/orders/nope", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestOrderStatusEndpoint(t *testing.T) {
	store := &memOrderStore{orders: make(map[types.ID]*order.Order)}
	r := newTestRouter(store)

	w := doJSON(t, r, http.MethodPost, "/api/orders",
		`{"restaurant_id":"r1","items":[{"menu_item_id":"m1","quantity":1}]}`, "")
	var created struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = doJSONAs(t, r, http.MethodPost, "/api/orders/"+created.OrderID+"/status",
		`{"status":"confirmed"}`, "owner1", "restaurant")
	if w.Code != http.StatusOK {
		t.Fatalf("advance: status = %d, body = %s", w.Code, w.Body.String())
	}

	// Skipping a step maps to 409.
	w = doJSONAs(t, r, http.MethodPost, "/api/orders/"+created.OrderID+"/status",
		`{"status":"confirmed"}`, "owner1", "restaurant")
	if w.Code != http.StatusConflict {
		t.Errorf("skip: status = %d, want 409", w.Code)
	}

	// ready belongs to the delivery lifecycle, not the kitchen.
	w = doJSONAs(t, r, http.MethodPost, "/api/orders/"+created.OrderID+"/status",
		`{"status":"preparing"}`, "owner1", "restaurant")
	if w.Code != http.StatusOK {
		t.Fatalf("advance: status = %d, body = %s", w.Code, w.Body.String())
	}
	w = doJSONAs(t, r, http.MethodPost, "/api/orders/"+created.OrderID+"/status",
		`{"status":"ready"}`, "owner1", "restaurant")
	if w.Code != http.StatusBadRequest {
		t.Errorf("ready via kitchen: status = %d, want 400", w.Code)
	}
}

func TestOrderStatusEndpointAuthorization(t *testing.T) {
	store := &memOrderStore{orders: make(map[types.ID]*order.Order)}
	r := newTestRouter(store)

	w := doJSON(t, r, http.MethodPost, "/api/orders",
		`{"restaurant_id":"r1","items":[{"menu_item_id":"m1","quantity":1}]}`, "")
	var created struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	cases := []struct {
		name string
		uid  string
		role string
	}{
		{"the customer", "c1", "customer"},
		{"a driver", "d1", "driver"},
		{"a restaurant that does not own the order", "owner2", "restaurant"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSONAs(t, r, http.MethodPost, "/api/orders/"+created.OrderID+"/status",
				`{"status":"confirmed"}`, tc.uid, tc.role)
			if w.Code != http.StatusForbidden {
				t.Errorf("status = %d, want 403", w.Code)
			}
		})
	}

	o, _ := store.Get(context.Background(), types.ID(created.OrderID))
	if o.Status != order.StatusPending {
		t.Errorf("order advanced by unauthorized caller: %s", o.Status)
	}
}

func TestOrderEndpointsRejectStrangers(t *testing.T) {
	store := &memOrderStore{orders: make(map[types.ID]*order.Order)}
	r := newTestRouter(store)

	w := doJSON(t, r, http.MethodPost, "/api/orders",
		`{"restaurant_id":"r1","items":[{"menu_item_id":"m1","quantity":1}]}`, "")
	var created struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Another customer can neither read nor cancel c1's order.
	w = doJSONAs(t, r, http.MethodGet, "/api/orders/"+created.OrderID, "", "c2", "customer")
	if w.Code != http.StatusForbidden {
		t.Errorf("stranger read: status = %d, want 403", w.Code)
	}
	w = doJSONAs(t, r, http.MethodPost, "/api/orders/"+created.OrderID+"/cancel", "", "c2", "customer")
	if w.Code != http.StatusForbidden {
		t.Errorf("stranger cancel: status = %d, want 403", w.Code)
	}

	// The owner still can.
	w = doJSON(t, r, http.MethodGet, "/api/orders/"+created.OrderID, "", "customer")
	if w.Code != http.StatusOK {
		t.Errorf("owner read: status = %d, body = %s", w.Code, w.Body.String())
	}

	o, _ := store.Get(context.Background(), types.ID(created.OrderID))
	if o.Status != order.StatusPending {
		t.Errorf("order mutated by stranger: %s", o.Status)
	}
}

func TestCancelEndpointPolicy(t *testing.T) {
	store := &memOrderStore{orders: make(map[types.ID]*order.Order)}
	r := newTestRouter(store)

	w := doJSON(t, r, http.MethodPost, "/api/orders",
		`{"restaurant_id":"r1","items":[{"menu_item_id":"m1","quantity":1}]}`, "")
	var created struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Push the order past the customer's cancellation window.
	store.mu.Lock()
	store.orders[types.ID(created.OrderID)].Status = order.StatusPreparing
	store.mu.Unlock()

	w = doJSON(t, r, http.MethodPost, "/api/orders/"+created.OrderID+"/cancel", "", "customer")
	if w.Code != http.StatusForbidden {
		t.Errorf("customer cancel of preparing order: status = %d, want 403", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/orders/"+created.OrderID+"/cancel",
		`{"reason":"kitchen closed"}`, "admin")
	if w.Code != http.StatusOK {
		t.Fatalf("admin cancel: status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"cancel_reason":"kitchen closed"`) {
		t.Errorf("body missing cancel reason: %s", w.Body.String())
	}
}

func TestPaymentResultEndpoint(t *testing.T) {
	store := &memOrderStore{orders: make(map[types.ID]*order.Order)}
	r := newTestRouter(store)

	w := doJSON(t, r, http.MethodPost, "/api/orders",
		`{"restaurant_id":"r1","items":[{"menu_item_id":"m1","quantity":1}]}`, "")
	var created struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = doJSON(t, r, http.MethodPost, "/api/payments/result",
		`{"order_id":"`+created.OrderID+`","status":"paid"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	o, _ := store.Get(context.Background(), types.ID(created.OrderID))
	if o.PaymentStatus != order.PaymentPaid {
		t.Errorf("payment status = %s", o.PaymentStatus)
	}

	w = doJSON(t, r, http.MethodPost, "/api/payments/result",
		`{"order_id":"`+created.OrderID+`","status":"maybe"}`, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid status mapped to %d, want 400", w.Code)
	}
}
