package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"giftdrive-storefront/internal/backend"
	"giftdrive-storefront/internal/domain"
	"giftdrive-storefront/internal/payment"
	cartsvc "giftdrive-storefront/internal/service/cart"
	checkoutsvc "giftdrive-storefront/internal/service/checkout"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeBackend keeps a single cart in memory and mutates it like the backend does.
type fakeBackend struct {
	mu       sync.Mutex
	cart     *domain.Cart
	adds     []backend.AddToCartRequest
	removes  []backend.RemoveFromCartRequest
	updates  []backend.UpdateCartItemRequest
	variants []domain.Variant
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{cart: &domain.Cart{ID: "cart_1"}}
}

func (f *fakeBackend) GetCart(context.Context, string) (*domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.cart
	cp.Stores = append([]domain.Store(nil), f.cart.Stores...)
	return &cp, nil
}

func (f *fakeBackend) AddToCart(_ context.Context, _ string, req backend.AddToCartRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds = append(f.adds, req)
	line := domain.CartLine{
		Quantity: req.Quantity,
		Item:     domain.ShopifyVariant{ID: req.RyeIDToAdd, Title: "Item " + req.RyeIDToAdd},
	}
	if req.OriginalNeedRefID != nil {
		id := *req.OriginalNeedRefID
		if req.OriginalNeedRefType == domain.NeedKindDriveItem.RefType() {
			line.Augment.SourceDriveItemID = &id
		} else {
			line.Augment.SourceChildItemID = &id
		}
	}
	if len(f.cart.Stores) == 0 {
		f.cart.Stores = []domain.Store{{Name: "cozy-knits", Typename: "ShopifyStore", Marketplace: domain.MarketplaceShopify}}
	}
	f.cart.Stores[0].Lines = append(f.cart.Stores[0].Lines, line)
	return nil
}

func (f *fakeBackend) RemoveFromCart(_ context.Context, _ string, req backend.RemoveFromCartRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes = append(f.removes, req)
	for i := range f.cart.Stores {
		lines := f.cart.Stores[i].Lines[:0]
		for _, l := range f.cart.Stores[i].Lines {
			if l.Item.ItemID() != req.RyeIDToRemove {
				lines = append(lines, l)
			}
		}
		f.cart.Stores[i].Lines = lines
	}
	return nil
}

func (f *fakeBackend) UpdateCartItem(_ context.Context, _ string, req backend.UpdateCartItemRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, req)
	return nil
}

func (f *fakeBackend) FetchVariants(context.Context, string, string, domain.Marketplace) ([]domain.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.variants, nil
}

type stubNeeds struct {
	needs map[domain.NeedRef]domain.Need
	calls int
}

func (s *stubNeeds) Refresh(_ context.Context, _ string, ref domain.NeedRef) (*domain.Need, error) {
	s.calls++
	n, ok := s.needs[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &n, nil
}

type stubCheckout struct {
	result    *checkoutsvc.StepResult
	err       error
	lastDonor checkoutsvc.Donor
	lastID    string
	lastStore string
	lastShip  string
	lastPay   payment.PaymentDetails
	lastIdent domain.BuyerIdentity
}

func (s *stubCheckout) Begin(_ context.Context, donor checkoutsvc.Donor) (*checkoutsvc.StepResult, error) {
	s.lastDonor = donor
	return s.result, s.err
}

func (s *stubCheckout) Get(_ context.Context, donor checkoutsvc.Donor, id string) (*checkoutsvc.StepResult, error) {
	s.lastDonor, s.lastID = donor, id
	return s.result, s.err
}

func (s *stubCheckout) SubmitIdentity(_ context.Context, donor checkoutsvc.Donor, id string, identity domain.BuyerIdentity) (*checkoutsvc.StepResult, error) {
	s.lastDonor, s.lastID, s.lastIdent = donor, id, identity
	return s.result, s.err
}

func (s *stubCheckout) SelectShipping(_ context.Context, donor checkoutsvc.Donor, id, store, methodID string) (*checkoutsvc.StepResult, error) {
	s.lastDonor, s.lastID, s.lastStore, s.lastShip = donor, id, store, methodID
	return s.result, s.err
}

func (s *stubCheckout) CreatePaymentIntent(_ context.Context, donor checkoutsvc.Donor, id string) (*checkoutsvc.StepResult, error) {
	s.lastDonor, s.lastID = donor, id
	return s.result, s.err
}

func (s *stubCheckout) ConfirmPayment(_ context.Context, donor checkoutsvc.Donor, id string, details payment.PaymentDetails) (*checkoutsvc.StepResult, error) {
	s.lastDonor, s.lastID, s.lastPay = donor, id, details
	return s.result, s.err
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type testEnv struct {
	router   *gin.Engine
	backend  *fakeBackend
	needs    *stubNeeds
	checkout *stubCheckout
	sessions *cartsvc.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		backend:  newFakeBackend(),
		needs:    &stubNeeds{needs: map[domain.NeedRef]domain.Need{}},
		checkout: &stubCheckout{},
	}
	env.sessions = cartsvc.NewRegistry(env.backend, time.Hour, nil)
	router, err := buildRouter(nil, stubPinger{}, Deps{
		Sessions: env.sessions,
		Needs:    env.needs,
		Checkout: env.checkout,
	})
	require.NoError(t, err)
	env.router = router
	return env
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer donor-token")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestBuildRouter_RequiresDeps(t *testing.T) {
	_, err := buildRouter(nil, nil, Deps{})
	assert.Error(t, err)
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down, err := buildRouter(nil, stubPinger{err: errors.New("down")}, Deps{Sessions: env.sessions, Needs: env.needs, Checkout: env.checkout})
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDonorMiddleware(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusBadRequest},
		{"empty token", "Bearer   ", http.StatusBadRequest},
		{"ok", "bearer donor-token", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/storefront/cart", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			env.router.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&domain.ValidationError{Field: "email", Message: "required"}, http.StatusUnprocessableEntity},
		{&domain.InvalidTransitionError{From: "idle", To: "payment"}, http.StatusConflict},
		{domain.ErrBusy, http.StatusConflict},
		{domain.ErrNeedAlreadyInCart, http.StatusConflict},
		{fmt.Errorf("load: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrBlockingIssues, http.StatusUnprocessableEntity},
		{domain.ErrVariantRequired, http.StatusUnprocessableEntity},
		{errors.New("backend 502"), http.StatusBadGateway},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
