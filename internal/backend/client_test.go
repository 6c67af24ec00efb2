package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"giftdrive-storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]interface{}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *[]recordedRequest) {
	t.Helper()
	var calls []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.Body)
		}
		calls = append(calls, rec)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := New(Config{BaseURL: srv.URL + "/", Timeout: 2 * time.Second}, zap.NewNop())
	require.NoError(t, err)
	return client, &calls
}

func TestGetCart_DecodesAndForwardsToken(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"cart_1","stores":[{"__typename":"AmazonStore","store":"amazon","cartLines":[{"quantity":1,"product":{"id":"B01","title":"Crayons"}}]}]}`))
	})

	cart, err := client.GetCart(context.Background(), "donor-token")
	require.NoError(t, err)
	assert.Equal(t, "cart_1", cart.ID)
	assert.Equal(t, 1, cart.LineCount())

	require.Len(t, *calls, 1)
	assert.Equal(t, http.MethodGet, (*calls)[0].Method)
	assert.Equal(t, "/api/cart", (*calls)[0].Path)
	assert.Equal(t, "Bearer donor-token", (*calls)[0].Auth)
}

func TestAddToCart_SendsNeedReference(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	id := int64(42)
	err := client.AddToCart(context.Background(), "tok", AddToCartRequest{
		RyeIDToAdd:          "shop_variant_9",
		MarketplaceForItem:  domain.MarketplaceShopify,
		Quantity:            2,
		OriginalNeedRefID:   &id,
		OriginalNeedRefType: domain.NeedKindChildItem.RefType(),
	})
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	body := (*calls)[0].Body
	assert.Equal(t, "/api/cart/add", (*calls)[0].Path)
	assert.Equal(t, "shop_variant_9", body["ryeIdToAdd"])
	assert.Equal(t, "SHOPIFY", body["marketplaceForItem"])
	assert.Equal(t, float64(2), body["quantity"])
	assert.Equal(t, float64(42), body["originalNeedRefId"])
	assert.Equal(t, "child_item", body["originalNeedRefType"])
}

func TestDo_MapsStatusCodes(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		_, err := client.GetCart(context.Background(), "tok")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("server error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("rye down"))
		})
		_, err := client.GetCart(context.Background(), "tok")
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadGateway, apiErr.Status)
		assert.Equal(t, "rye down", apiErr.Body)
	})
}

func TestCreateStripeIntent(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"clientSecret":"pi_123_secret_abc"}`))
	})

	secret, err := client.CreateStripeIntent(context.Background(), "tok", StripeIntentRequest{CartID: "cart_1", Amount: 2500, Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, "pi_123_secret_abc", secret)
	assert.Equal(t, float64(2500), (*calls)[0].Body["amount"])
	assert.Equal(t, "cart_1", (*calls)[0].Body["cartId"])
}

func TestCreateStripeIntent_EmptySecret(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	_, err := client.CreateStripeIntent(context.Background(), "tok", StripeIntentRequest{CartID: "c", Amount: 1, Currency: "USD"})
	assert.Error(t, err)
}

func TestFetchVariants(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"variants":[{"id":"v1","title":"S","isAvailable":false},{"id":"v2","title":"M","isAvailable":true,"priceV2":{"value":999,"currency":"USD"}}]}`))
	})

	variants, err := client.FetchVariants(context.Background(), "tok", "prod_1", domain.MarketplaceShopify)
	require.NoError(t, err)
	require.Len(t, variants, 2)
	assert.True(t, variants[1].IsAvailable)
	assert.Equal(t, "prod_1", (*calls)[0].Body["rye_product_id"])
	assert.Equal(t, "SHOPIFY", (*calls)[0].Body["marketplace"])
}

func TestGetNeed_NormalizesKind(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"drive_item_id":7,"needed":5,"remaining":3,"base_item_name":"Crayons","is_rye_linked":true}`))
	})

	need, err := client.GetNeed(context.Background(), "tok", domain.NeedRef{Kind: domain.NeedKindDriveItem, ID: 7})
	require.NoError(t, err)
	assert.Equal(t, "/api/needs/drive-items/7", (*calls)[0].Path)
	assert.Equal(t, domain.NeedRef{Kind: domain.NeedKindDriveItem, ID: 7}, need.Ref())
	assert.Equal(t, 3, need.Remaining)
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
}
