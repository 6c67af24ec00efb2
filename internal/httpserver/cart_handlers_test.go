package httpserver

import (
	"net/http"
	"testing"

	"giftdrive-storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scarfRef = domain.NeedRef{Kind: domain.NeedKindChildItem, ID: 42}

func purchasableScarf() domain.Need {
	id := scarfRef.ID
	return domain.Need{
		Kind:             scarfRef.Kind,
		ID:               scarfRef.ID,
		ChildItem:        &id,
		Needed:           2,
		Remaining:        2,
		BaseItemName:     "Red Scarf",
		BaseRyeProductID: "prod_scarf",
		BaseMarketplace:  domain.MarketplaceShopify,
		IsRyeLinked:      true,
	}
}

func TestGetCart(t *testing.T) {
	env := newTestEnv(t)
	env.backend.cart.Stores = []domain.Store{{
		Name: "cozy-knits", Typename: "ShopifyStore", Marketplace: domain.MarketplaceShopify,
		Lines: []domain.CartLine{{Quantity: 1, Item: domain.ShopifyVariant{ID: "v1", Title: "Blue"}}},
	}}

	rec := env.do(http.MethodGet, "/storefront/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "cart_1", body["id"])
	assert.EqualValues(t, 1, body["lineCount"])
	assert.Equal(t, false, body["loading"])
	assert.Empty(t, body["notices"])
}

func TestAddCartItem_ByItem(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/storefront/cart/items", `{"id":"v1","marketplace":"shopify"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, env.backend.adds, 1)
	assert.Equal(t, "v1", env.backend.adds[0].RyeIDToAdd)
	assert.Equal(t, domain.MarketplaceShopify, env.backend.adds[0].MarketplaceForItem)
	assert.Equal(t, 1, env.backend.adds[0].Quantity)
	assert.Nil(t, env.backend.adds[0].OriginalNeedRefID)
	assert.EqualValues(t, 1, decodeBody(t, rec)["lineCount"])
}

func TestAddCartItem_ByNeedResolvesPurchaseID(t *testing.T) {
	env := newTestEnv(t)
	env.needs.needs[scarfRef] = purchasableScarf()

	rec := env.do(http.MethodPost, "/storefront/cart/items", `{"need":{"kind":"child-item","id":42}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, env.backend.adds, 1)
	add := env.backend.adds[0]
	assert.Equal(t, "prod_scarf", add.RyeIDToAdd)
	require.NotNil(t, add.OriginalNeedRefID)
	assert.EqualValues(t, 42, *add.OriginalNeedRefID)
	assert.Equal(t, domain.NeedKindChildItem.RefType(), add.OriginalNeedRefType)

	body := decodeBody(t, rec)
	needView, ok := body["need"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "in_cart", needView["state"])
	assert.Equal(t, false, needView["canAddToCart"])
	assert.Equal(t, 2, env.needs.calls, "need is re-read after the add")
}

func TestAddCartItem_SameNeedTwiceIsRejected(t *testing.T) {
	env := newTestEnv(t)
	env.needs.needs[scarfRef] = purchasableScarf()

	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/storefront/cart/items", `{"need":{"kind":"child-item","id":42}}`).Code)

	rec := env.do(http.MethodPost, "/storefront/cart/items", `{"id":"prod_scarf","marketplace":"SHOPIFY","need":{"kind":"child-item","id":42}}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, env.backend.adds, 1)
}

func TestAddCartItem_NeedStates(t *testing.T) {
	choice := purchasableScarf()
	choice.AllowDonorVariantChoice = true

	fulfilled := purchasableScarf()
	fulfilled.Remaining = 0

	offline := purchasableScarf()
	offline.IsRyeLinked = false

	tests := []struct {
		name string
		need domain.Need
		want int
	}{
		{"variant choice pending", choice, http.StatusUnprocessableEntity},
		{"fulfilled", fulfilled, http.StatusUnprocessableEntity},
		{"not rye linked", offline, http.StatusUnprocessableEntity},
	}
	bodies := map[string]string{
		"need only":   `{"need":{"kind":"child-item","id":42}}`,
		"explicit id": `{"id":"prod_scarf","marketplace":"SHOPIFY","need":{"kind":"child-item","id":42}}`,
		"other id":    `{"id":"some_variant","marketplace":"SHOPIFY","need":{"kind":"child-item","id":42}}`,
	}
	for _, tc := range tests {
		for form, body := range bodies {
			t.Run(tc.name+"/"+form, func(t *testing.T) {
				env := newTestEnv(t)
				env.needs.needs[scarfRef] = tc.need
				rec := env.do(http.MethodPost, "/storefront/cart/items", body)
				assert.Equal(t, tc.want, rec.Code)
				assert.Empty(t, env.backend.adds)
			})
		}
	}
}

func TestAddCartItem_ExplicitIDMustMatchNeed(t *testing.T) {
	env := newTestEnv(t)
	env.needs.needs[scarfRef] = purchasableScarf()

	rec := env.do(http.MethodPost, "/storefront/cart/items", `{"id":"prod_other","marketplace":"SHOPIFY","need":{"kind":"child-item","id":42}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "id", decodeBody(t, rec)["field"])
	assert.Empty(t, env.backend.adds)

	rec = env.do(http.MethodPost, "/storefront/cart/items", `{"id":"prod_scarf","marketplace":"SHOPIFY","need":{"kind":"child-item","id":42}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, env.backend.adds, 1)
	assert.Equal(t, "prod_scarf", env.backend.adds[0].RyeIDToAdd)
}

func TestAddCartItem_BadInput(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/storefront/cart/items", `{`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, env.do(http.MethodPost, "/storefront/cart/items", `{"id":"v1","marketplace":"ebay"}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, env.do(http.MethodPost, "/storefront/cart/items", `{"need":{"kind":"pony","id":1}}`).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/storefront/cart/items", `{"need":{"kind":"drive-item","id":9}}`).Code)
	assert.Empty(t, env.backend.adds)
}

func TestUpdateCartItem(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/storefront/cart/items", `{"id":"v1","marketplace":"SHOPIFY"}`).Code)

	rec := env.do(http.MethodPatch, "/storefront/cart/items", `{"id":"v1","marketplace":"SHOPIFY","quantity":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.backend.updates, 1)
	assert.Equal(t, 3, env.backend.updates[0].Quantity)

	rec = env.do(http.MethodPatch, "/storefront/cart/items", `{"id":"v1","marketplace":"SHOPIFY","quantity":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.backend.removes, 1, "zero quantity removes the line")
	assert.EqualValues(t, 0, decodeBody(t, rec)["lineCount"])
}

func TestRemoveCartItem(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/storefront/cart/items", `{"id":"v1","marketplace":"SHOPIFY"}`).Code)

	rec := env.do(http.MethodDelete, "/storefront/cart/items?id=v1&marketplace=shopify", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.backend.removes, 1)
	assert.Equal(t, "v1", env.backend.removes[0].RyeIDToRemove)

	rec = env.do(http.MethodDelete, "/storefront/cart/items?id=v1", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
