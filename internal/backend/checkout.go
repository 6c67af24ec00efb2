package backend

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"giftdrive-storefront/internal/domain"
)

type buyerIdentityRequest struct {
	CartID        string               `json:"cartId"`
	BuyerIdentity domain.BuyerIdentity `json:"buyerIdentity"`
}

type shippingMethodRequest struct {
	CartID           string `json:"cartId"`
	Store            string `json:"store"`
	ShippingMethodID string `json:"shippingId"`
}

// StripeIntentRequest is the body of POST /api/checkout/create-stripe-intent.
type StripeIntentRequest struct {
	CartID   string `json:"cartId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type stripeIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// SubmitBuyerIdentity attaches the identity to the server-side cart and
// returns the cart with refreshed store offers.
func (c *Client) SubmitBuyerIdentity(ctx context.Context, token, cartID string, identity domain.BuyerIdentity) (*domain.Cart, error) {
	var cart domain.Cart
	err := c.do(ctx, token, http.MethodPost, "/api/checkout/buyer-identity", buyerIdentityRequest{
		CartID:        cartID,
		BuyerIdentity: identity,
	}, &cart)
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// SelectShippingMethod chooses one of a store's offered shipping methods.
func (c *Client) SelectShippingMethod(ctx context.Context, token, cartID, store, methodID string) (*domain.Cart, error) {
	var cart domain.Cart
	err := c.do(ctx, token, http.MethodPost, "/api/checkout/shipping-method", shippingMethodRequest{
		CartID:           cartID,
		Store:            store,
		ShippingMethodID: methodID,
	}, &cart)
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// CreateStripeIntent requests a payment intent client secret. Callers must
// reject non-positive amounts before calling.
func (c *Client) CreateStripeIntent(ctx context.Context, token string, req StripeIntentRequest) (string, error) {
	var resp stripeIntentResponse
	if err := c.do(ctx, token, http.MethodPost, "/api/checkout/create-stripe-intent", req, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.ClientSecret) == "" {
		return "", errors.New("backend returned an empty client secret")
	}
	return resp.ClientSecret, nil
}
