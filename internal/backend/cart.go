package backend

import (
	"context"
	"net/http"

	"giftdrive-storefront/internal/domain"
)

// AddToCartRequest is the body of POST /api/cart/add.
type AddToCartRequest struct {
	RyeIDToAdd          string             `json:"ryeIdToAdd"`
	MarketplaceForItem  domain.Marketplace `json:"marketplaceForItem"`
	Quantity            int                `json:"quantity"`
	OriginalNeedRefID   *int64             `json:"originalNeedRefId,omitempty"`
	OriginalNeedRefType string             `json:"originalNeedRefType,omitempty"`
}

// RemoveFromCartRequest is the body of POST /api/cart/remove.
type RemoveFromCartRequest struct {
	RyeIDToRemove      string             `json:"ryeIdToRemove"`
	MarketplaceForItem domain.Marketplace `json:"marketplaceForItem"`
}

// UpdateCartItemRequest is the body of POST /api/cart/update.
type UpdateCartItemRequest struct {
	RyeIDToUpdate      string             `json:"ryeIdToUpdate"`
	MarketplaceForItem domain.Marketplace `json:"marketplaceForItem"`
	Quantity           int                `json:"quantity"`
}

// GetCart loads the donor's authoritative cart.
func (c *Client) GetCart(ctx context.Context, token string) (*domain.Cart, error) {
	var cart domain.Cart
	if err := c.do(ctx, token, http.MethodGet, "/api/cart", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddToCart adds an item. The returned cart body is ignored by callers that
// follow the re-fetch policy, so it is not decoded here.
func (c *Client) AddToCart(ctx context.Context, token string, req AddToCartRequest) error {
	return c.do(ctx, token, http.MethodPost, "/api/cart/add", req, nil)
}

func (c *Client) RemoveFromCart(ctx context.Context, token string, req RemoveFromCartRequest) error {
	return c.do(ctx, token, http.MethodPost, "/api/cart/remove", req, nil)
}

func (c *Client) UpdateCartItem(ctx context.Context, token string, req UpdateCartItemRequest) error {
	return c.do(ctx, token, http.MethodPost, "/api/cart/update", req, nil)
}
