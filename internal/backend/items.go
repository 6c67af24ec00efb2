package backend

import (
	"context"
	"net/http"
	"strconv"

	"giftdrive-storefront/internal/domain"
)

type fetchVariantsRequest struct {
	RyeProductID string             `json:"rye_product_id"`
	Marketplace  domain.Marketplace `json:"marketplace"`
}

type fetchVariantsResponse struct {
	Variants []domain.Variant `json:"variants"`
}

// FetchVariants lists the purchasable variants of an upstream product.
func (c *Client) FetchVariants(ctx context.Context, token, ryeProductID string, marketplace domain.Marketplace) ([]domain.Variant, error) {
	var resp fetchVariantsResponse
	err := c.do(ctx, token, http.MethodPost, "/api/items/fetch-rye-variants-for-product", fetchVariantsRequest{
		RyeProductID: ryeProductID,
		Marketplace:  marketplace,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Variants, nil
}

// GetNeed loads a need with its backend-computed remaining count.
func (c *Client) GetNeed(ctx context.Context, token string, ref domain.NeedRef) (*domain.Need, error) {
	var need domain.Need
	path := "/api/needs/" + ref.Kind.PathSegment() + "/" + strconv.FormatInt(ref.ID, 10)
	if err := c.do(ctx, token, http.MethodGet, path, nil, &need); err != nil {
		return nil, err
	}
	need.Normalize()
	if need.Kind == "" {
		need.Kind, need.ID = ref.Kind, ref.ID
	}
	return &need, nil
}
