package domain

import (
	"encoding/json"
	"fmt"
)

// Marketplace identifies the commerce backend behind a store.
type Marketplace string

const (
	MarketplaceShopify Marketplace = "SHOPIFY"
	MarketplaceAmazon  Marketplace = "AMAZON"
)

const shopifyTypename = "ShopifyStore"

// MarketplaceFromTypename maps the store discriminator to a marketplace.
// Anything that is not a Shopify store is treated as Amazon.
func MarketplaceFromTypename(typename string) Marketplace {
	if typename == shopifyTypename {
		return MarketplaceShopify
	}
	return MarketplaceAmazon
}

// ParseMarketplace accepts the wire names used by the backend.
func ParseMarketplace(s string) (Marketplace, bool) {
	switch Marketplace(s) {
	case MarketplaceShopify, MarketplaceAmazon:
		return Marketplace(s), true
	}
	return "", false
}

type Image struct {
	URL string `json:"url"`
}

// LineItem is the marketplace-specific purchasable unit of a cart line.
// It is implemented only by ShopifyVariant and AmazonProduct.
type LineItem interface {
	Marketplace() Marketplace
	ItemID() string
	isLineItem()
}

// ShopifyProduct is the parent product of a Shopify variant.
type ShopifyProduct struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type ShopifyVariant struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Image   *Image          `json:"image,omitempty"`
	PriceV2 *Money          `json:"priceV2,omitempty"`
	Price   *Money          `json:"price,omitempty"`
	Product *ShopifyProduct `json:"-"`
}

func (ShopifyVariant) Marketplace() Marketplace { return MarketplaceShopify }
func (v ShopifyVariant) ItemID() string        { return v.ID }
func (ShopifyVariant) isLineItem()             {}

type AmazonProduct struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Images  []Image `json:"images,omitempty"`
	PriceV2 *Money  `json:"priceV2,omitempty"`
	Price   *Money  `json:"price,omitempty"`
}

func (AmazonProduct) Marketplace() Marketplace { return MarketplaceAmazon }
func (p AmazonProduct) ItemID() string        { return p.ID }
func (AmazonProduct) isLineItem()             {}

// Augmentation links a commerce line back to the donation need that produced it.
type Augmentation struct {
	BaseProductName    string `json:"giftdrive_base_product_name,omitempty"`
	VariantDetailsText string `json:"giftdrive_variant_details_text,omitempty"`
	SourceChildItemID  *int64 `json:"giftdrive_source_child_item_id,omitempty"`
	SourceDriveItemID  *int64 `json:"giftdrive_source_drive_item_id,omitempty"`
}

// SourceID returns the source need id for the given kind.
func (a Augmentation) SourceID(kind NeedKind) (int64, bool) {
	var id *int64
	switch kind {
	case NeedKindChildItem:
		id = a.SourceChildItemID
	case NeedKindDriveItem:
		id = a.SourceDriveItemID
	}
	if id == nil {
		return 0, false
	}
	return *id, true
}

// SourceNeed returns the need this line was added for, if any.
func (a Augmentation) SourceNeed() (NeedRef, bool) {
	if a.SourceChildItemID != nil {
		return NeedRef{Kind: NeedKindChildItem, ID: *a.SourceChildItemID}, true
	}
	if a.SourceDriveItemID != nil {
		return NeedRef{Kind: NeedKindDriveItem, ID: *a.SourceDriveItemID}, true
	}
	return NeedRef{}, false
}

type CartLine struct {
	Quantity int
	Item     LineItem
	Augment  Augmentation
}

type StoreError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ShippingMethod struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Price *Money `json:"price,omitempty"`
	Taxes *Money `json:"taxes,omitempty"`
	Total *Money `json:"total,omitempty"`
}

type Offer struct {
	Errors                 []StoreError     `json:"errors,omitempty"`
	NotAvailableIDs        []string         `json:"notAvailableIds,omitempty"`
	ShippingMethods        []ShippingMethod `json:"shippingMethods,omitempty"`
	SelectedShippingMethod *ShippingMethod  `json:"selectedShippingMethod,omitempty"`
}

// Store is one marketplace's slice of the cart.
type Store struct {
	Name        string
	Typename    string
	Marketplace Marketplace
	Lines       []CartLine
	Errors      []StoreError
	Offer       *Offer
}

// Cart is the aggregate root of the checkout flow.
type Cart struct {
	ID     string  `json:"id"`
	Stores []Store `json:"stores"`
	Cost   *Cost   `json:"cost,omitempty"`
}

// LineCount returns the number of cart lines across all stores.
func (c *Cart) LineCount() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, s := range c.Stores {
		n += len(s.Lines)
	}
	return n
}

// Total returns the aggregate total when the backend has computed it.
func (c *Cart) Total() *Money {
	if c == nil || c.Cost == nil {
		return nil
	}
	return c.Cost.Total
}

type wireStore struct {
	Typename  string            `json:"__typename"`
	Store     string            `json:"store"`
	CartLines []json.RawMessage `json:"cartLines"`
	Errors    []StoreError      `json:"errors,omitempty"`
	Offer     *Offer            `json:"offer,omitempty"`
}

type wireLine struct {
	Quantity int             `json:"quantity"`
	Variant  *ShopifyVariant `json:"variant,omitempty"`
	Product  json.RawMessage `json:"product,omitempty"`
	Augmentation
}

func (s *Store) UnmarshalJSON(data []byte) error {
	var w wireStore
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := Store{
		Name:        w.Store,
		Typename:    w.Typename,
		Marketplace: MarketplaceFromTypename(w.Typename),
		Errors:      w.Errors,
		Offer:       w.Offer,
	}
	for i, raw := range w.CartLines {
		line, err := decodeLine(out.Marketplace, raw)
		if err != nil {
			return fmt.Errorf("store %q line %d: %w", w.Store, i, err)
		}
		out.Lines = append(out.Lines, line)
	}
	*s = out
	return nil
}

func decodeLine(m Marketplace, raw json.RawMessage) (CartLine, error) {
	var w wireLine
	if err := json.Unmarshal(raw, &w); err != nil {
		return CartLine{}, err
	}
	line := CartLine{Quantity: w.Quantity, Augment: w.Augmentation}
	switch m {
	case MarketplaceShopify:
		variant := ShopifyVariant{}
		if w.Variant != nil {
			variant = *w.Variant
		}
		if len(w.Product) > 0 && string(w.Product) != "null" {
			var p ShopifyProduct
			if err := json.Unmarshal(w.Product, &p); err != nil {
				return CartLine{}, fmt.Errorf("decode product: %w", err)
			}
			variant.Product = &p
		}
		line.Item = variant
	case MarketplaceAmazon:
		var p AmazonProduct
		if len(w.Product) > 0 && string(w.Product) != "null" {
			if err := json.Unmarshal(w.Product, &p); err != nil {
				return CartLine{}, fmt.Errorf("decode product: %w", err)
			}
		}
		line.Item = p
	default:
		return CartLine{}, fmt.Errorf("unknown marketplace %q", m)
	}
	return line, nil
}

func (s Store) MarshalJSON() ([]byte, error) {
	typename := s.Typename
	if typename == "" && s.Marketplace == MarketplaceShopify {
		typename = shopifyTypename
	}
	w := wireStore{
		Typename: typename,
		Store:    s.Name,
		Errors:   s.Errors,
		Offer:    s.Offer,
	}
	for _, line := range s.Lines {
		wl := wireLine{Quantity: line.Quantity, Augmentation: line.Augment}
		switch item := line.Item.(type) {
		case ShopifyVariant:
			v := item
			wl.Variant = &v
			if item.Product != nil {
				p, err := json.Marshal(item.Product)
				if err != nil {
					return nil, err
				}
				wl.Product = p
			}
		case AmazonProduct:
			p, err := json.Marshal(item)
			if err != nil {
				return nil, err
			}
			wl.Product = p
		}
		raw, err := json.Marshal(wl)
		if err != nil {
			return nil, err
		}
		w.CartLines = append(w.CartLines, raw)
	}
	if w.CartLines == nil {
		w.CartLines = []json.RawMessage{}
	}
	return json.Marshal(w)
}
