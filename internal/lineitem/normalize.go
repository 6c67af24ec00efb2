// Package lineitem maps marketplace-specific cart lines onto one display model.
package lineitem

import (
	"strings"

	"giftdrive-storefront/internal/domain"
)

const (
	// PlaceholderImage is shown when a line has no image or the image fails to load.
	PlaceholderImage = "/images/placeholder-item.png"
	// UnknownTitle is the last-resort title for a line with no usable name.
	UnknownTitle = "Unknown Product"
)

// Display is the uniform view of a cart line.
type Display struct {
	Marketplace domain.Marketplace `json:"marketplace"`
	ItemID      string             `json:"itemId"`
	Title       string             `json:"displayTitle"`
	Subline     string             `json:"displaySubline,omitempty"`
	ImageURL    string             `json:"imageUrl"`
	Price       *domain.Money      `json:"price,omitempty"`
	PriceText   string             `json:"priceText,omitempty"`
	Quantity    int                `json:"quantity"`
	SourceNeed  *domain.NeedRef    `json:"sourceNeed,omitempty"`
}

// StoreView groups normalized lines under their store, with the store's
// shipping options once the backend has quoted them.
type StoreView struct {
	Store            string                  `json:"store"`
	Marketplace      domain.Marketplace      `json:"marketplace"`
	Lines            []Display               `json:"lines"`
	ShippingMethods  []domain.ShippingMethod `json:"shippingMethods,omitempty"`
	SelectedShipping *domain.ShippingMethod  `json:"selectedShippingMethod,omitempty"`
}

// Normalize converts a cart line into its display model. It is pure: the same
// line always yields the same Display.
func Normalize(line domain.CartLine) Display {
	out := Display{
		Quantity: line.Quantity,
		ImageURL: PlaceholderImage,
	}
	if ref, ok := line.Augment.SourceNeed(); ok {
		out.SourceNeed = &ref
	}

	base := strings.TrimSpace(line.Augment.BaseProductName)
	var ownTitle, variantTitle string
	var priceV2, price *domain.Money

	switch item := line.Item.(type) {
	case domain.ShopifyVariant:
		out.Marketplace = domain.MarketplaceShopify
		out.ItemID = item.ID
		if item.Product != nil {
			ownTitle = item.Product.Title
		}
		variantTitle = item.Title
		if item.Image != nil && strings.TrimSpace(item.Image.URL) != "" {
			out.ImageURL = item.Image.URL
		}
		priceV2, price = item.PriceV2, item.Price
	case domain.AmazonProduct:
		out.Marketplace = domain.MarketplaceAmazon
		out.ItemID = item.ID
		ownTitle = item.Title
		for _, img := range item.Images {
			if strings.TrimSpace(img.URL) != "" {
				out.ImageURL = img.URL
				break
			}
		}
		priceV2, price = item.PriceV2, item.Price
	case nil:
		// a line without item data still renders with fallbacks
	}

	out.Title = resolveTitle(base, ownTitle)
	out.Subline = resolveSubline(base, line.Augment.VariantDetailsText, variantTitle, out.Marketplace)
	if out.Subline == out.Title {
		out.Subline = ""
	}

	switch {
	case priceV2 != nil:
		out.Price = priceV2
	case price != nil:
		out.Price = price
	}
	if out.Price != nil {
		out.PriceText = out.Price.Display()
	}
	return out
}

// NormalizeCart normalizes every line of every store, preserving order.
func NormalizeCart(cart *domain.Cart) []StoreView {
	if cart == nil {
		return []StoreView{}
	}
	views := make([]StoreView, 0, len(cart.Stores))
	for _, store := range cart.Stores {
		view := StoreView{
			Store:       store.Name,
			Marketplace: store.Marketplace,
			Lines:       make([]Display, 0, len(store.Lines)),
		}
		for _, line := range store.Lines {
			view.Lines = append(view.Lines, Normalize(line))
		}
		if store.Offer != nil {
			view.ShippingMethods = store.Offer.ShippingMethods
			view.SelectedShipping = store.Offer.SelectedShippingMethod
		}
		views = append(views, view)
	}
	return views
}

// TitleIndex maps item ids to display titles for a store; used to name
// unavailable items in checkout banners.
func TitleIndex(store domain.Store) map[string]string {
	out := make(map[string]string, len(store.Lines))
	for _, line := range store.Lines {
		d := Normalize(line)
		if d.ItemID == "" || d.Title == UnknownTitle {
			continue
		}
		out[d.ItemID] = d.Title
	}
	return out
}

func resolveTitle(base, own string) string {
	if base != "" {
		return base
	}
	if t := strings.TrimSpace(own); t != "" {
		return t
	}
	return UnknownTitle
}

func resolveSubline(base, details, variantTitle string, m domain.Marketplace) string {
	details = strings.TrimSpace(details)
	if details != "" && details != base {
		frag := details
		if base != "" {
			frag = strings.TrimPrefix(frag, base)
		}
		frag = strings.TrimSpace(frag)
		frag = strings.TrimPrefix(frag, "- ")
		return strings.TrimSpace(frag)
	}
	if m == domain.MarketplaceShopify {
		v := strings.TrimSpace(variantTitle)
		if v != "" && v != base {
			return v
		}
	}
	return ""
}
