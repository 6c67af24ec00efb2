package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// NeedKind selects which source-reference field links a cart line to a need.
type NeedKind string

const (
	NeedKindChildItem NeedKind = "child_item_id"
	NeedKindDriveItem NeedKind = "drive_item_id"
)

// ParseNeedKind accepts both the field names and the short path forms
// ("child-item", "drive-item").
func ParseNeedKind(s string) (NeedKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(NeedKindChildItem), "child-item", "child-items", "child_item":
		return NeedKindChildItem, nil
	case string(NeedKindDriveItem), "drive-item", "drive-items", "drive_item":
		return NeedKindDriveItem, nil
	}
	return "", &ValidationError{Field: "kind", Message: fmt.Sprintf("unknown need kind %q", s)}
}

// RefType is the value sent as originalNeedRefType to the backend.
func (k NeedKind) RefType() string {
	if k == NeedKindDriveItem {
		return "drive_item"
	}
	return "child_item"
}

// PathSegment is the form used in backend URLs.
func (k NeedKind) PathSegment() string {
	if k == NeedKindDriveItem {
		return "drive-items"
	}
	return "child-items"
}

// NeedRef identifies a donation need independent of its contents.
type NeedRef struct {
	Kind NeedKind `json:"kind"`
	ID   int64    `json:"id"`
}

func (r NeedRef) String() string {
	return string(r.Kind) + ":" + strconv.FormatInt(r.ID, 10)
}

// Need is a donation requirement (child item or drive item).
type Need struct {
	Kind      NeedKind `json:"-"`
	ID        int64    `json:"-"`
	ChildItem *int64   `json:"child_item_id,omitempty"`
	DriveItem *int64   `json:"drive_item_id,omitempty"`
	Needed    int      `json:"needed"`
	Remaining int      `json:"remaining"`

	BaseItemName        string      `json:"base_item_name"`
	BaseItemDescription string      `json:"base_item_description,omitempty"`
	BaseItemPhoto       string      `json:"base_item_photo,omitempty"`
	BaseItemPrice       *Money      `json:"base_item_price,omitempty"`
	BaseRyeProductID    string      `json:"base_rye_product_id,omitempty"`
	BaseMarketplace     Marketplace `json:"base_marketplace,omitempty"`

	VariantDisplayName   string `json:"variant_display_name,omitempty"`
	VariantDisplayPhoto  string `json:"variant_display_photo,omitempty"`
	VariantDisplayPrice  *Money `json:"variant_display_price,omitempty"`
	SelectedRyeVariantID string `json:"selected_rye_variant_id,omitempty"`

	AllowDonorVariantChoice bool `json:"allow_donor_variant_choice"`
	IsRyeLinked             bool `json:"is_rye_linked"`
}

// Normalize fills Kind/ID from whichever id field the backend populated.
func (n *Need) Normalize() {
	switch {
	case n.ChildItem != nil:
		n.Kind, n.ID = NeedKindChildItem, *n.ChildItem
	case n.DriveItem != nil:
		n.Kind, n.ID = NeedKindDriveItem, *n.DriveItem
	}
}

func (n Need) Ref() NeedRef {
	return NeedRef{Kind: n.Kind, ID: n.ID}
}

// IsFulfilled reports whether nothing remains to be donated.
func (n Need) IsFulfilled() bool {
	return n.Remaining <= 0
}

// HasPreselectedVariant reports whether the organization already chose a variant.
func (n Need) HasPreselectedVariant() bool {
	return strings.TrimSpace(n.SelectedRyeVariantID) != ""
}

// RequiresDonorVariantChoice reports whether the donor must pick a variant first.
func (n Need) RequiresDonorVariantChoice() bool {
	return n.AllowDonorVariantChoice && !n.HasPreselectedVariant()
}

func (n Need) DisplayName() string {
	if n.VariantDisplayName != "" {
		return n.VariantDisplayName
	}
	return n.BaseItemName
}

func (n Need) DisplayPhoto() string {
	if n.VariantDisplayPhoto != "" {
		return n.VariantDisplayPhoto
	}
	return n.BaseItemPhoto
}

func (n Need) DisplayPrice() *Money {
	if n.VariantDisplayPrice != nil {
		return n.VariantDisplayPrice
	}
	return n.BaseItemPrice
}

// PurchaseID is the Rye id added to the cart when no donor choice is involved.
func (n Need) PurchaseID() string {
	if n.HasPreselectedVariant() {
		return n.SelectedRyeVariantID
	}
	return n.BaseRyeProductID
}

// Variant is a purchasable option of an upstream marketplace product.
type Variant struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	PriceV2     *Money `json:"priceV2,omitempty"`
	IsAvailable bool   `json:"isAvailable"`
}
