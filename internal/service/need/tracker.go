// Package need derives the donor-facing state of a donation need from the
// authoritative cart and the need's backend-computed remaining count.
package need

import (
	"context"
	"fmt"

	"giftdrive-storefront/internal/domain"
	"go.uber.org/zap"
)

// IsNeedInCart reports whether any line in any store was added for ref.
// A nil cart never contains a need.
func IsNeedInCart(ref domain.NeedRef, cart *domain.Cart) bool {
	if cart == nil {
		return false
	}
	for _, store := range cart.Stores {
		for _, line := range store.Lines {
			if id, ok := line.Augment.SourceID(ref.Kind); ok && id == ref.ID {
				return true
			}
		}
	}
	return false
}

// Index maps source needs to their cart lines. Build it once per need list
// instead of scanning the cart for every need.
type Index struct {
	lines map[domain.NeedRef]domain.CartLine
}

func NewIndex(cart *domain.Cart) Index {
	idx := Index{lines: make(map[domain.NeedRef]domain.CartLine)}
	if cart == nil {
		return idx
	}
	for _, store := range cart.Stores {
		for _, line := range store.Lines {
			for _, kind := range []domain.NeedKind{domain.NeedKindChildItem, domain.NeedKindDriveItem} {
				if id, ok := line.Augment.SourceID(kind); ok {
					ref := domain.NeedRef{Kind: kind, ID: id}
					if _, seen := idx.lines[ref]; !seen {
						idx.lines[ref] = line
					}
				}
			}
		}
	}
	return idx
}

func (i Index) Contains(ref domain.NeedRef) bool {
	_, ok := i.lines[ref]
	return ok
}

// Line returns the cart line added for ref.
func (i Index) Line(ref domain.NeedRef) (domain.CartLine, bool) {
	line, ok := i.lines[ref]
	return line, ok
}

// State is the mutually exclusive action state of a need card.
type State int

const (
	StateFulfilled State = iota
	StateInCart
	StateNeedsVariantChoice
	StateNotPurchasableOnline
	StatePurchasable
)

func (s State) String() string {
	switch s {
	case StateFulfilled:
		return "fulfilled"
	case StateInCart:
		return "in_cart"
	case StateNeedsVariantChoice:
		return "needs_variant_choice"
	case StateNotPurchasableOnline:
		return "not_purchasable_online"
	case StatePurchasable:
		return "purchasable"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CanAddToCart is true only for StatePurchasable.
func (s State) CanAddToCart() bool {
	return s == StatePurchasable
}

// VariantStatus is what the variant resolver knows about a need.
type VariantStatus struct {
	Fetched        bool
	AvailableCount int
	SelectedID     string
}

// Derive evaluates the states in priority order: fulfilled, in cart, needs
// variant choice, not purchasable online, purchasable.
func Derive(n domain.Need, inCart bool, vs VariantStatus) State {
	if n.IsFulfilled() {
		return StateFulfilled
	}
	if inCart {
		return StateInCart
	}
	if n.RequiresDonorVariantChoice() {
		if !n.IsRyeLinked || n.BaseRyeProductID == "" {
			return StateNotPurchasableOnline
		}
		if vs.Fetched && vs.AvailableCount == 0 {
			return StateNotPurchasableOnline
		}
		if vs.SelectedID == "" {
			return StateNeedsVariantChoice
		}
		return StatePurchasable
	}
	if !n.IsRyeLinked || n.PurchaseID() == "" {
		return StateNotPurchasableOnline
	}
	return StatePurchasable
}

type needAPI interface {
	GetNeed(ctx context.Context, token string, ref domain.NeedRef) (*domain.Need, error)
}

// Refresher reloads needs after cart mutations so remaining counts always
// come from the backend.
type Refresher struct {
	api    needAPI
	logger *zap.Logger
}

func NewRefresher(api needAPI, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{api: api, logger: logger}
}

func (r *Refresher) Refresh(ctx context.Context, token string, ref domain.NeedRef) (*domain.Need, error) {
	n, err := r.api.GetNeed(ctx, token, ref)
	if err != nil {
		r.logger.Warn("refresh need failed", zap.String("need", ref.String()), zap.Error(err))
		return nil, fmt.Errorf("refresh need %s: %w", ref, err)
	}
	return n, nil
}
