// Package variant resolves and remembers the donor's variant choice for needs
// that let the donor pick an option (size, color) before buying.
package variant

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"giftdrive-storefront/internal/domain"
	"giftdrive-storefront/internal/service/need"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type variantAPI interface {
	FetchVariants(ctx context.Context, token, ryeProductID string, marketplace domain.Marketplace) ([]domain.Variant, error)
}

// Selection is the resolved variant list for one need plus the donor's pick.
type Selection struct {
	Need       domain.NeedRef   `json:"need"`
	Variants   []domain.Variant `json:"variants"`
	SelectedID string           `json:"selectedVariantId,omitempty"`
}

// AvailableCount returns how many variants can be purchased.
func (s Selection) AvailableCount() int {
	n := 0
	for _, v := range s.Variants {
		if v.IsAvailable {
			n++
		}
	}
	return n
}

// Selected returns the chosen variant if it is still in the list.
func (s Selection) Selected() (domain.Variant, bool) {
	if s.SelectedID == "" {
		return domain.Variant{}, false
	}
	for _, v := range s.Variants {
		if v.ID == s.SelectedID {
			return v, true
		}
	}
	return domain.Variant{}, false
}

// CanAdd is false with zero available variants and until an available
// variant is selected.
func (s Selection) CanAdd() bool {
	v, ok := s.Selected()
	return ok && v.IsAvailable
}

func (s Selection) clone() Selection {
	out := s
	out.Variants = append([]domain.Variant(nil), s.Variants...)
	return out
}

// Resolver is per donor. Concurrent Resolve calls for the same need share a
// single upstream request and later calls are served from memory.
type Resolver struct {
	api    variantAPI
	token  string
	logger *zap.Logger

	group singleflight.Group

	mu       sync.RWMutex
	resolved map[domain.NeedRef]Selection
}

func NewResolver(api variantAPI, token string, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		api:      api,
		token:    token,
		logger:   logger,
		resolved: make(map[domain.NeedRef]Selection),
	}
}

// Resolve fetches the variants of n's base product once and auto-selects the
// first available one.
func (r *Resolver) Resolve(ctx context.Context, n domain.Need) (Selection, error) {
	if !n.AllowDonorVariantChoice {
		return Selection{}, &domain.ValidationError{Field: "need", Message: "this item does not offer a choice of options"}
	}
	productID := strings.TrimSpace(n.BaseRyeProductID)
	if productID == "" {
		return Selection{}, &domain.ValidationError{Field: "need", Message: "this item is not linked to an online product"}
	}
	ref := n.Ref()

	if sel, ok := r.lookup(ref); ok {
		return sel, nil
	}

	v, err, shared := r.group.Do(ref.String(), func() (interface{}, error) {
		if sel, ok := r.lookup(ref); ok {
			return sel, nil
		}
		// Shared by every waiter, so one caller going away must not cancel it.
		// The backend client's timeout still bounds the call.
		variants, err := r.api.FetchVariants(context.WithoutCancel(ctx), r.token, productID, n.BaseMarketplace)
		if err != nil {
			return nil, err
		}
		sel := Selection{Need: ref, Variants: variants}
		for _, v := range variants {
			if v.IsAvailable {
				sel.SelectedID = v.ID
				break
			}
		}
		r.mu.Lock()
		r.resolved[ref] = sel
		r.mu.Unlock()
		r.logger.Debug("variants resolved",
			zap.String("need", ref.String()),
			zap.Int("variants", len(variants)),
			zap.Int("available", sel.AvailableCount()),
		)
		return sel.clone(), nil
	})
	if err != nil {
		return Selection{}, fmt.Errorf("fetch variants for %s: %w", ref, err)
	}
	sel := v.(Selection)
	if shared {
		sel = sel.clone()
	}
	return sel, nil
}

// Select overrides the auto-selected variant.
func (r *Resolver) Select(ref domain.NeedRef, variantID string) (Selection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sel, ok := r.resolved[ref]
	if !ok {
		return Selection{}, fmt.Errorf("variants for %s: %w", ref, domain.ErrNotFound)
	}
	for _, v := range sel.Variants {
		if v.ID == variantID {
			if !v.IsAvailable {
				return Selection{}, domain.ErrVariantUnavailable
			}
			sel.SelectedID = variantID
			r.resolved[ref] = sel
			return sel.clone(), nil
		}
	}
	return Selection{}, domain.ErrVariantUnavailable
}

// Get returns the resolved selection without touching the network.
func (r *Resolver) Get(ref domain.NeedRef) (Selection, bool) {
	return r.lookup(ref)
}

// Status reports what the need tracker needs to derive a card state.
func (r *Resolver) Status(ref domain.NeedRef) need.VariantStatus {
	sel, ok := r.lookup(ref)
	if !ok {
		return need.VariantStatus{}
	}
	status := need.VariantStatus{Fetched: true, AvailableCount: sel.AvailableCount()}
	if sel.CanAdd() {
		status.SelectedID = sel.SelectedID
	}
	return status
}

func (r *Resolver) lookup(ref domain.NeedRef) (Selection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sel, ok := r.resolved[ref]
	if !ok {
		return Selection{}, false
	}
	return sel.clone(), true
}
