// Package cart holds the per-donor view of the authoritative server cart.
//
// The backend owns the cart. Every mutation is followed by exactly one
// re-fetch and the snapshot is only ever replaced by a server response.
package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"giftdrive-storefront/internal/backend"
	"giftdrive-storefront/internal/domain"
	"giftdrive-storefront/internal/service/need"
	"go.uber.org/zap"
)

type cartAPI interface {
	GetCart(ctx context.Context, token string) (*domain.Cart, error)
	AddToCart(ctx context.Context, token string, req backend.AddToCartRequest) error
	RemoveFromCart(ctx context.Context, token string, req backend.RemoveFromCartRequest) error
	UpdateCartItem(ctx context.Context, token string, req backend.UpdateCartItemRequest) error
}

// NoticeLevel classifies a dismissible notice.
type NoticeLevel string

const (
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient, dismissible failure message for the donor.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// ItemRef addresses a cart line by its marketplace item id.
type ItemRef struct {
	ID          string             `json:"id"`
	Marketplace domain.Marketplace `json:"marketplace"`
}

func (r ItemRef) validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return &domain.ValidationError{Field: "id", Message: "required"}
	}
	if _, ok := domain.ParseMarketplace(string(r.Marketplace)); !ok {
		return &domain.ValidationError{Field: "marketplace", Message: "must be SHOPIFY or AMAZON"}
	}
	return nil
}

// AddInput describes an item to add. Need links the line to its source need.
type AddInput struct {
	Item     ItemRef
	Quantity int
	Need     *domain.NeedRef
}

// Store is one donor's cart handle.
type Store struct {
	api    cartAPI
	token  string
	logger *zap.Logger

	mu      sync.Mutex
	cart    *domain.Cart
	loading bool
	notices []Notice
}

func NewStore(api cartAPI, token string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{api: api, token: token, logger: logger}
}

// Snapshot returns the last server cart (nil before the first load) and
// whether a load or mutation is in flight.
func (s *Store) Snapshot() (*domain.Cart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart, s.loading
}

// Notices drains the queued notices.
func (s *Store) Notices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.notices
	s.notices = nil
	return out
}

// Fetch reloads the cart. On failure the previous snapshot is kept and a
// notice is queued. A Fetch issued while another operation is in flight is
// a no-op that returns the current snapshot.
func (s *Store) Fetch(ctx context.Context) (*domain.Cart, error) {
	if !s.begin() {
		cart, _ := s.Snapshot()
		return cart, nil
	}
	defer s.end()
	return s.refetch(ctx)
}

// Load reloads the cart for callers that must not act on a stale snapshot,
// such as sizing a payment. It fails with domain.ErrBusy instead of returning
// the snapshot while another operation is in flight.
func (s *Store) Load(ctx context.Context) (*domain.Cart, error) {
	if !s.begin() {
		return nil, domain.ErrBusy
	}
	defer s.end()
	return s.refetch(ctx)
}

// Add adds an item and re-fetches. A second line for the same need is
// rejected without calling the backend.
func (s *Store) Add(ctx context.Context, in AddInput) (*domain.Cart, error) {
	if err := in.Item.validate(); err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, &domain.ValidationError{Field: "quantity", Message: "must be positive"}
	}
	if !s.begin() {
		return nil, domain.ErrBusy
	}
	defer s.end()

	req := backend.AddToCartRequest{
		RyeIDToAdd:         in.Item.ID,
		MarketplaceForItem: in.Item.Marketplace,
		Quantity:           in.Quantity,
	}
	if in.Need != nil {
		s.mu.Lock()
		current := s.cart
		s.mu.Unlock()
		if need.IsNeedInCart(*in.Need, current) {
			return current, domain.ErrNeedAlreadyInCart
		}
		id := in.Need.ID
		req.OriginalNeedRefID = &id
		req.OriginalNeedRefType = in.Need.Kind.RefType()
	}

	return s.mutate(ctx, "add", in.Item, func() error {
		return s.api.AddToCart(ctx, s.token, req)
	})
}

// Remove deletes a line and re-fetches.
func (s *Store) Remove(ctx context.Context, item ItemRef) (*domain.Cart, error) {
	if err := item.validate(); err != nil {
		return nil, err
	}
	if !s.begin() {
		return nil, domain.ErrBusy
	}
	defer s.end()

	return s.mutate(ctx, "remove", item, func() error {
		return s.api.RemoveFromCart(ctx, s.token, backend.RemoveFromCartRequest{
			RyeIDToRemove:      item.ID,
			MarketplaceForItem: item.Marketplace,
		})
	})
}

// UpdateQuantity sets a line quantity and re-fetches. Quantities below one
// are rejected; callers decide whether that means Remove.
func (s *Store) UpdateQuantity(ctx context.Context, item ItemRef, qty int) (*domain.Cart, error) {
	if err := item.validate(); err != nil {
		return nil, err
	}
	if qty <= 0 {
		return nil, &domain.ValidationError{Field: "quantity", Message: "must be positive"}
	}
	if !s.begin() {
		return nil, domain.ErrBusy
	}
	defer s.end()

	return s.mutate(ctx, "update", item, func() error {
		return s.api.UpdateCartItem(ctx, s.token, backend.UpdateCartItemRequest{
			RyeIDToUpdate:      item.ID,
			MarketplaceForItem: item.Marketplace,
			Quantity:           qty,
		})
	})
}

func (s *Store) mutate(ctx context.Context, op string, item ItemRef, call func() error) (*domain.Cart, error) {
	callErr := call()
	if callErr != nil {
		s.logger.Warn("cart mutation failed",
			zap.String("op", op),
			zap.String("item", item.ID),
			zap.String("marketplace", string(item.Marketplace)),
			zap.Error(callErr),
		)
	}

	cart, fetchErr := s.refetch(ctx)
	if callErr != nil {
		return cart, fmt.Errorf("cart %s: %w", op, callErr)
	}
	return cart, fetchErr
}

// refetch must run between begin and end.
func (s *Store) refetch(ctx context.Context) (*domain.Cart, error) {
	cart, err := s.api.GetCart(ctx, s.token)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.logger.Warn("cart fetch failed", zap.Error(err))
		msg := "We couldn't refresh your cart. Showing the last known contents."
		if errors.Is(err, domain.ErrNotFound) {
			msg = "Your cart could not be found."
		}
		s.notices = append(s.notices, Notice{Level: NoticeWarning, Message: msg})
		return s.cart, fmt.Errorf("fetch cart: %w", err)
	}
	s.cart = cart
	return cart, nil
}

func (s *Store) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return false
	}
	s.loading = true
	return true
}

func (s *Store) end() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}
