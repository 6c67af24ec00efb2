package httpserver

import (
	"net/http"
	"strings"

	"giftdrive-storefront/internal/domain"
	"giftdrive-storefront/internal/lineitem"
	cartsvc "giftdrive-storefront/internal/service/cart"
	"giftdrive-storefront/internal/service/need"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type cartResponse struct {
	ID        string               `json:"id,omitempty"`
	Stores    []lineitem.StoreView `json:"stores"`
	Cost      *domain.Cost         `json:"cost,omitempty"`
	LineCount int                  `json:"lineCount"`
	Loading   bool                 `json:"loading"`
	Notices   []cartsvc.Notice     `json:"notices"`
	Need      *needResponse        `json:"need,omitempty"`
}

type needRefRequest struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
}

type addItemRequest struct {
	ID          string          `json:"id"`
	Marketplace string          `json:"marketplace"`
	Quantity    int             `json:"quantity"`
	Need        *needRefRequest `json:"need,omitempty"`
}

type updateItemRequest struct {
	ID          string `json:"id"`
	Marketplace string `json:"marketplace"`
	Quantity    int    `json:"quantity"`
}

func (h *handlers) cartView(store *cartsvc.Store, cart *domain.Cart) cartResponse {
	_, loading := store.Snapshot()
	notices := store.Notices()
	if notices == nil {
		notices = []cartsvc.Notice{}
	}
	resp := cartResponse{
		Stores:  lineitem.NormalizeCart(cart),
		Loading: loading,
		Notices: notices,
	}
	if cart != nil {
		resp.ID = cart.ID
		resp.Cost = cart.Cost
		resp.LineCount = cart.LineCount()
	}
	return resp
}

func (h *handlers) getCart(c *gin.Context) {
	store := h.sessions.Get(donorToken(c)).Cart
	// A failed fetch keeps the last snapshot and queues a notice for the view.
	cart, _ := store.Fetch(c.Request.Context())
	c.JSON(http.StatusOK, h.cartView(store, cart))
}

func (h *handlers) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	token := donorToken(c)
	sess := h.sessions.Get(token)
	in := cartsvc.AddInput{
		Item:     cartsvc.ItemRef{ID: strings.TrimSpace(req.ID), Marketplace: domain.Marketplace(strings.ToUpper(req.Marketplace))},
		Quantity: req.Quantity,
	}

	var ref *domain.NeedRef
	if req.Need != nil {
		kind, err := domain.ParseNeedKind(req.Need.Kind)
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		ref = &domain.NeedRef{Kind: kind, ID: req.Need.ID}
		in.Need = ref
		if cart, _ := sess.Cart.Snapshot(); cart == nil {
			_, _ = sess.Cart.Fetch(c.Request.Context())
		}
		item, err := h.itemForNeed(c, sess, *ref)
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		if in.Item.ID != "" && in.Item.ID != item.ID {
			writeError(c, h.logger, &domain.ValidationError{Field: "id", Message: "does not match the item chosen for this need"})
			return
		}
		in.Item = item
	}

	cart, err := sess.Cart.Add(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	resp := h.cartView(sess.Cart, cart)
	if ref != nil {
		resp.Need = h.refreshedNeed(c, sess, cart, *ref)
	}
	c.JSON(http.StatusOK, resp)
}

// itemForNeed resolves what to buy for a need, enforcing the card state.
func (h *handlers) itemForNeed(c *gin.Context, sess *cartsvc.Session, ref domain.NeedRef) (cartsvc.ItemRef, error) {
	n, err := h.needs.Refresh(c.Request.Context(), donorToken(c), ref)
	if err != nil {
		return cartsvc.ItemRef{}, err
	}
	cart, _ := sess.Cart.Snapshot()
	state := need.Derive(*n, need.IsNeedInCart(ref, cart), sess.Variants.Status(ref))
	switch state {
	case need.StateFulfilled, need.StateNotPurchasableOnline:
		return cartsvc.ItemRef{}, domain.ErrNotPurchasable
	case need.StateInCart:
		return cartsvc.ItemRef{}, domain.ErrNeedAlreadyInCart
	case need.StateNeedsVariantChoice:
		return cartsvc.ItemRef{}, domain.ErrVariantRequired
	}

	id := n.PurchaseID()
	if n.RequiresDonorVariantChoice() {
		id = sess.Variants.Status(ref).SelectedID
	}
	return cartsvc.ItemRef{ID: id, Marketplace: n.BaseMarketplace}, nil
}

func (h *handlers) refreshedNeed(c *gin.Context, sess *cartsvc.Session, cart *domain.Cart, ref domain.NeedRef) *needResponse {
	n, err := h.needs.Refresh(c.Request.Context(), donorToken(c), ref)
	if err != nil {
		h.logger.Warn("need refresh after add failed", zap.String("need", ref.String()), zap.Error(err))
		return nil
	}
	resp := buildNeedResponse(*n, need.IsNeedInCart(ref, cart), sess)
	return &resp
}

func (h *handlers) updateCartItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	store := h.sessions.Get(donorToken(c)).Cart
	item := cartsvc.ItemRef{ID: strings.TrimSpace(req.ID), Marketplace: domain.Marketplace(strings.ToUpper(req.Marketplace))}

	var (
		cart *domain.Cart
		err  error
	)
	if req.Quantity <= 0 {
		cart, err = store.Remove(c.Request.Context(), item)
	} else {
		cart, err = store.UpdateQuantity(c.Request.Context(), item, req.Quantity)
	}
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, h.cartView(store, cart))
}

func (h *handlers) removeCartItem(c *gin.Context) {
	store := h.sessions.Get(donorToken(c)).Cart
	item := cartsvc.ItemRef{
		ID:          strings.TrimSpace(c.Query("id")),
		Marketplace: domain.Marketplace(strings.ToUpper(c.Query("marketplace"))),
	}
	cart, err := store.Remove(c.Request.Context(), item)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, h.cartView(store, cart))
}
