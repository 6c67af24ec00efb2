package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"giftdrive-storefront/internal/domain"
	cartsvc "giftdrive-storefront/internal/service/cart"
	"giftdrive-storefront/internal/service/need"
	"giftdrive-storefront/internal/service/variant"
	"github.com/gin-gonic/gin"
)

type needResponse struct {
	Need         domain.Need        `json:"need"`
	Ref          domain.NeedRef     `json:"ref"`
	DisplayName  string             `json:"displayName"`
	DisplayPhoto string             `json:"displayPhoto,omitempty"`
	DisplayPrice *domain.Money      `json:"displayPrice,omitempty"`
	State        need.State         `json:"state"`
	CanAddToCart bool               `json:"canAddToCart"`
	Variants     *variant.Selection `json:"variants,omitempty"`
}

type selectVariantRequest struct {
	VariantID string `json:"variantId"`
}

func buildNeedResponse(n domain.Need, inCart bool, sess *cartsvc.Session) needResponse {
	ref := n.Ref()
	state := need.Derive(n, inCart, sess.Variants.Status(ref))
	resp := needResponse{
		Need:         n,
		Ref:          ref,
		DisplayName:  n.DisplayName(),
		DisplayPhoto: n.DisplayPhoto(),
		DisplayPrice: n.DisplayPrice(),
		State:        state,
		CanAddToCart: state.CanAddToCart(),
	}
	if sel, ok := sess.Variants.Get(ref); ok {
		resp.Variants = &sel
	}
	return resp
}

func parseNeedRef(c *gin.Context) (domain.NeedRef, error) {
	kind, err := domain.ParseNeedKind(c.Param("kind"))
	if err != nil {
		return domain.NeedRef{}, err
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return domain.NeedRef{}, &domain.ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	return domain.NeedRef{Kind: kind, ID: id}, nil
}

// loadNeed refreshes the need and the cart snapshot it is compared against.
func (h *handlers) loadNeed(c *gin.Context) (*domain.Need, *cartsvc.Session, bool) {
	ref, err := parseNeedRef(c)
	if err != nil {
		writeError(c, h.logger, err)
		return nil, nil, false
	}
	token := donorToken(c)
	n, err := h.needs.Refresh(c.Request.Context(), token, ref)
	if err != nil {
		writeError(c, h.logger, err)
		return nil, nil, false
	}
	sess := h.sessions.Get(token)
	if cart, _ := sess.Cart.Snapshot(); cart == nil {
		_, _ = sess.Cart.Fetch(c.Request.Context())
	}
	return n, sess, true
}

func (h *handlers) inCart(sess *cartsvc.Session, ref domain.NeedRef) bool {
	cart, _ := sess.Cart.Snapshot()
	return need.NewIndex(cart).Contains(ref)
}

func (h *handlers) getNeed(c *gin.Context) {
	n, sess, ok := h.loadNeed(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, buildNeedResponse(*n, h.inCart(sess, n.Ref()), sess))
}

func (h *handlers) resolveVariants(c *gin.Context) {
	n, sess, ok := h.loadNeed(c)
	if !ok {
		return
	}
	if _, err := sess.Variants.Resolve(c.Request.Context(), *n); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, buildNeedResponse(*n, h.inCart(sess, n.Ref()), sess))
}

func (h *handlers) selectVariant(c *gin.Context) {
	var req selectVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.VariantID) == "" {
		badRequest(c, "variantId is required")
		return
	}
	n, sess, ok := h.loadNeed(c)
	if !ok {
		return
	}
	if _, err := sess.Variants.Select(n.Ref(), strings.TrimSpace(req.VariantID)); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, buildNeedResponse(*n, h.inCart(sess, n.Ref()), sess))
}
