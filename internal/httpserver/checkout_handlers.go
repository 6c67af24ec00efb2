package httpserver

import (
	"net/http"

	"giftdrive-storefront/internal/domain"
	"giftdrive-storefront/internal/payment"
	checkoutsvc "giftdrive-storefront/internal/service/checkout"
	"github.com/gin-gonic/gin"
)

type shippingRequest struct {
	Store      string `json:"store"`
	ShippingID string `json:"shippingId"`
}

func (h *handlers) donor(c *gin.Context) checkoutsvc.Donor {
	token := donorToken(c)
	return checkoutsvc.Donor{
		Key:   checkoutsvc.DonorKey(token),
		Token: token,
		Cart:  h.sessions.Get(token).Cart,
	}
}

func (h *handlers) beginCheckout(c *gin.Context) {
	res, err := h.checkout.Begin(c.Request.Context(), h.donor(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) getCheckout(c *gin.Context) {
	res, err := h.checkout.Get(c.Request.Context(), h.donor(c), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) submitIdentity(c *gin.Context) {
	var identity domain.BuyerIdentity
	if err := c.ShouldBindJSON(&identity); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	res, err := h.checkout.SubmitIdentity(c.Request.Context(), h.donor(c), c.Param("id"), identity)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) selectShipping(c *gin.Context) {
	var req shippingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	res, err := h.checkout.SelectShipping(c.Request.Context(), h.donor(c), c.Param("id"), req.Store, req.ShippingID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) createPaymentIntent(c *gin.Context) {
	res, err := h.checkout.CreatePaymentIntent(c.Request.Context(), h.donor(c), c.Param("id"))
	if err != nil {
		writeResultError(c, h.logger, err, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) confirmPayment(c *gin.Context) {
	var details payment.PaymentDetails
	if err := c.ShouldBindJSON(&details); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	res, err := h.checkout.ConfirmPayment(c.Request.Context(), h.donor(c), c.Param("id"), details)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	status := http.StatusOK
	if res.Payment != nil && !res.Payment.Succeeded {
		status = http.StatusPaymentRequired
	}
	c.JSON(status, res)
}
