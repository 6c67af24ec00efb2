package httpserver

import (
	"context"
	"errors"
	"time"

	"giftdrive-storefront/internal/domain"
	"giftdrive-storefront/internal/payment"
	cartsvc "giftdrive-storefront/internal/service/cart"
	checkoutsvc "giftdrive-storefront/internal/service/checkout"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type sessionRegistry interface {
	Get(token string) *cartsvc.Session
}

type needService interface {
	Refresh(ctx context.Context, token string, ref domain.NeedRef) (*domain.Need, error)
}

type checkoutService interface {
	Begin(ctx context.Context, donor checkoutsvc.Donor) (*checkoutsvc.StepResult, error)
	Get(ctx context.Context, donor checkoutsvc.Donor, id string) (*checkoutsvc.StepResult, error)
	SubmitIdentity(ctx context.Context, donor checkoutsvc.Donor, id string, identity domain.BuyerIdentity) (*checkoutsvc.StepResult, error)
	SelectShipping(ctx context.Context, donor checkoutsvc.Donor, id, store, methodID string) (*checkoutsvc.StepResult, error)
	CreatePaymentIntent(ctx context.Context, donor checkoutsvc.Donor, id string) (*checkoutsvc.StepResult, error)
	ConfirmPayment(ctx context.Context, donor checkoutsvc.Donor, id string, details payment.PaymentDetails) (*checkoutsvc.StepResult, error)
}

// Deps carries the services the routes need.
type Deps struct {
	Sessions    sessionRegistry
	Needs       needService
	Checkout    checkoutService
	CORSOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db pinger, deps Deps) (*gin.Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Sessions == nil || deps.Needs == nil || deps.Checkout == nil {
		return nil, errors.New("httpserver: sessions, needs and checkout dependencies are required")
	}

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(customRecovery(logger), loggingMiddleware(logger))
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{
		sessions: deps.Sessions,
		needs:    deps.Needs,
		checkout: deps.Checkout,
		logger:   logger,
	}

	sf := router.Group("/storefront", donorMiddleware())
	sf.GET("/cart", h.getCart)
	sf.POST("/cart/items", h.addCartItem)
	sf.PATCH("/cart/items", h.updateCartItem)
	sf.DELETE("/cart/items", h.removeCartItem)

	sf.GET("/needs/:kind/:id", h.getNeed)
	sf.POST("/needs/:kind/:id/variants", h.resolveVariants)
	sf.PUT("/needs/:kind/:id/variants/selection", h.selectVariant)

	sf.POST("/checkout", h.beginCheckout)
	sf.GET("/checkout/:id", h.getCheckout)
	sf.POST("/checkout/:id/identity", h.submitIdentity)
	sf.POST("/checkout/:id/shipping", h.selectShipping)
	sf.POST("/checkout/:id/payment-intent", h.createPaymentIntent)
	sf.POST("/checkout/:id/confirm", h.confirmPayment)

	return router, nil
}

type handlers struct {
	sessions sessionRegistry
	needs    needService
	checkout checkoutService
	logger   *zap.Logger
}
