// Package checkout drives a donor through identity, shipping and payment for
// the server-side cart.
package checkout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"giftdrive-storefront/internal/backend"
	"giftdrive-storefront/internal/domain"
	"giftdrive-storefront/internal/events"
	"giftdrive-storefront/internal/lineitem"
	"giftdrive-storefront/internal/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const cartGoneMessage = "Your cart is no longer available. Start checkout again from your cart."

type sessionRepo interface {
	Create(ctx context.Context, s domain.CheckoutSession) (*domain.CheckoutSession, error)
	Get(ctx context.Context, id string) (*domain.CheckoutSession, error)
	GetActiveByDonor(ctx context.Context, donorKey string) (*domain.CheckoutSession, error)
	Update(ctx context.Context, s domain.CheckoutSession) (*domain.CheckoutSession, error)
}

type checkoutAPI interface {
	SubmitBuyerIdentity(ctx context.Context, token, cartID string, identity domain.BuyerIdentity) (*domain.Cart, error)
	SelectShippingMethod(ctx context.Context, token, cartID, store, methodID string) (*domain.Cart, error)
	CreateStripeIntent(ctx context.Context, token string, req backend.StripeIntentRequest) (string, error)
}

type confirmer interface {
	Confirm(ctx context.Context, clientSecret string, details payment.PaymentDetails) payment.Outcome
}

type publisher interface {
	PublishCheckoutConfirmed(ctx context.Context, ev events.CheckoutConfirmed) error
}

// CartSource is the donor's authoritative cart. Load fails with
// domain.ErrBusy while a cart mutation is in flight.
type CartSource interface {
	Load(ctx context.Context) (*domain.Cart, error)
}

// Donor identifies who is checking out.
type Donor struct {
	Key   string
	Token string
	Cart  CartSource
}

// DonorKey derives the persisted donor key from a bearer token so raw tokens
// never reach the database.
func DonorKey(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

// StepResult is returned by every checkout step.
type StepResult struct {
	Session *domain.CheckoutSession `json:"session"`
	Stores  []lineitem.StoreView    `json:"stores"`
	Cost    *domain.Cost            `json:"cost,omitempty"`
	Issues  []Issue                 `json:"issues"`
	Message string                  `json:"message,omitempty"`
	Payment *payment.Outcome        `json:"payment,omitempty"`
}

type Service struct {
	repo      sessionRepo
	api       checkoutAPI
	payments  confirmer
	publisher publisher
	logger    *zap.Logger
	newID     func() string
}

func New(repo sessionRepo, api checkoutAPI, payments confirmer, pub publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &Service{
		repo:      repo,
		api:       api,
		payments:  payments,
		publisher: pub,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

// Begin starts checkout for the donor's current cart, resuming an open
// session for the same cart.
func (s *Service) Begin(ctx context.Context, donor Donor) (*StepResult, error) {
	cart, err := donor.Cart.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrMissingCartID
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart == nil || strings.TrimSpace(cart.ID) == "" {
		return nil, domain.ErrMissingCartID
	}
	if cart.LineCount() == 0 {
		return nil, domain.ErrEmptyCart
	}

	existing, err := s.repo.GetActiveByDonor(ctx, donor.Key)
	switch {
	case err == nil && existing.CartID == cart.ID:
		return s.result(existing, cart, ""), nil
	case err == nil:
		if _, err := s.fail(ctx, existing, "cart changed"); err != nil {
			return nil, err
		}
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("load active session: %w", err)
	}

	session, err := s.repo.Create(ctx, domain.CheckoutSession{
		ID:       s.newID(),
		DonorKey: donor.Key,
		CartID:   cart.ID,
		Step:     domain.StepIdentity,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info("checkout started", zap.String("session_id", session.ID), zap.String("cart_id", cart.ID))
	return s.result(session, cart, ""), nil
}

// Get returns the session with fresh cart issues.
func (s *Service) Get(ctx context.Context, donor Donor, id string) (*StepResult, error) {
	session, err := s.load(ctx, donor, id)
	if err != nil {
		return nil, err
	}
	if session.Step.IsTerminal() {
		return s.result(session, nil, ""), nil
	}
	cart, err := donor.Cart.Load(ctx)
	if err != nil {
		return s.handleCartError(ctx, session, err)
	}
	return s.result(session, cart, ""), nil
}

// SubmitIdentity attaches the buyer identity to the cart. It may be repeated
// from the shipping and payment steps.
func (s *Service) SubmitIdentity(ctx context.Context, donor Donor, id string, identity domain.BuyerIdentity) (*StepResult, error) {
	session, err := s.load(ctx, donor, id)
	if err != nil {
		return nil, err
	}
	if err := requireStep(session, domain.StepShipping, domain.StepIdentity, domain.StepShipping, domain.StepPayment); err != nil {
		return nil, err
	}
	if err := identity.Validate(); err != nil {
		return nil, err
	}

	cart, err := s.api.SubmitBuyerIdentity(ctx, donor.Token, session.CartID, identity)
	if err != nil {
		return s.handleCartError(ctx, session, fmt.Errorf("submit identity: %w", err))
	}

	session.Identity = &identity
	session.Step = domain.StepShipping
	session.ClientSecret, session.PaymentIntentID = "", ""
	updated, err := s.repo.Update(ctx, *session)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return s.result(updated, cart, ""), nil
}

// SelectShipping picks a shipping method for one store.
func (s *Service) SelectShipping(ctx context.Context, donor Donor, id, store, methodID string) (*StepResult, error) {
	session, err := s.load(ctx, donor, id)
	if err != nil {
		return nil, err
	}
	if err := requireStep(session, domain.StepShipping, domain.StepShipping, domain.StepPayment); err != nil {
		return nil, err
	}
	if strings.TrimSpace(store) == "" {
		return nil, &domain.ValidationError{Field: "store", Message: "required"}
	}
	if strings.TrimSpace(methodID) == "" {
		return nil, &domain.ValidationError{Field: "shippingId", Message: "required"}
	}

	cart, err := s.api.SelectShippingMethod(ctx, donor.Token, session.CartID, store, methodID)
	if err != nil {
		return s.handleCartError(ctx, session, fmt.Errorf("select shipping: %w", err))
	}

	session.Step = domain.StepShipping
	session.ClientSecret, session.PaymentIntentID = "", ""
	updated, err := s.repo.Update(ctx, *session)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return s.result(updated, cart, ""), nil
}

// CreatePaymentIntent requests a client secret for the cart total. Carts with
// open issues or without a positive total never reach the backend.
func (s *Service) CreatePaymentIntent(ctx context.Context, donor Donor, id string) (*StepResult, error) {
	session, err := s.load(ctx, donor, id)
	if err != nil {
		return nil, err
	}
	if err := requireStep(session, domain.StepPayment, domain.StepShipping, domain.StepPayment); err != nil {
		return nil, err
	}

	cart, err := donor.Cart.Load(ctx)
	if err != nil {
		return s.handleCartError(ctx, session, err)
	}
	res := s.result(session, cart, "")
	if len(res.Issues) > 0 {
		return res, domain.ErrBlockingIssues
	}
	total := cart.Total()
	if total == nil || !total.IsPositive() {
		return res, domain.ErrNonPositiveTotal
	}

	secret, err := s.api.CreateStripeIntent(ctx, donor.Token, backend.StripeIntentRequest{
		CartID:   session.CartID,
		Amount:   total.Value,
		Currency: total.Currency,
	})
	if err != nil {
		// The session's cart was just loaded, so a 404 here is an upstream
		// failure rather than a missing cart.
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("create payment intent: %v", err)
		}
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	session.ClientSecret = secret
	session.PaymentIntentID, _ = payment.IntentIDFromSecret(secret)
	session.Step = domain.StepPayment
	updated, err := s.repo.Update(ctx, *session)
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return s.result(updated, cart, ""), nil
}

// ConfirmPayment confirms the intent once. A failed confirmation leaves the
// session in payment so the donor can resubmit.
func (s *Service) ConfirmPayment(ctx context.Context, donor Donor, id string, details payment.PaymentDetails) (*StepResult, error) {
	session, err := s.load(ctx, donor, id)
	if err != nil {
		return nil, err
	}
	if err := requireStep(session, domain.StepConfirmed, domain.StepPayment); err != nil {
		return nil, err
	}

	outcome := s.payments.Confirm(ctx, session.ClientSecret, details)
	if !outcome.Succeeded {
		res := s.result(session, nil, outcome.Message)
		res.Payment = &outcome
		return res, nil
	}

	session.TransactionID = outcome.TransactionID
	session.Step = domain.StepConfirmed
	// The donor has been charged at this point. A failed write must not hide
	// that, so the confirmation is reported and published regardless.
	updated, err := s.repo.Update(ctx, *session)
	if err != nil {
		s.logger.Error("persist confirmed session failed",
			zap.String("session_id", session.ID),
			zap.String("transaction_id", session.TransactionID),
			zap.Error(err),
		)
		updated = session
	}
	s.logger.Info("checkout confirmed",
		zap.String("session_id", updated.ID),
		zap.String("transaction_id", updated.TransactionID),
	)
	s.publishConfirmed(ctx, donor, updated)

	res := s.result(updated, nil, "Thank you! Your donation is confirmed.")
	res.Payment = &outcome
	return res, nil
}

// Fail moves a non-terminal session to failed.
func (s *Service) Fail(ctx context.Context, donor Donor, id, reason string) (*StepResult, error) {
	session, err := s.load(ctx, donor, id)
	if err != nil {
		return nil, err
	}
	if session.Step.IsTerminal() {
		return nil, &domain.InvalidTransitionError{From: string(session.Step), To: string(domain.StepFailed)}
	}
	updated, err := s.fail(ctx, session, reason)
	if err != nil {
		return nil, err
	}
	return s.result(updated, nil, ""), nil
}

func (s *Service) publishConfirmed(ctx context.Context, donor Donor, session *domain.CheckoutSession) {
	ev := events.NewCheckoutConfirmed(session.ID, session.CartID, session.DonorKey, session.TransactionID, decimal.Zero, "")
	if cart, err := donor.Cart.Load(ctx); err == nil {
		if total := cart.Total(); total != nil {
			ev.Amount, ev.Currency = total.Decimal(), total.Currency
		}
	}
	if err := s.publisher.PublishCheckoutConfirmed(ctx, ev); err != nil {
		s.logger.Error("publish checkout confirmed failed", zap.String("session_id", session.ID), zap.Error(err))
	}
}

// handleCartError fails the session when the server-side cart is gone and
// otherwise leaves the step retryable.
func (s *Service) handleCartError(ctx context.Context, session *domain.CheckoutSession, err error) (*StepResult, error) {
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	failed, ferr := s.fail(ctx, session, "cart not found")
	if ferr != nil {
		return nil, ferr
	}
	return s.result(failed, nil, cartGoneMessage), nil
}

func (s *Service) fail(ctx context.Context, session *domain.CheckoutSession, reason string) (*domain.CheckoutSession, error) {
	session.Step = domain.StepFailed
	session.FailureReason = reason
	updated, err := s.repo.Update(ctx, *session)
	if err != nil {
		return nil, fmt.Errorf("fail session: %w", err)
	}
	s.logger.Warn("checkout failed", zap.String("session_id", updated.ID), zap.String("reason", reason))
	return updated, nil
}

func (s *Service) load(ctx context.Context, donor Donor, id string) (*domain.CheckoutSession, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.DonorKey != donor.Key {
		return nil, domain.ErrNotFound
	}
	return session, nil
}

func (s *Service) result(session *domain.CheckoutSession, cart *domain.Cart, message string) *StepResult {
	res := &StepResult{
		Session: session,
		Stores:  []lineitem.StoreView{},
		Issues:  []Issue{},
		Message: message,
	}
	if cart != nil {
		res.Stores = lineitem.NormalizeCart(cart)
		res.Cost = cart.Cost
		res.Issues = CollectIssues(cart, session.Step)
	}
	return res
}

func requireStep(session *domain.CheckoutSession, to domain.CheckoutStep, allowed ...domain.CheckoutStep) error {
	for _, step := range allowed {
		if session.Step == step {
			return nil
		}
	}
	return &domain.InvalidTransitionError{From: string(session.Step), To: string(to)}
}
