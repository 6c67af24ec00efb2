// Package payment confirms card payments against the payment provider once
// the backend has issued an intent client secret.
package payment

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrProviderUnavailable = errors.New("the payment provider is not available, please reload and try again")
	ErrFormNotMounted      = errors.New("the payment form is not ready, please reload the checkout page")
	ErrElementNotReady     = errors.New("enter your card details before submitting")
	ErrMissingClientSecret = errors.New("payment has not been started, go back to shipping and continue to payment")
)

const genericFailure = "Something went wrong confirming your payment. Please try again."

// Class groups confirmation failures by how the donor should react.
type Class string

const (
	ClassNone         Class = "none"
	ClassCard         Class = "card"
	ClassUnexpected   Class = "unexpected"
	ClassPrecondition Class = "precondition"
)

// PaymentDetails is what the checkout page reports about its payment form.
type PaymentDetails struct {
	FormMounted     bool   `json:"formMounted"`
	ElementReady    bool   `json:"elementReady"`
	PaymentMethodID string `json:"paymentMethodId"`
}

// Outcome is the donor-facing result of one confirmation attempt.
type Outcome struct {
	Succeeded     bool   `json:"succeeded"`
	TransactionID string `json:"transactionId,omitempty"`
	Message       string `json:"message,omitempty"`
	Class         Class  `json:"class"`
}

// ErrorKind classifies provider errors.
type ErrorKind string

const (
	ErrorKindCard       ErrorKind = "card"
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindOther      ErrorKind = "other"
)

// ProviderError is returned by providers for declined or rejected payments.
type ProviderError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Code == "" {
		return string(e.Kind) + ": " + e.Message
	}
	return string(e.Kind) + " (" + e.Code + "): " + e.Message
}

// Intent is the provider's view of a confirmed payment intent.
type Intent struct {
	ID     string
	Status string
}

// Provider confirms a payment intent identified by its client secret.
type Provider interface {
	ConfirmIntent(ctx context.Context, clientSecret, paymentMethodID string) (*Intent, error)
}

// Bridge runs the local preconditions and then a single provider call.
// It never retries.
type Bridge struct {
	provider Provider
	logger   *zap.Logger
}

// NewBridge accepts a nil provider; Confirm then fails with ErrProviderUnavailable.
func NewBridge(provider Provider, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{provider: provider, logger: logger}
}

func (b *Bridge) Confirm(ctx context.Context, clientSecret string, details PaymentDetails) Outcome {
	if err := b.check(clientSecret, details); err != nil {
		return Outcome{Message: err.Error(), Class: ClassPrecondition}
	}

	intent, err := b.provider.ConfirmIntent(ctx, clientSecret, details.PaymentMethodID)
	if err != nil {
		var pErr *ProviderError
		if errors.As(err, &pErr) && (pErr.Kind == ErrorKindCard || pErr.Kind == ErrorKindValidation) {
			b.logger.Info("payment declined", zap.String("code", pErr.Code), zap.String("kind", string(pErr.Kind)))
			return Outcome{Message: pErr.Message, Class: ClassCard}
		}
		b.logger.Error("payment confirmation failed", zap.Error(err))
		return Outcome{Message: genericFailure, Class: ClassUnexpected}
	}

	if intent == nil || intent.Status != StatusSucceeded {
		status := ""
		if intent != nil {
			status = intent.Status
		}
		b.logger.Warn("payment intent not succeeded", zap.String("status", status))
		return Outcome{Message: genericFailure, Class: ClassUnexpected}
	}
	return Outcome{Succeeded: true, TransactionID: intent.ID, Class: ClassNone}
}

func (b *Bridge) check(clientSecret string, details PaymentDetails) error {
	switch {
	case b.provider == nil:
		return ErrProviderUnavailable
	case !details.FormMounted:
		return ErrFormNotMounted
	case !details.ElementReady || strings.TrimSpace(details.PaymentMethodID) == "":
		return ErrElementNotReady
	case strings.TrimSpace(clientSecret) == "":
		return ErrMissingClientSecret
	}
	return nil
}
