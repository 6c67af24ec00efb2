package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StatusSucceeded is the only intent status treated as a completed payment.
const StatusSucceeded = string(stripe.PaymentIntentStatusSucceeded)

// StripeConfirmer confirms intents server-side with the Stripe secret key.
type StripeConfirmer struct {
	api       *client.API
	returnURL string
}

// NewStripeConfirmer returns a nil Provider when no secret key is configured
// so the bridge reports the provider as unavailable.
func NewStripeConfirmer(secretKey, returnURL string) Provider {
	if strings.TrimSpace(secretKey) == "" {
		return nil
	}
	return newStripeConfirmer(secretKey, returnURL, nil)
}

func newStripeConfirmer(secretKey, returnURL string, backends *stripe.Backends) *StripeConfirmer {
	return &StripeConfirmer{api: client.New(secretKey, backends), returnURL: returnURL}
}

func (c *StripeConfirmer) ConfirmIntent(ctx context.Context, clientSecret, paymentMethodID string) (*Intent, error) {
	id, err := IntentIDFromSecret(clientSecret)
	if err != nil {
		return nil, err
	}

	// A retry after a lost session write must not confirm twice.
	current := &stripe.PaymentIntentParams{}
	current.Context = ctx
	pi, err := c.api.PaymentIntents.Get(id, current)
	if err != nil {
		return nil, classifyStripeError(err)
	}
	if pi.Status == stripe.PaymentIntentStatusSucceeded {
		return &Intent{ID: pi.ID, Status: string(pi.Status)}, nil
	}

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethodID),
	}
	if c.returnURL != "" {
		params.ReturnURL = stripe.String(c.returnURL)
	}
	params.Context = ctx

	pi, err = c.api.PaymentIntents.Confirm(id, params)
	if err != nil {
		return nil, classifyStripeError(err)
	}
	return &Intent{ID: pi.ID, Status: string(pi.Status)}, nil
}

// IntentIDFromSecret extracts "pi_123" from "pi_123_secret_abc".
func IntentIDFromSecret(clientSecret string) (string, error) {
	idx := strings.Index(clientSecret, "_secret_")
	if idx <= 0 {
		return "", fmt.Errorf("malformed payment intent client secret")
	}
	return clientSecret[:idx], nil
}

func classifyStripeError(err error) error {
	var sErr *stripe.Error
	if !errors.As(err, &sErr) {
		return err
	}
	switch {
	case sErr.Type == stripe.ErrorTypeCard:
		return &ProviderError{Kind: ErrorKindCard, Code: string(sErr.Code), Message: sErr.Msg}
	case sErr.Type == stripe.ErrorTypeInvalidRequest && sErr.Param != "":
		return &ProviderError{Kind: ErrorKindValidation, Code: string(sErr.Code), Message: sErr.Msg}
	}
	return &ProviderError{Kind: ErrorKindOther, Code: string(sErr.Code), Message: sErr.Msg}
}
