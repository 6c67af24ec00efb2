package domain

import (
	"strings"
	"time"
)

// BuyerIdentity is the donor contact and shipping address attached to the cart.
type BuyerIdentity struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2,omitempty"`
	City       string `json:"city"`
	Province   string `json:"provinceCode"`
	Country    string `json:"countryCode"`
	PostalCode string `json:"postalCode"`
}

// Validate checks the fields the commerce API needs to quote shipping.
func (b BuyerIdentity) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"firstName", b.FirstName},
		{"lastName", b.LastName},
		{"email", b.Email},
		{"phone", b.Phone},
		{"address1", b.Address1},
		{"city", b.City},
		{"provinceCode", b.Province},
		{"countryCode", b.Country},
		{"postalCode", b.PostalCode},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Message: "required"}
		}
	}
	if !strings.Contains(b.Email, "@") {
		return &ValidationError{Field: "email", Message: "must be a valid email address"}
	}
	return nil
}

// CheckoutStep is a state of the checkout flow.
type CheckoutStep string

const (
	StepIdle      CheckoutStep = "idle"
	StepIdentity  CheckoutStep = "identity"
	StepShipping  CheckoutStep = "shipping"
	StepPayment   CheckoutStep = "payment"
	StepConfirmed CheckoutStep = "confirmed"
	StepFailed    CheckoutStep = "failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s CheckoutStep) IsTerminal() bool {
	return s == StepConfirmed || s == StepFailed
}

// CheckoutSession is one donor's pass through checkout for one cart.
type CheckoutSession struct {
	ID              string         `json:"id"`
	DonorKey        string         `json:"-"`
	CartID          string         `json:"cartId"`
	Step            CheckoutStep   `json:"step"`
	Identity        *BuyerIdentity `json:"identity,omitempty"`
	ClientSecret    string         `json:"clientSecret,omitempty"`
	PaymentIntentID string         `json:"paymentIntentId,omitempty"`
	TransactionID   string         `json:"transactionId,omitempty"`
	FailureReason   string         `json:"failureReason,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}
