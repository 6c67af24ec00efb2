package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrBusy is returned when a cart mutation is issued while another one is in flight.
	ErrBusy = errors.New("cart is being updated, try again when the current update finishes")
	// ErrNeedAlreadyInCart rejects a second cart line for the same donation need.
	ErrNeedAlreadyInCart = errors.New("this item is already in your cart")
	// ErrMissingCartID is returned when checkout is attempted without a server-side cart.
	ErrMissingCartID = errors.New("your cart could not be found, add an item before checking out")
	// ErrEmptyCart is returned when checkout is attempted with no lines.
	ErrEmptyCart = errors.New("your cart is empty")
	// ErrNonPositiveTotal blocks payment intent creation when no payable total exists.
	ErrNonPositiveTotal = errors.New("cannot proceed to payment: the order total is not available yet")
	// ErrVariantRequired blocks add-to-cart until a variant has been chosen.
	ErrVariantRequired = errors.New("choose an option before adding this item")
	// ErrVariantUnavailable is returned when the chosen variant cannot be purchased.
	ErrVariantUnavailable = errors.New("the selected option is not available")
	// ErrNotPurchasable is returned for needs that cannot be bought online.
	ErrNotPurchasable = errors.New("this item cannot be purchased online")
	// ErrBlockingIssues is returned when stores report problems that must be fixed first.
	ErrBlockingIssues = errors.New("resolve the cart issues before continuing to payment")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InvalidTransitionError is returned when a checkout step is invoked out of order.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid checkout transition from %s to %s", e.From, e.To)
}
