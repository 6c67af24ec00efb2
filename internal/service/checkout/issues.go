package checkout

import (
	"fmt"
	"strings"

	"giftdrive-storefront/internal/domain"
	"giftdrive-storefront/internal/lineitem"
)

// CodeInvalidBuyerIdentity is expected from every store until an address
// has been submitted.
const CodeInvalidBuyerIdentity = "INVALID_BUYER_IDENTITY_INFORMATION"

// CodeNotAvailable tags issues built from offer.notAvailableIds.
const CodeNotAvailable = "NOT_AVAILABLE"

type IssueKind string

const (
	IssueStore        IssueKind = "store_error"
	IssueOffer        IssueKind = "offer_error"
	IssueNotAvailable IssueKind = "not_available"
)

// Issue is a blocking problem reported by one store.
type Issue struct {
	Store   string    `json:"store"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Kind    IssueKind `json:"kind"`
}

// CollectIssues gathers every store and offer error across all stores so the
// donor sees them at once. Identity errors are hidden before the identity has
// been submitted.
func CollectIssues(cart *domain.Cart, step domain.CheckoutStep) []Issue {
	issues := []Issue{}
	if cart == nil {
		return issues
	}
	hideIdentity := step == domain.StepIdle || step == domain.StepIdentity

	add := func(store string, kind IssueKind, errs []domain.StoreError) {
		for _, e := range errs {
			if hideIdentity && e.Code == CodeInvalidBuyerIdentity {
				continue
			}
			issues = append(issues, Issue{Store: store, Code: e.Code, Message: e.Message, Kind: kind})
		}
	}

	for _, store := range cart.Stores {
		add(store.Name, IssueStore, store.Errors)
		if store.Offer == nil {
			continue
		}
		add(store.Name, IssueOffer, store.Offer.Errors)
		issues = append(issues, unavailableIssues(store)...)
	}
	return issues
}

func unavailableIssues(store domain.Store) []Issue {
	if len(store.Offer.NotAvailableIDs) == 0 {
		return nil
	}
	titles := lineitem.TitleIndex(store)

	var out []Issue
	var unresolved []string
	for _, id := range store.Offer.NotAvailableIDs {
		title, ok := titles[id]
		if !ok {
			unresolved = append(unresolved, id)
			continue
		}
		out = append(out, Issue{
			Store:   store.Name,
			Code:    CodeNotAvailable,
			Message: fmt.Sprintf("%s is not available from %s", title, store.Name),
			Kind:    IssueNotAvailable,
		})
	}
	if len(unresolved) > 0 {
		out = append(out, Issue{
			Store:   store.Name,
			Code:    CodeNotAvailable,
			Message: fmt.Sprintf("Some items are not available from %s: %s", store.Name, strings.Join(unresolved, ", ")),
			Kind:    IssueNotAvailable,
		})
	}
	return out
}
