// Package provider is the single abstraction over the external BaaS/card
// platform (SPEC_FULL.md §4.5). Adapters live in provider/mock and
// provider/synctera. Grounded on the teacher's single-interface-multiple-
// adapters pattern used for asset/onboarding providers.
package provider

import "context"

// Customer is the result of ensureCustomer.
type Customer struct {
	ExternalCustomerID string
}

// Account is the result of ensureAccount.
type Account struct {
	ExternalAccountID string
	Status            string
	Last4             string
}

// CardResult is the result of createCard.
type CardResult struct {
	ExternalCardID string
	Last4          string
	Status         string
}

// PayoutRequest is the input to initiatePayout.
type PayoutRequest struct {
	SourceAccountID      string
	DestinationCardToken string
	AmountMinor          int64
	Currency             string
	Reference            string
}

// Payout is the result of initiatePayout.
type Payout struct {
	ExternalTransferID string
	Status             string
}

// Provider is implemented once per external BaaS/card platform.
type Provider interface {
	Name() string
	EnsureCustomer(ctx context.Context, userID, email, legalName string) (Customer, error)
	EnsureAccount(ctx context.Context, externalCustomerID, currency, templateID string) (Account, error)
	CreateCard(ctx context.Context, externalCustomerID, externalAccountID, productID, cardType, embossName string) (CardResult, error)
	InitiatePayout(ctx context.Context, req PayoutRequest) (Payout, error)
	VerifyWebhookSignature(rawBody []byte, headers map[string]string) bool
}
