package domain

import "time"

// EventType discriminates a normalised provider webhook event.
type EventType string

const (
	EventCardAuth         EventType = "CARD_AUTH"
	EventCardAuthReversal EventType = "CARD_AUTH_REVERSAL"
	EventCardClearing     EventType = "CARD_CLEARING"
	EventWalletFunding    EventType = "WALLET_FUNDING"
	EventPayoutStatus     EventType = "PAYOUT_STATUS"
	EventKYCVerification  EventType = "KYC_VERIFICATION"
	EventAccountStatus    EventType = "ACCOUNT_STATUS"
	EventCardStatus       EventType = "CARD_STATUS"
)

// BaasEvent is the raw-audit journal row for an inbound provider webhook.
// Unique on (ProviderName, ProviderEventID). Retained indefinitely; does NOT
// double as the dedup key (see ProcessedEvent and SPEC_FULL.md §4.6/§9).
type BaasEvent struct {
	ProviderName   string         `json:"providerName"`
	ProviderEventID string        `json:"providerEventId"`
	Type           EventType      `json:"type"`
	Payload        map[string]any `json:"payload"`
	ReceivedAt     time.Time      `json:"receivedAt"`
	ProcessedAt    *time.Time     `json:"processedAt,omitempty"`
}

// ProcessedEvent is the dedicated at-most-once dedup row, inserted only
// inside a successful handler transaction. Unique on (ProviderName, ProviderEventID).
type ProcessedEvent struct {
	ProviderName    string    `json:"providerName"`
	ProviderEventID string    `json:"providerEventId"`
	ProcessedAt     time.Time `json:"processedAt"`
}
