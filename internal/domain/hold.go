package domain

import "time"

// HoldStatus is the lifecycle status of a card authorisation hold.
type HoldStatus string

const (
	HoldPending  HoldStatus = "PENDING"
	HoldCleared  HoldStatus = "CLEARED"
	HoldReversed HoldStatus = "REVERSED"
	HoldExpired  HoldStatus = "EXPIRED"
)

// CardAuthHold is a reserved amount against a card's available balance,
// created on authorisation and resolved on clearing, reversal or expiry.
// Unique on (ProviderName, ProviderAuthID).
type CardAuthHold struct {
	ID           string     `json:"id"`
	WalletID     string     `json:"walletId"`
	CardID       string     `json:"cardId"`
	ProviderName string     `json:"providerName"`
	ProviderAuthID string   `json:"providerAuthId"`
	AmountMinor  int64      `json:"amountMinor"`
	Status       HoldStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
}
