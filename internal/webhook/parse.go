package webhook

import (
	"encoding/json"

	"github.com/poolcard/ledger-core/internal/domain"
)

// wireEvent is the common JSON shape every adapter emits (§6: "a JSON field
// type with values from §4.6"). Providers that diverge get their own parse
// function; this one covers the mock adapter and any BaaS provider that
// already normalises its webhook body to this shape.
type wireEvent struct {
	Type                  domain.EventType `json:"type"`
	ProviderEventID       string           `json:"providerEventId"`
	ProviderCardID        string           `json:"providerCardId"`
	ProviderAuthID        string           `json:"providerAuthId"`
	ProviderTransactionID string           `json:"providerTransactionId"`
	ProviderTransferID    string           `json:"providerTransferId"`
	ProviderAccountID     string           `json:"providerAccountId"`
	Reference             string           `json:"reference"`
	CardholderUserID      string           `json:"cardholderUserId"`
	AmountMinor           int64            `json:"amountMinor"`
	PayoutStatus          string           `json:"payoutStatus"`
	FailureReason         string           `json:"failureReason"`
	CardStatus            string           `json:"cardStatus"`
}

// ParseGenericEvent parses the canonical wire shape used by provider/mock
// and by any BaaS adapter whose webhook payload is already normalised.
func ParseGenericEvent(providerName string) func([]byte) (NormalizedEvent, error) {
	return func(raw []byte) (NormalizedEvent, error) {
		var w wireEvent
		if err := json.Unmarshal(raw, &w); err != nil {
			return NormalizedEvent{}, err
		}

		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			payload = nil
		}

		return NormalizedEvent{
			ProviderName:          providerName,
			ProviderEventID:       w.ProviderEventID,
			Type:                  w.Type,
			ProviderCardID:        w.ProviderCardID,
			ProviderAuthID:        w.ProviderAuthID,
			ProviderTransactionID: w.ProviderTransactionID,
			ProviderTransferID:    w.ProviderTransferID,
			ProviderAccountID:     w.ProviderAccountID,
			Reference:             w.Reference,
			CardholderUserID:      w.CardholderUserID,
			AmountMinor:           w.AmountMinor,
			PayoutStatus:          w.PayoutStatus,
			FailureReason:         w.FailureReason,
			CardStatus:            w.CardStatus,
			Payload:               payload,
		}, nil
	}
}
