package domain

import "time"

// WithdrawalStatus is the lifecycle status of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalPending    WithdrawalStatus = "PENDING"
	WithdrawalProcessing WithdrawalStatus = "PROCESSING"
	WithdrawalCompleted  WithdrawalStatus = "COMPLETED"
	WithdrawalFailed     WithdrawalStatus = "FAILED"
	WithdrawalCancelled  WithdrawalStatus = "CANCELLED"
)

// WithdrawalRequest is a member's request to pull equity out through the
// payout provider. The ledger posting and the provider payout are
// coordinated in two phases by internal/withdrawal.Coordinator.
type WithdrawalRequest struct {
	ID                  string           `json:"id"`
	WalletID            string           `json:"walletId"`
	CardID              string           `json:"cardId"`
	UserID              string           `json:"userId"`
	AmountMinor         int64            `json:"amountMinor"`
	Currency            string           `json:"currency"`
	Status              WithdrawalStatus `json:"status"`
	FailureReason       string           `json:"failureReason,omitempty"`
	CreatedAt           time.Time        `json:"createdAt"`
	CompletedAt         *time.Time       `json:"completedAt,omitempty"`
	FailedAt            *time.Time       `json:"failedAt,omitempty"`
	LedgerTransactionID string           `json:"ledgerTransactionId,omitempty"`
}

// TransferStatus is the lifecycle status of a provider-side payout transfer.
type TransferStatus string

const (
	TransferPending   TransferStatus = "PENDING"
	TransferCompleted TransferStatus = "COMPLETED"
	TransferFailed    TransferStatus = "FAILED"
)

// WithdrawalTransfer is the provider-side leg of a withdrawal request.
// Unique on (ProviderName, ProviderTransferID) when ProviderTransferID is set.
type WithdrawalTransfer struct {
	ID                  string         `json:"id"`
	WithdrawalRequestID string         `json:"withdrawalRequestId"`
	ProviderName        string         `json:"providerName"`
	ProviderTransferID  string         `json:"providerTransferId,omitempty"`
	AmountMinor         int64          `json:"amountMinor"`
	Status              TransferStatus `json:"status"`
}

// IsTerminal reports whether the transfer has reached a status that no
// further callback may change (§4.4 ordering guarantees).
func (t WithdrawalTransfer) IsTerminal() bool {
	return t.Status == TransferCompleted || t.Status == TransferFailed
}
