package domain

import "time"

// Scope discriminates the kind of ledger account.
type Scope string

const (
	// ScopeCardPool is the shared pot of funds for a card. Liability, credit-normal.
	ScopeCardPool Scope = "CARD_POOL"
	// ScopeCardMemberEquity is a member's claim on the pool. Debit-normal: it is
	// the contra side of every CARD_POOL posting, so its stored Balance is the
	// negative of the amount actually owed to the member (see DisplayBalance).
	ScopeCardMemberEquity Scope = "CARD_MEMBER_EQUITY"
	// ScopeCardPendingWithdrawal holds funds reserved for an in-flight payout.
	// Debit-normal for the same reason as ScopeCardMemberEquity.
	ScopeCardPendingWithdrawal Scope = "CARD_PENDING_WITHDRAWAL"
)

// LedgerAccount is one account in the card-scoped double-entry ledger.
// The posting engine is sign-agnostic (SPEC_FULL.md §4.1): it only ever
// decrements the debit side of an entry and increments the credit side of
// the stored Balance. Every card-scoped entry moves value between exactly
// two of the three scopes above, so Balance alone cannot be both
// credit-normal for CARD_POOL and additive for P1 (pool == sumEquity +
// pending) — the three stored balances always sum to zero (I1). CARD_POOL
// is the one scope shown to callers as its raw Balance; CARD_MEMBER_EQUITY
// and CARD_PENDING_WITHDRAWAL are stored as the negative of what a member or
// API caller should see, and DisplayBalance undoes that for them.
type LedgerAccount struct {
	ID        string    `json:"id"`
	WalletID  string    `json:"walletId"`
	CardID    string    `json:"cardId"`
	Scope     Scope     `json:"scope"`
	UserID    *string   `json:"userId,omitempty"`
	Balance   int64     `json:"balance"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"createdAt"`
}

// DisplayBalance returns the human-facing balance: Balance as-is for
// CARD_POOL, negated for the two debit-normal scopes. Every reader outside
// the posting engine (capture/withdrawal sufficiency checks, reconciliation,
// API responses) must use this instead of Balance directly.
func (a LedgerAccount) DisplayBalance() int64 {
	if a.Scope == ScopeCardPool {
		return a.Balance
	}

	return -a.Balance
}

// LedgerEntry is one leg-pair of an atomic posting. Entries are append-only
// and immutable once written.
type LedgerEntry struct {
	ID              string         `json:"id"`
	TransactionID   string         `json:"transactionId"`
	DebitAccountID  string         `json:"debitAccountId"`
	CreditAccountID string         `json:"creditAccountId"`
	Amount          int64          `json:"amount"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}
