// Package postingengine applies atomic, balanced ledger postings keyed by a
// caller-supplied transaction id (SPEC_FULL.md §4.1). It is storage-agnostic:
// callers supply a Repository and TxRunner port, grounded on the teacher's
// UseCase-with-injected-repositories pattern (components/ledger/internal/services).
package postingengine

import (
	"context"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/pkg/apperr"
	"github.com/poolcard/ledger-core/pkg/ledgerassert"
	"github.com/poolcard/ledger-core/pkg/mlog"
	"github.com/poolcard/ledger-core/pkg/mopentelemetry"
)

// Entry is one requested leg-pair of a posting, before persistence.
type Entry struct {
	DebitAccountID  string
	CreditAccountID string
	Amount          int64
	Metadata        map[string]any
}

// Result is what a successful (or idempotently replayed) Post returns.
type Result struct {
	Entries  []domain.LedgerEntry
	Accounts map[string]domain.LedgerAccount
	Replayed bool
}

// TxRunner wraps a set of repository calls in one storage transaction.
type TxRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Repository is the storage port the engine depends on. Implementations
// live under internal/storage/*.
type Repository interface {
	// FindEntriesByTransactionID returns previously written entries for
	// transactionID, or an empty slice if none exist yet.
	FindEntriesByTransactionID(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error)
	// LockAccountsForUpdate locks and returns the given accounts within the
	// current transaction. Missing ids are simply absent from the result.
	LockAccountsForUpdate(ctx context.Context, accountIDs []string) (map[string]domain.LedgerAccount, error)
	// InsertEntries persists entries and applies balance deltas (accountID ->
	// signed delta) in the same transaction.
	InsertEntries(ctx context.Context, entries []domain.LedgerEntry, deltas map[string]int64) error
}

// IDGenerator produces entry ids. Swappable in tests.
type IDGenerator func() string

// Engine is the single write path for CARD_POOL / CARD_MEMBER_EQUITY /
// CARD_PENDING_WITHDRAWAL balance changes.
type Engine struct {
	Repo      Repository
	TxRunner  TxRunner
	Logger    mlog.Logger
	Telemetry *mopentelemetry.Telemetry
	NewID     IDGenerator
}

const entityType = "LedgerEntry"

// Post applies one atomic balanced set of entries under transactionID. If
// entries already exist for transactionID, it returns them unchanged
// (idempotent replay) without writing again.
func (e *Engine) Post(ctx context.Context, transactionID string, entries []Entry) (*Result, error) {
	ctx, span := e.Telemetry.Start(ctx, "postingengine.post")
	defer span.End()

	if transactionID == "" {
		return nil, mopentelemetry.HandleSpanError(span,
			apperr.ValidateBusinessError(apperr.ErrMissingTransactionID, entityType))
	}

	if len(entries) == 0 {
		return nil, mopentelemetry.HandleSpanError(span,
			apperr.ValidateBusinessError(apperr.ErrNoPostings, entityType))
	}

	var debitTotal, creditTotal int64

	accountIDs := make([]string, 0, len(entries)*2)

	for _, en := range entries {
		if !ledgerassert.PositiveAmount(en.Amount) {
			return nil, mopentelemetry.HandleSpanError(span,
				apperr.ValidateBusinessError(apperr.ErrInvalidAmount, entityType))
		}

		debitTotal += en.Amount
		creditTotal += en.Amount
		accountIDs = append(accountIDs, en.DebitAccountID, en.CreditAccountID)
	}

	if !ledgerassert.DebitsEqualCredits(debitTotal, creditTotal) || !ledgerassert.NonZeroTotals(debitTotal, creditTotal) {
		// Unreachable given the loop above (each entry contributes the same
		// amount to both sides); kept because it is the literal statement of
		// I2 and guards against a future multi-leg entry shape.
		e.Logger.Fatalf("%v: transaction %s debits=%d credits=%d",
			apperr.ErrUnbalancedPosting, transactionID, debitTotal, creditTotal)

		return nil, mopentelemetry.HandleSpanError(span,
			apperr.ValidateBusinessError(apperr.ErrUnbalancedPosting, entityType))
	}

	var result *Result

	err := e.TxRunner.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := e.Repo.FindEntriesByTransactionID(ctx, transactionID)
		if err != nil {
			return err
		}

		if len(existing) > 0 {
			e.Logger.Infof("posting engine: replaying existing transaction %s", transactionID)

			accounts, err := e.Repo.LockAccountsForUpdate(ctx, accountIDs)
			if err != nil {
				return err
			}

			result = &Result{Entries: existing, Accounts: accounts, Replayed: true}

			return nil
		}

		accounts, err := e.Repo.LockAccountsForUpdate(ctx, accountIDs)
		if err != nil {
			return err
		}

		for _, id := range accountIDs {
			if _, ok := accounts[id]; !ok {
				return apperr.ValidateBusinessError(apperr.ErrLedgerAccountNotFound, entityType)
			}
		}

		deltas := make(map[string]int64, len(accounts))
		written := make([]domain.LedgerEntry, 0, len(entries))

		for _, en := range entries {
			deltas[en.DebitAccountID] -= en.Amount
			deltas[en.CreditAccountID] += en.Amount

			written = append(written, domain.LedgerEntry{
				ID:              e.NewID(),
				TransactionID:   transactionID,
				DebitAccountID:  en.DebitAccountID,
				CreditAccountID: en.CreditAccountID,
				Amount:          en.Amount,
				Metadata:        en.Metadata,
			})
		}

		if err := e.Repo.InsertEntries(ctx, written, deltas); err != nil {
			return err
		}

		for id, delta := range deltas {
			acc := accounts[id]
			acc.Balance += delta
			accounts[id] = acc
		}

		result = &Result{Entries: written, Accounts: accounts}

		return nil
	})
	if err != nil {
		return nil, mopentelemetry.HandleSpanError(span, err)
	}

	return result, nil
}
