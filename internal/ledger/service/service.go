// Package service is a thin recipe layer on top of postingengine: it locates
// or creates the right accounts for a scope, enforces balance preconditions,
// and calls the engine with a stable transaction id (SPEC_FULL.md §4.2).
// Grounded on components/ledger/internal/services/command/create-account.go's
// UseCase-with-injected-repository shape.
package service

import (
	"context"
	"fmt"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/internal/ledger/postingengine"
	"github.com/poolcard/ledger-core/pkg/apperr"
	"github.com/poolcard/ledger-core/pkg/ledgerassert"
	"github.com/poolcard/ledger-core/pkg/mlog"
	"github.com/poolcard/ledger-core/pkg/mopentelemetry"
)

// AccountRepository is the storage port for ledger account lookup/creation.
type AccountRepository interface {
	// FindByScope returns the unique account for (cardID, scope[, userID]).
	// userID is ignored unless scope is CARD_MEMBER_EQUITY.
	FindByScope(ctx context.Context, cardID string, scope domain.Scope, userID *string) (*domain.LedgerAccount, error)
	// CreateAccount inserts a new account with balance 0 and returns it.
	CreateAccount(ctx context.Context, account domain.LedgerAccount) (*domain.LedgerAccount, error)
}

// Split is one member's share of a card capture.
type Split struct {
	UserID string
	Amount int64
}

// Service exposes the ledger recipes SPEC_FULL.md §4.2 names.
type Service struct {
	Accounts  AccountRepository
	Engine    *postingengine.Engine
	Logger    mlog.Logger
	Telemetry *mopentelemetry.Telemetry
}

const entityType = "LedgerAccount"

// EnsureMemberEquityAccount returns the CARD_MEMBER_EQUITY account for
// (cardID, userID), creating it with balance 0 if it does not yet exist.
// Used both at card initialisation (one per current member) and when a new
// member joins a wallet that already has cards.
func (s *Service) EnsureMemberEquityAccount(ctx context.Context, walletID, cardID, userID string) (*domain.LedgerAccount, error) {
	acc, err := s.Accounts.FindByScope(ctx, cardID, domain.ScopeCardMemberEquity, &userID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}

	if acc != nil {
		return acc, nil
	}

	return s.Accounts.CreateAccount(ctx, domain.LedgerAccount{
		WalletID: walletID,
		CardID:   cardID,
		Scope:    domain.ScopeCardMemberEquity,
		UserID:   &userID,
	})
}

// EnsureCardPoolAccount returns the CARD_POOL account for cardID, creating
// it with balance 0 if it does not yet exist.
func (s *Service) EnsureCardPoolAccount(ctx context.Context, walletID, cardID string) (*domain.LedgerAccount, error) {
	acc, err := s.Accounts.FindByScope(ctx, cardID, domain.ScopeCardPool, nil)
	if err != nil && !isNotFound(err) {
		return nil, err
	}

	if acc != nil {
		return acc, nil
	}

	return s.Accounts.CreateAccount(ctx, domain.LedgerAccount{
		WalletID: walletID,
		CardID:   cardID,
		Scope:    domain.ScopeCardPool,
	})
}

// ensurePendingWithdrawalAccount returns the CARD_PENDING_WITHDRAWAL account
// for cardID, creating it lazily on first use (per §4.2).
func (s *Service) ensurePendingWithdrawalAccount(ctx context.Context, walletID, cardID string) (*domain.LedgerAccount, error) {
	acc, err := s.Accounts.FindByScope(ctx, cardID, domain.ScopeCardPendingWithdrawal, nil)
	if err != nil && !isNotFound(err) {
		return nil, err
	}

	if acc != nil {
		return acc, nil
	}

	return s.Accounts.CreateAccount(ctx, domain.LedgerAccount{
		WalletID: walletID,
		CardID:   cardID,
		Scope:    domain.ScopeCardPendingWithdrawal,
	})
}

func isNotFound(err error) bool {
	_, ok := err.(apperr.EntityNotFoundError)
	return ok
}

// PostCardDeposit credits amount into the card pool and into userID's
// equity alike: the pool's stored balance is credited directly, and
// equity's debit-normal storage (domain.LedgerAccount.DisplayBalance) makes
// a debit there show up as the member's equity increasing by amount.
// userID must already be a wallet member (enforced by the caller).
func (s *Service) PostCardDeposit(ctx context.Context, walletID, cardID, userID string, amount int64, txID string, metadata map[string]any) (*postingengine.Result, error) {
	ctx, span := s.Telemetry.Start(ctx, "service.post_card_deposit")
	defer span.End()

	pool, err := s.EnsureCardPoolAccount(ctx, walletID, cardID)
	if err != nil {
		return nil, mopentelemetry.HandleSpanError(span, err)
	}

	equity, err := s.EnsureMemberEquityAccount(ctx, walletID, cardID, userID)
	if err != nil {
		return nil, mopentelemetry.HandleSpanError(span, err)
	}

	result, err := s.Engine.Post(ctx, txID, []postingengine.Entry{
		{DebitAccountID: equity.ID, CreditAccountID: pool.ID, Amount: amount, Metadata: metadata},
	})
	if err != nil {
		return nil, mopentelemetry.HandleSpanError(span, err)
	}

	return result, nil
}

// PostCardCapture debits the card pool and credits each split's member
// equity, mirroring PostCardDeposit's roles: the pool's stored balance
// decreases directly and each member's displayed equity decreases by their
// split. It refuses (InsufficientEquity) if any split would push a member's
// equity below zero (I3).
func (s *Service) PostCardCapture(ctx context.Context, walletID, cardID string, splits []Split, txID string, metadata map[string]any) (*postingengine.Result, error) {
	ctx, span := s.Telemetry.Start(ctx, "service.post_card_capture")
	defer span.End()

	pool, err := s.EnsureCardPoolAccount(ctx, walletID, cardID)
	if err != nil {
		return nil, mopentelemetry.HandleSpanError(span, err)
	}

	entries := make([]postingengine.Entry, 0, len(splits))

	for _, sp := range splits {
		if !ledgerassert.PositiveAmount(sp.Amount) {
			return nil, mopentelemetry.HandleSpanError(span,
				apperr.ValidateBusinessError(apperr.ErrInvalidAmount, entityType))
		}

		equity, err := s.EnsureMemberEquityAccount(ctx, walletID, cardID, sp.UserID)
		if err != nil {
			return nil, mopentelemetry.HandleSpanError(span, err)
		}

		if !ledgerassert.NonNegativeEquity(equity.DisplayBalance() - sp.Amount) {
			return nil, mopentelemetry.HandleSpanError(span,
				apperr.ValidateBusinessError(apperr.ErrInsufficientEquity, entityType))
		}

		entries = append(entries, postingengine.Entry{
			DebitAccountID:  pool.ID,
			CreditAccountID: equity.ID,
			Amount:          sp.Amount,
			Metadata:        metadata,
		})
	}

	result, err := s.Engine.Post(ctx, txID, entries)
	if err != nil {
		return nil, mopentelemetry.HandleSpanError(span, err)
	}

	return result, nil
}

// PostPendingCardWithdrawal moves amount from userID's equity to the card's
// pending-withdrawal account: both are debit-normal, so crediting equity
// and debiting pending here moves the displayed amount from one to the
// other without touching the pool. Fails with InsufficientEquity if the
// member's equity does not cover amount.
func (s *Service) PostPendingCardWithdrawal(ctx context.Context, walletID, cardID, userID string, amount int64, txID string) (*postingengine.Result, error) {
	ctx, span := s.Telemetry.Start(ctx, "service.post_pending_card_withdrawal")
	defer span.End()

	equity, err := s.EnsureMemberEquityAccount(ctx, walletID, cardID, userID)
	if err != nil {
		return nil, mopentelemetry.HandleSpanError(span, err)
	}

	if !ledgerassert.NonNegativeEquity(equity.DisplayBalance() - amount) {
		return nil, mopentelemetry.HandleSpanError(span,
			apperr.ValidateBusinessError(apperr.ErrInsufficientEquity, entityType))
	}

	pending, err := s.ensurePendingWithdrawalAccount(ctx, walletID, cardID)
	if err != nil {
		return nil, mopentelemetry.HandleSpanError(span, err)
	}

	result, err := s.Engine.Post(ctx, txID, []postingengine.Entry{
		{DebitAccountID: pending.ID, CreditAccountID: equity.ID, Amount: amount},
	})
	if err != nil {
		return nil, mopentelemetry.HandleSpanError(span, err)
	}

	return result, nil
}

// FinalizeCardWithdrawal moves amount out of the pending-withdrawal account
// and out of the card pool, completing a successful payout: the money
// actually leaves the card, so both the pool's stored balance and pending's
// displayed balance decrease by amount. Fails with InsufficientPendingBalance
// if the pending account is smaller than amount.
func (s *Service) FinalizeCardWithdrawal(ctx context.Context, walletID, cardID string, amount int64, txID string) (*postingengine.Result, error) {
	ctx, span := s.Telemetry.Start(ctx, "service.finalize_card_withdrawal")
	defer span.End()

	pending, err := s.ensurePendingWithdrawalAccount(ctx, walletID, cardID)
	if err != nil {
		return nil, mopentelemetry.HandleSpanError(span, err)
	}

	if !ledgerassert.NonNegativeEquity(pending.DisplayBalance() - amount) {
		return nil, mopentelemetry.HandleSpanError(span,
			apperr.ValidateBusinessError(apperr.ErrInsufficientPending, entityType))
	}

	pool, err := s.EnsureCardPoolAccount(ctx, walletID, cardID)
	if err != nil {
		return nil, mopentelemetry.HandleSpanError(span, err)
	}

	result, err := s.Engine.Post(ctx, txID, []postingengine.Entry{
		{DebitAccountID: pool.ID, CreditAccountID: pending.ID, Amount: amount},
	})
	if err != nil {
		return nil, mopentelemetry.HandleSpanError(span, err)
	}

	return result, nil
}

// ReversePendingCardWithdrawal returns amount from the pending-withdrawal
// account back to userID's equity, e.g. when the provider reports failure:
// pending's displayed balance decreases and equity's increases by amount,
// leaving the pool untouched.
func (s *Service) ReversePendingCardWithdrawal(ctx context.Context, walletID, cardID, userID string, amount int64, txID string) (*postingengine.Result, error) {
	ctx, span := s.Telemetry.Start(ctx, "service.reverse_pending_card_withdrawal")
	defer span.End()

	pending, err := s.ensurePendingWithdrawalAccount(ctx, walletID, cardID)
	if err != nil {
		return nil, mopentelemetry.HandleSpanError(span, err)
	}

	if !ledgerassert.NonNegativeEquity(pending.DisplayBalance() - amount) {
		return nil, mopentelemetry.HandleSpanError(span,
			apperr.ValidateBusinessError(apperr.ErrInsufficientPending, entityType))
	}

	equity, err := s.EnsureMemberEquityAccount(ctx, walletID, cardID, userID)
	if err != nil {
		return nil, mopentelemetry.HandleSpanError(span, err)
	}

	result, err := s.Engine.Post(ctx, txID, []postingengine.Entry{
		{DebitAccountID: equity.ID, CreditAccountID: pending.ID, Amount: amount},
	})
	if err != nil {
		return nil, mopentelemetry.HandleSpanError(span, err)
	}

	return result, nil
}

// WithdrawalPendingTxID returns the deterministic transaction id used by
// PostPendingCardWithdrawal for a given withdrawal request.
func WithdrawalPendingTxID(requestID string) string { return fmt.Sprintf("withdrawal_pending_%s", requestID) }

// WithdrawalFinalizeTxID returns the deterministic transaction id used by
// FinalizeCardWithdrawal for a given withdrawal request.
func WithdrawalFinalizeTxID(requestID string) string { return fmt.Sprintf("withdrawal_finalize_%s", requestID) }

// WithdrawalReverseTxID returns the deterministic transaction id used by
// ReversePendingCardWithdrawal for a given withdrawal request.
func WithdrawalReverseTxID(requestID string) string { return fmt.Sprintf("withdrawal_reverse_%s", requestID) }
