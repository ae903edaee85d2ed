// Package reconciliation is a read-only invariant check over the ledger
// (SPEC_FULL.md §4.8). Grounded on the query-service shape of
// components/ledger/internal/services/query.
package reconciliation

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/pkg/apperr"
	"github.com/poolcard/ledger-core/pkg/ledgerassert"
	"github.com/poolcard/ledger-core/pkg/mlog"
	"github.com/poolcard/ledger-core/pkg/mopentelemetry"
)

// mismatchCounter tracks I1 violations surfaced by Card, per SPEC_FULL.md's
// ambient metrics surface (spec.md §1's "counter contract").
var mismatchCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ledger_core_reconciliation_mismatch_total",
	Help: "Count of cards whose pool balance failed to reconcile against member equity and pending withdrawals.",
}, []string{"card_id"})

// AccountRepository is the storage port this package reads from.
type AccountRepository interface {
	AccountsByCard(ctx context.Context, cardID string) ([]domain.LedgerAccount, error)
	CardsByWallet(ctx context.Context, walletID string) ([]string, error)
}

// CardReport is the per-card reconciliation snapshot.
type CardReport struct {
	CardID             string
	PoolBalance        int64
	MemberEquity       map[string]int64
	SumOfMemberEquity  int64
	PendingWithdrawals int64
	Consistent         bool
	Timestamp          time.Time
}

// WalletReport aggregates CardReport across every card in a wallet.
type WalletReport struct {
	WalletID           string
	PoolBalance        int64
	MemberEquity       map[string]int64
	PendingWithdrawals int64
	Consistent         bool
	Timestamp          time.Time
}

// Service computes reconciliation reports.
type Service struct {
	Accounts  AccountRepository
	Logger    mlog.Logger
	Telemetry *mopentelemetry.Telemetry
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}

	return time.Now()
}

// Card computes I1 for a single card: pool == sumEquity + pending.
// consistent = false is logged at fatal severity, per §4.8.
func (s *Service) Card(ctx context.Context, cardID string) (CardReport, error) {
	ctx, span := s.Telemetry.Start(ctx, "reconciliation.card")
	defer span.End()

	accounts, err := s.Accounts.AccountsByCard(ctx, cardID)
	if err != nil {
		return CardReport{}, mopentelemetry.HandleSpanError(span, err)
	}

	report := CardReport{CardID: cardID, MemberEquity: map[string]int64{}, Timestamp: s.now()}

	for _, acc := range accounts {
		switch acc.Scope {
		case domain.ScopeCardPool:
			report.PoolBalance = acc.DisplayBalance()
		case domain.ScopeCardPendingWithdrawal:
			report.PendingWithdrawals = acc.DisplayBalance()
		case domain.ScopeCardMemberEquity:
			if acc.UserID != nil {
				report.MemberEquity[*acc.UserID] = acc.DisplayBalance()
				report.SumOfMemberEquity += acc.DisplayBalance()
			}
		}
	}

	report.Consistent = ledgerassert.PoolReconciles(report.PoolBalance, report.SumOfMemberEquity, report.PendingWithdrawals)

	if !report.Consistent {
		s.Logger.Fatalf("%v: card %s pool=%d sumEquity=%d pending=%d",
			apperr.ErrReconciliationMismatch, cardID, report.PoolBalance, report.SumOfMemberEquity, report.PendingWithdrawals)
		mismatchCounter.WithLabelValues(cardID).Inc()
	}

	return report, nil
}

// Wallet aggregates Card across every card in walletID.
func (s *Service) Wallet(ctx context.Context, walletID string) (WalletReport, error) {
	ctx, span := s.Telemetry.Start(ctx, "reconciliation.wallet")
	defer span.End()

	cardIDs, err := s.Accounts.CardsByWallet(ctx, walletID)
	if err != nil {
		return WalletReport{}, mopentelemetry.HandleSpanError(span, err)
	}

	report := WalletReport{WalletID: walletID, MemberEquity: map[string]int64{}, Timestamp: s.now(), Consistent: true}

	for _, cardID := range cardIDs {
		cardReport, err := s.Card(ctx, cardID)
		if err != nil {
			return WalletReport{}, mopentelemetry.HandleSpanError(span, err)
		}

		report.PoolBalance += cardReport.PoolBalance
		report.PendingWithdrawals += cardReport.PendingWithdrawals

		for userID, balance := range cardReport.MemberEquity {
			report.MemberEquity[userID] += balance
		}

		if !cardReport.Consistent {
			report.Consistent = false
		}
	}

	return report, nil
}
