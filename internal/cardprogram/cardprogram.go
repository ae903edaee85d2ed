// Package cardprogram is the card lifecycle and event state machine
// (SPEC_FULL.md §4.3): card initialisation and the CARD_AUTH / CARD_CLEARING /
// CARD_AUTH_REVERSAL handlers consumed by the webhook pipeline. Grounded on
// the UseCase-with-injected-repository pattern in
// components/ledger/internal/services/command.
package cardprogram

import (
	"context"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/internal/ledger/service"
	"github.com/poolcard/ledger-core/internal/splitting"
	"github.com/poolcard/ledger-core/pkg/mlog"
	"github.com/poolcard/ledger-core/pkg/mopentelemetry"
)

// Decision is the outcome of an authorisation request.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionDecline Decision = "DECLINE"
)

// CardRepository locates cards by the provider's identifiers.
type CardRepository interface {
	FindByProviderCardID(ctx context.Context, providerName, externalCardID string) (*domain.Card, error)
}

// MemberRepository lists the members of a card's wallet, for initialisation.
type MemberRepository interface {
	MembersByWallet(ctx context.Context, walletID string) ([]domain.WalletMember, error)
}

// HoldRepository is the storage port for CardAuthHold rows.
type HoldRepository interface {
	FindByProviderAuthID(ctx context.Context, providerName, providerAuthID string) (*domain.CardAuthHold, error)
	SumPendingByCard(ctx context.Context, cardID string) (int64, error)
	Create(ctx context.Context, hold domain.CardAuthHold) (*domain.CardAuthHold, error)
	TransitionStatus(ctx context.Context, id string, status domain.HoldStatus) error
	ExpirePendingOlderThan(ctx context.Context, cutoff int64) (int, error)
}

// Program wires a card's event handlers.
type Program struct {
	Cards     CardRepository
	Members   MemberRepository
	Holds     HoldRepository
	Ledger    *service.Service
	Splits    *splitting.Resolver
	Logger    mlog.Logger
	Telemetry *mopentelemetry.Telemetry
}

// InitializeCard creates the CARD_POOL account and one CARD_MEMBER_EQUITY
// account per current wallet member. Each account is created by its own
// call with no enclosing storage transaction, so a failure part-way leaves
// the accounts created so far in place; running it again completes the set,
// since the Ensure* recipes skip accounts that already exist.
func (p *Program) InitializeCard(ctx context.Context, card domain.Card) error {
	ctx, span := p.Telemetry.Start(ctx, "cardprogram.initialize_card")
	defer span.End()

	if _, err := p.Ledger.EnsureCardPoolAccount(ctx, card.WalletID, card.ID); err != nil {
		return mopentelemetry.HandleSpanError(span, err)
	}

	members, err := p.Members.MembersByWallet(ctx, card.WalletID)
	if err != nil {
		return mopentelemetry.HandleSpanError(span, err)
	}

	for _, m := range members {
		if _, err := p.Ledger.EnsureMemberEquityAccount(ctx, card.WalletID, card.ID, m.UserID); err != nil {
			return mopentelemetry.HandleSpanError(span, err)
		}
	}

	return nil
}

// ActivateOnStatus handles a CARD_STATUS event reporting the provider's card
// has become ACTIVE: it runs InitializeCard so the pool and member-equity
// accounts exist before the first CARD_AUTH arrives. A no-op for any other
// reported status, and idempotent since EnsureCardPoolAccount/
// EnsureMemberEquityAccount only create an account once.
func (p *Program) ActivateOnStatus(ctx context.Context, providerName, externalCardID, status string) error {
	ctx, span := p.Telemetry.Start(ctx, "cardprogram.activate_on_status")
	defer span.End()

	if status != string(domain.CardActive) {
		return nil
	}

	card, err := p.Cards.FindByProviderCardID(ctx, providerName, externalCardID)
	if err != nil {
		return mopentelemetry.HandleSpanError(span, err)
	}

	if card == nil {
		p.Logger.Infof("activate_on_status: card not found for %s/%s, ignoring", providerName, externalCardID)
		return nil
	}

	return mopentelemetry.HandleSpanError(span, p.InitializeCard(ctx, *card))
}

// Authorize decides APPROVE/DECLINE for an incoming CARD_AUTH event.
func (p *Program) Authorize(ctx context.Context, providerName, externalCardID string, amountMinor int64, providerAuthID, providerEventID string) (Decision, error) {
	ctx, span := p.Telemetry.Start(ctx, "cardprogram.authorize")
	defer span.End()

	card, err := p.Cards.FindByProviderCardID(ctx, providerName, externalCardID)
	if err != nil || card == nil {
		p.Logger.Infof("authorize: card not found for %s/%s, declining", providerName, externalCardID)
		return DecisionDecline, nil
	}

	if !card.IsActive() {
		p.Logger.Infof("authorize: card %s not active, declining", card.ID)
		return DecisionDecline, nil
	}

	if card.WalletID == "" {
		p.Logger.Infof("authorize: card %s has no wallet, declining", card.ID)
		return DecisionDecline, nil
	}

	if existing, err := p.Holds.FindByProviderAuthID(ctx, providerName, providerAuthID); err != nil {
		return "", mopentelemetry.HandleSpanError(span, err)
	} else if existing != nil {
		p.Logger.Infof("authorize: replaying decision for providerAuthId %s", providerAuthID)
		return DecisionApprove, nil
	}

	pool, err := p.Ledger.EnsureCardPoolAccount(ctx, card.WalletID, card.ID)
	if err != nil {
		return "", mopentelemetry.HandleSpanError(span, err)
	}

	pendingSum, err := p.Holds.SumPendingByCard(ctx, card.ID)
	if err != nil {
		return "", mopentelemetry.HandleSpanError(span, err)
	}

	available := pool.Balance - pendingSum
	if available < amountMinor {
		p.Logger.Infof("authorize: card %s available %d < requested %d, declining", card.ID, available, amountMinor)
		return DecisionDecline, nil
	}

	_, err = p.Holds.Create(ctx, domain.CardAuthHold{
		WalletID:       card.WalletID,
		CardID:         card.ID,
		ProviderName:   providerName,
		ProviderAuthID: providerAuthID,
		AmountMinor:    amountMinor,
		Status:         domain.HoldPending,
	})
	if err != nil {
		return "", mopentelemetry.HandleSpanError(span, err)
	}

	return DecisionApprove, nil
}

// Clear handles a CARD_CLEARING event: splits the amount per the wallet's
// splitting policy, posts the capture, and marks any matching hold CLEARED.
func (p *Program) Clear(ctx context.Context, providerName, externalCardID string, providerAuthID *string, amountMinor int64, providerTransactionID, cardholderUserID string) error {
	ctx, span := p.Telemetry.Start(ctx, "cardprogram.clear")
	defer span.End()

	card, err := p.Cards.FindByProviderCardID(ctx, providerName, externalCardID)
	if err != nil || card == nil {
		p.Logger.Infof("clear: card not found for %s/%s, ignoring", providerName, externalCardID)
		return nil
	}

	splits, err := p.Splits.Split(ctx, card.WalletID, cardholderUserID, amountMinor)
	if err != nil {
		return mopentelemetry.HandleSpanError(span, err)
	}

	if _, err := p.Ledger.PostCardCapture(ctx, card.WalletID, card.ID, splits, providerTransactionID, nil); err != nil {
		return mopentelemetry.HandleSpanError(span, err)
	}

	if providerAuthID != nil {
		hold, err := p.Holds.FindByProviderAuthID(ctx, providerName, *providerAuthID)
		if err != nil {
			return mopentelemetry.HandleSpanError(span, err)
		}

		if hold != nil {
			if err := p.Holds.TransitionStatus(ctx, hold.ID, domain.HoldCleared); err != nil {
				return mopentelemetry.HandleSpanError(span, err)
			}
		}
	}

	return nil
}

// ReverseAuthorization handles a CARD_AUTH_REVERSAL event: transitions the
// matching hold to REVERSED. No ledger posting, since the auth never posted.
func (p *Program) ReverseAuthorization(ctx context.Context, providerName, providerAuthID string) error {
	ctx, span := p.Telemetry.Start(ctx, "cardprogram.reverse_authorization")
	defer span.End()

	hold, err := p.Holds.FindByProviderAuthID(ctx, providerName, providerAuthID)
	if err != nil {
		return mopentelemetry.HandleSpanError(span, err)
	}

	if hold == nil {
		p.Logger.Infof("reverse_authorization: no hold for providerAuthId %s, ignoring", providerAuthID)
		return nil
	}

	return p.Holds.TransitionStatus(ctx, hold.ID, domain.HoldReversed)
}

// ExpireStaleHolds transitions PENDING holds created before cutoffUnix (a
// unix-seconds timestamp) with no linked clearing to EXPIRED. Invoked by the cron sweep, never by an inbound
// event.
func (p *Program) ExpireStaleHolds(ctx context.Context, cutoffUnix int64) (int, error) {
	return p.Holds.ExpirePendingOlderThan(ctx, cutoffUnix)
}
