// Package funding routes a WALLET_FUNDING event to the (cardId, userId) it
// should credit (SPEC_FULL.md §4.7). Grounded on the exact-match-then-
// fallback lookup pattern used for alias/account resolution in the teacher
// (get-alias-account.go / get-account-redis-or-database.go).
package funding

import (
	"context"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/internal/ledger/service"
	"github.com/poolcard/ledger-core/pkg/mlog"
	"github.com/poolcard/ledger-core/pkg/mopentelemetry"
)

// RouteRepository is the storage port for funding routes.
type RouteRepository interface {
	FindRoute(ctx context.Context, providerName, providerAccountID, reference string) (*domain.BaasFundingRoute, error)
}

// Router resolves WALLET_FUNDING events to a card deposit.
type Router struct {
	Routes    RouteRepository
	Ledger    *service.Service
	Logger    mlog.Logger
	Telemetry *mopentelemetry.Telemetry
}

// RouteNotFound describes a WALLET_FUNDING event that matched no exact or
// default route. Route does not return it: it logs its Error() text at error
// level and returns nil, so the webhook pipeline treats the event as handled
// and it stays marked processed.
type RouteNotFound struct {
	ProviderName      string
	ProviderAccountID string
	Reference         string
}

func (e RouteNotFound) Error() string {
	return "FUNDING_ROUTE_NOT_FOUND: " + e.ProviderName + "/" + e.ProviderAccountID + "/" + e.Reference
}

// Route applies a WALLET_FUNDING event: resolves the target card/user via
// exact match then default-route fallback, and posts a card deposit keyed by
// the provider's transaction id.
func (r *Router) Route(ctx context.Context, providerName, providerAccountID, reference string, amountMinor int64, providerTransactionID string) error {
	ctx, span := r.Telemetry.Start(ctx, "funding.route")
	defer span.End()

	route, err := r.Routes.FindRoute(ctx, providerName, providerAccountID, reference)
	if err != nil {
		return mopentelemetry.HandleSpanError(span, err)
	}

	if route == nil && reference != "" {
		route, err = r.Routes.FindRoute(ctx, providerName, providerAccountID, "")
		if err != nil {
			return mopentelemetry.HandleSpanError(span, err)
		}
	}

	if route == nil {
		notFound := RouteNotFound{ProviderName: providerName, ProviderAccountID: providerAccountID, Reference: reference}
		r.Logger.Errorf("%s: amountMinor=%d providerTransactionId=%s", notFound.Error(), amountMinor, providerTransactionID)

		return nil
	}

	_, err = r.Ledger.PostCardDeposit(ctx, route.WalletID, route.CardID, route.UserID, amountMinor, providerTransactionID, nil)

	return mopentelemetry.HandleSpanError(span, err)
}
