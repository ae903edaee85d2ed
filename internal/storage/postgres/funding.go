package postgres

import (
	"context"
	"database/sql"
	"errors"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/pkg/dbtx"
	"github.com/poolcard/ledger-core/pkg/mpostgres"
)

// FundingRouteRepository backs funding.RouteRepository.
type FundingRouteRepository struct {
	Connection *mpostgres.Connection
}

func (r *FundingRouteRepository) executor(ctx context.Context) (dbtx.Executor, error) {
	db, err := r.Connection.Primary(ctx)
	if err != nil {
		return nil, err
	}

	return dbtx.GetExecutor(ctx, db), nil
}

// FindRoute implements funding.RouteRepository. A blank reference looks up
// the wallet's default route for the provider account, matching the
// exact-then-default fallback order described in SPEC_FULL.md §4.7.
func (r *FundingRouteRepository) FindRoute(ctx context.Context, providerName, providerAccountID, reference string) (*domain.BaasFundingRoute, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select("provider_name", "provider_account_id", "reference", "wallet_id", "card_id", "user_id").
		From("baas_funding_route").
		Where(sqrl.Eq{"provider_name": providerName, "provider_account_id": providerAccountID, "reference": reference}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var route domain.BaasFundingRoute

	row := exec.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&route.ProviderName, &route.ProviderAccountID, &route.Reference, &route.WalletID, &route.CardID, &route.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return &route, nil
}

// Upsert inserts a funding route or replaces its target (walletId, cardId,
// userId) if the (providerName, providerAccountId, reference) key already
// exists, matching the admin endpoint's upsert semantics (spec.md §6).
func (r *FundingRouteRepository) Upsert(ctx context.Context, route domain.BaasFundingRoute) error {
	exec, err := r.executor(ctx)
	if err != nil {
		return err
	}

	query, args, err := sqrl.Insert("baas_funding_route").
		Columns("provider_name", "provider_account_id", "reference", "wallet_id", "card_id", "user_id").
		Values(route.ProviderName, route.ProviderAccountID, route.Reference, route.WalletID, route.CardID, route.UserID).
		Suffix("ON CONFLICT (provider_name, provider_account_id, reference) DO UPDATE SET wallet_id = EXCLUDED.wallet_id, card_id = EXCLUDED.card_id, user_id = EXCLUDED.user_id").
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = exec.ExecContext(ctx, query, args...)

	return err
}

// ListByWallet returns every funding route targeting walletID.
func (r *FundingRouteRepository) ListByWallet(ctx context.Context, walletID string) ([]domain.BaasFundingRoute, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select("provider_name", "provider_account_id", "reference", "wallet_id", "card_id", "user_id").
		From("baas_funding_route").
		Where(sqrl.Eq{"wallet_id": walletID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BaasFundingRoute

	for rows.Next() {
		var route domain.BaasFundingRoute
		if err := rows.Scan(&route.ProviderName, &route.ProviderAccountID, &route.Reference, &route.WalletID, &route.CardID, &route.UserID); err != nil {
			return nil, err
		}

		out = append(out, route)
	}

	return out, rows.Err()
}
