package postgres

import (
	"context"
	"database/sql"
	"errors"

	sqrl "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/pkg/apperr"
	"github.com/poolcard/ledger-core/pkg/dbtx"
	"github.com/poolcard/ledger-core/pkg/idgen"
	"github.com/poolcard/ledger-core/pkg/mpostgres"
)

// CardRepository backs cardprogram.CardRepository.
type CardRepository struct {
	Connection *mpostgres.Connection
}

func (r *CardRepository) executor(ctx context.Context) (dbtx.Executor, error) {
	db, err := r.Connection.Primary(ctx)
	if err != nil {
		return nil, err
	}

	return dbtx.GetExecutor(ctx, db), nil
}

// FindByProviderCardID implements cardprogram.CardRepository.
func (r *CardRepository) FindByProviderCardID(ctx context.Context, providerName, externalCardID string) (*domain.Card, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select("id", "wallet_id", "holder_user_id", "status", "provider_name", "external_card_id", "currency", "created_at", "updated_at").
		From("card").
		Where(sqrl.Eq{"provider_name": providerName, "external_card_id": externalCardID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var c domain.Card

	row := exec.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&c.ID, &c.WalletID, &c.HolderUserID, &c.Status, &c.ProviderName, &c.ExternalCardID, &c.Currency, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.EntityNotFoundError{EntityType: "Card", Code: "LED-0010"}
		}

		return nil, err
	}

	return &c, nil
}

// FindByID looks up a card by its internal id, used by the card-centric
// ledger HTTP endpoints to resolve the owning walletId.
func (r *CardRepository) FindByID(ctx context.Context, cardID string) (*domain.Card, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select("id", "wallet_id", "holder_user_id", "status", "provider_name", "external_card_id", "currency", "created_at", "updated_at").
		From("card").
		Where(sqrl.Eq{"id": cardID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var c domain.Card

	row := exec.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&c.ID, &c.WalletID, &c.HolderUserID, &c.Status, &c.ProviderName, &c.ExternalCardID, &c.Currency, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.EntityNotFoundError{EntityType: "Card", Code: "LED-0010"}
		}

		return nil, err
	}

	return &c, nil
}

// Create inserts a new card, exercised directly by repository tests; no HTTP
// endpoint creates cards (card-artifact issuance is out of scope, spec.md
// §1), so rows land here via the webhook-driven onboarding path upstream of
// this repo or via direct seeding.
func (r *CardRepository) Create(ctx context.Context, card domain.Card) (*domain.Card, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return nil, err
	}

	card.ID = idgen.New()

	query, args, err := sqrl.Insert("card").
		Columns("id", "wallet_id", "holder_user_id", "status", "provider_name", "external_card_id", "currency", "created_at", "updated_at").
		Values(card.ID, card.WalletID, card.HolderUserID, string(card.Status), card.ProviderName, card.ExternalCardID, card.Currency, sqrl.Expr("now()"), sqrl.Expr("now()")).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperr.EntityConflictError{EntityType: "Card", Code: "LED-0014"}
		}

		return nil, err
	}

	return &card, nil
}
