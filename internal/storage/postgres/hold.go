package postgres

import (
	"context"
	"database/sql"
	"errors"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/pkg/dbtx"
	"github.com/poolcard/ledger-core/pkg/idgen"
	"github.com/poolcard/ledger-core/pkg/mpostgres"
)

// HoldRepository backs cardprogram.HoldRepository.
type HoldRepository struct {
	Connection *mpostgres.Connection
}

func (r *HoldRepository) executor(ctx context.Context) (dbtx.Executor, error) {
	db, err := r.Connection.Primary(ctx)
	if err != nil {
		return nil, err
	}

	return dbtx.GetExecutor(ctx, db), nil
}

// FindByProviderAuthID implements cardprogram.HoldRepository. A missing hold
// is reported as (nil, nil).
func (r *HoldRepository) FindByProviderAuthID(ctx context.Context, providerName, providerAuthID string) (*domain.CardAuthHold, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select("id", "wallet_id", "card_id", "provider_name", "provider_auth_id", "amount_minor", "status", "created_at").
		From("card_auth_hold").
		Where(sqrl.Eq{"provider_name": providerName, "provider_auth_id": providerAuthID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var h domain.CardAuthHold

	row := exec.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&h.ID, &h.WalletID, &h.CardID, &h.ProviderName, &h.ProviderAuthID, &h.AmountMinor, &h.Status, &h.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return &h, nil
}

// SumPendingByCard implements cardprogram.HoldRepository.
func (r *HoldRepository) SumPendingByCard(ctx context.Context, cardID string) (int64, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return 0, err
	}

	query, args, err := sqrl.Select("COALESCE(SUM(amount_minor), 0)").
		From("card_auth_hold").
		Where(sqrl.Eq{"card_id": cardID, "status": string(domain.HoldPending)}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var sum int64

	if err := exec.QueryRowContext(ctx, query, args...).Scan(&sum); err != nil {
		return 0, err
	}

	return sum, nil
}

// Create implements cardprogram.HoldRepository.
func (r *HoldRepository) Create(ctx context.Context, hold domain.CardAuthHold) (*domain.CardAuthHold, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return nil, err
	}

	hold.ID = idgen.New()

	query, args, err := sqrl.Insert("card_auth_hold").
		Columns("id", "wallet_id", "card_id", "provider_name", "provider_auth_id", "amount_minor", "status", "created_at").
		Values(hold.ID, hold.WalletID, hold.CardID, hold.ProviderName, hold.ProviderAuthID, hold.AmountMinor, string(hold.Status), sqrl.Expr("now()")).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}

	return &hold, nil
}

// TransitionStatus implements cardprogram.HoldRepository.
func (r *HoldRepository) TransitionStatus(ctx context.Context, id string, status domain.HoldStatus) error {
	exec, err := r.executor(ctx)
	if err != nil {
		return err
	}

	query, args, err := sqrl.Update("card_auth_hold").
		Set("status", string(status)).
		Where(sqrl.Eq{"id": id}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = exec.ExecContext(ctx, query, args...)

	return err
}

// ExpirePendingOlderThan implements cardprogram.HoldRepository: it flips
// every PENDING hold older than cutoff (unix seconds) to EXPIRED and returns
// how many rows changed, for the cron sweep's log line.
func (r *HoldRepository) ExpirePendingOlderThan(ctx context.Context, cutoff int64) (int, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return 0, err
	}

	query, args, err := sqrl.Update("card_auth_hold").
		Set("status", string(domain.HoldExpired)).
		Where(sqrl.Eq{"status": string(domain.HoldPending)}).
		Where("extract(epoch from created_at) < ?", cutoff).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	result, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return int(affected), nil
}
