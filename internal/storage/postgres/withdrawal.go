package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/pkg/apperr"
	"github.com/poolcard/ledger-core/pkg/dbtx"
	"github.com/poolcard/ledger-core/pkg/idgen"
	"github.com/poolcard/ledger-core/pkg/mpostgres"
)

// WithdrawalRepository backs withdrawal.Repository.
type WithdrawalRepository struct {
	Connection *mpostgres.Connection
}

func (r *WithdrawalRepository) executor(ctx context.Context) (dbtx.Executor, error) {
	db, err := r.Connection.Primary(ctx)
	if err != nil {
		return nil, err
	}

	return dbtx.GetExecutor(ctx, db), nil
}

// CreateRequest implements withdrawal.Repository.
func (r *WithdrawalRepository) CreateRequest(ctx context.Context, req domain.WithdrawalRequest) (*domain.WithdrawalRequest, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return nil, err
	}

	req.ID = idgen.New()

	query, args, err := sqrl.Insert("withdrawal_request").
		Columns("id", "wallet_id", "card_id", "user_id", "amount_minor", "currency", "status", "created_at").
		Values(req.ID, req.WalletID, req.CardID, req.UserID, req.AmountMinor, req.Currency, string(req.Status), sqrl.Expr("now()")).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}

	return &req, nil
}

// FindRequest implements withdrawal.Repository.
func (r *WithdrawalRepository) FindRequest(ctx context.Context, requestID string) (*domain.WithdrawalRequest, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select("id", "wallet_id", "card_id", "user_id", "amount_minor", "currency", "status",
		"failure_reason", "created_at", "completed_at", "failed_at", "ledger_transaction_id").
		From("withdrawal_request").
		Where(sqrl.Eq{"id": requestID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var req domain.WithdrawalRequest

	var failureReason, ledgerTxID sql.NullString

	row := exec.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&req.ID, &req.WalletID, &req.CardID, &req.UserID, &req.AmountMinor, &req.Currency, &req.Status,
		&failureReason, &req.CreatedAt, &req.CompletedAt, &req.FailedAt, &ledgerTxID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.EntityNotFoundError{EntityType: "WithdrawalRequest", Code: "LED-0012"}
		}

		return nil, err
	}

	req.FailureReason = failureReason.String
	req.LedgerTransactionID = ledgerTxID.String

	return &req, nil
}

// UpdateRequestStatus implements withdrawal.Repository.
func (r *WithdrawalRepository) UpdateRequestStatus(ctx context.Context, requestID string, status domain.WithdrawalStatus, failureReason string, at time.Time) error {
	exec, err := r.executor(ctx)
	if err != nil {
		return err
	}

	update := sqrl.Update("withdrawal_request").
		Set("status", string(status)).
		Where(sqrl.Eq{"id": requestID})

	switch status {
	case domain.WithdrawalCompleted:
		update = update.Set("completed_at", at)
	case domain.WithdrawalFailed:
		update = update.Set("failed_at", at).Set("failure_reason", failureReason)
	}

	query, args, err := update.PlaceholderFormat(sqrl.Dollar).ToSql()
	if err != nil {
		return err
	}

	_, err = exec.ExecContext(ctx, query, args...)

	return err
}

// CreateTransfer implements withdrawal.Repository.
func (r *WithdrawalRepository) CreateTransfer(ctx context.Context, transfer domain.WithdrawalTransfer) (*domain.WithdrawalTransfer, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return nil, err
	}

	transfer.ID = idgen.New()

	query, args, err := sqrl.Insert("withdrawal_transfer").
		Columns("id", "withdrawal_request_id", "provider_name", "provider_transfer_id", "amount_minor", "status").
		Values(transfer.ID, transfer.WithdrawalRequestID, transfer.ProviderName, nullIfEmpty(transfer.ProviderTransferID), transfer.AmountMinor, string(transfer.Status)).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}

	return &transfer, nil
}

// FindTransferByProviderID implements withdrawal.Repository. A missing
// transfer is reported as (nil, nil).
func (r *WithdrawalRepository) FindTransferByProviderID(ctx context.Context, providerName, providerTransferID string) (*domain.WithdrawalTransfer, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select("id", "withdrawal_request_id", "provider_name", "provider_transfer_id", "amount_minor", "status").
		From("withdrawal_transfer").
		Where(sqrl.Eq{"provider_name": providerName, "provider_transfer_id": providerTransferID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var t domain.WithdrawalTransfer

	var providerTransferIDCol sql.NullString

	row := exec.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&t.ID, &t.WithdrawalRequestID, &t.ProviderName, &providerTransferIDCol, &t.AmountMinor, &t.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	t.ProviderTransferID = providerTransferIDCol.String

	return &t, nil
}

// UpdateTransferStatus implements withdrawal.Repository.
func (r *WithdrawalRepository) UpdateTransferStatus(ctx context.Context, transferID string, status domain.TransferStatus) error {
	exec, err := r.executor(ctx)
	if err != nil {
		return err
	}

	query, args, err := sqrl.Update("withdrawal_transfer").
		Set("status", string(status)).
		Where(sqrl.Eq{"id": transferID}).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = exec.ExecContext(ctx, query, args...)

	return err
}

// ListByWallet implements withdrawal.Repository.
func (r *WithdrawalRepository) ListByWallet(ctx context.Context, walletID string, status *domain.WithdrawalStatus, limit, offset int) ([]domain.WithdrawalRequest, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return nil, err
	}

	builder := sqrl.Select("id", "wallet_id", "card_id", "user_id", "amount_minor", "currency", "status",
		"failure_reason", "created_at", "completed_at", "failed_at", "ledger_transaction_id").
		From("withdrawal_request").
		Where(sqrl.Eq{"wallet_id": walletID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	if status != nil {
		builder = builder.Where(sqrl.Eq{"status": string(*status)})
	}

	query, args, err := builder.PlaceholderFormat(sqrl.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.WithdrawalRequest

	for rows.Next() {
		var req domain.WithdrawalRequest

		var failureReason, ledgerTxID sql.NullString

		if err := rows.Scan(&req.ID, &req.WalletID, &req.CardID, &req.UserID, &req.AmountMinor, &req.Currency, &req.Status,
			&failureReason, &req.CreatedAt, &req.CompletedAt, &req.FailedAt, &ledgerTxID); err != nil {
			return nil, err
		}

		req.FailureReason = failureReason.String
		req.LedgerTransactionID = ledgerTxID.String
		out = append(out, req)
	}

	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}

	return s
}
