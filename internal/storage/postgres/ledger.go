package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	sqrl "github.com/Masterminds/squirrel"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/pkg/apperr"
	"github.com/poolcard/ledger-core/pkg/dbtx"
	"github.com/poolcard/ledger-core/pkg/idgen"
	"github.com/poolcard/ledger-core/pkg/mpostgres"
)

// LedgerRepository backs both postingengine.Repository and
// service.AccountRepository: both ports read and write the same
// ledger_account/ledger_entry tables, so one adapter serves both to avoid
// two independent statements locking the same rows differently.
type LedgerRepository struct {
	Connection *mpostgres.Connection
}

func (r *LedgerRepository) executor(ctx context.Context) (dbtx.Executor, error) {
	db, err := r.Connection.Primary(ctx)
	if err != nil {
		return nil, err
	}

	return dbtx.GetExecutor(ctx, db), nil
}

// FindByScope implements service.AccountRepository.
func (r *LedgerRepository) FindByScope(ctx context.Context, cardID string, scope domain.Scope, userID *string) (*domain.LedgerAccount, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return nil, err
	}

	builder := sqrl.Select("id", "wallet_id", "card_id", "scope", "user_id", "balance", "currency", "created_at").
		From("ledger_account").
		Where(sqrl.Eq{"card_id": cardID, "scope": string(scope)}).
		PlaceholderFormat(sqrl.Dollar)

	if userID != nil {
		builder = builder.Where(sqrl.Eq{"user_id": *userID})
	} else {
		builder = builder.Where("user_id IS NULL")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var acc domain.LedgerAccount

	row := exec.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&acc.ID, &acc.WalletID, &acc.CardID, &acc.Scope, &acc.UserID, &acc.Balance, &acc.Currency, &acc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.EntityNotFoundError{EntityType: "LedgerAccount", Code: "LED-0005"}
		}

		return nil, err
	}

	return &acc, nil
}

// CreateAccount implements service.AccountRepository.
func (r *LedgerRepository) CreateAccount(ctx context.Context, account domain.LedgerAccount) (*domain.LedgerAccount, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return nil, err
	}

	account.ID = idgen.New()

	query, args, err := sqrl.Insert("ledger_account").
		Columns("id", "wallet_id", "card_id", "scope", "user_id", "balance", "currency", "created_at").
		Values(account.ID, account.WalletID, account.CardID, string(account.Scope), account.UserID, account.Balance, account.Currency, sqrl.Expr("now()")).
		PlaceholderFormat(sqrl.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}

	return &account, nil
}

// FindEntriesByTransactionID implements postingengine.Repository.
func (r *LedgerRepository) FindEntriesByTransactionID(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select("id", "transaction_id", "debit_account_id", "credit_account_id", "amount", "metadata", "created_at").
		From("ledger_entry").
		Where(sqrl.Eq{"transaction_id": transactionID}).
		OrderBy("created_at ASC").
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

	var entries []domain.LedgerEntry

	for rows.Next() {
		var e domain.LedgerEntry

		var meta []byte

		if err := rows.Scan(&e.ID, &e.TransactionID, &e.DebitAccountID, &e.CreditAccountID, &e.Amount, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}

		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, err
			}
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// LockAccountsForUpdate implements postingengine.Repository. It must run
// inside the transaction TxRunner already attached to ctx, so every lock is
// released only when the posting commits or rolls back.
func (r *LedgerRepository) LockAccountsForUpdate(ctx context.Context, accountIDs []string) (map[string]domain.LedgerAccount, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select("id", "wallet_id", "card_id", "scope", "user_id", "balance", "currency", "created_at").
		From("ledger_account").
		Where(sqrl.Eq{"id": accountIDs}).
		OrderBy("id").
		Suffix("FOR UPDATE").
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

	out := make(map[string]domain.LedgerAccount, len(accountIDs))

	for rows.Next() {
		var acc domain.LedgerAccount
		if err := rows.Scan(&acc.ID, &acc.WalletID, &acc.CardID, &acc.Scope, &acc.UserID, &acc.Balance, &acc.Currency, &acc.CreatedAt); err != nil {
			return nil, err
		}

		out[acc.ID] = acc
	}

	return out, rows.Err()
}

// InsertEntries implements postingengine.Repository, writing every entry and
// applying its balance delta in the caller's transaction.
func (r *LedgerRepository) InsertEntries(ctx context.Context, entries []domain.LedgerEntry, deltas map[string]int64) error {
	exec, err := r.executor(ctx)
	if err != nil {
		return err
	}

	insert := sqrl.Insert("ledger_entry").
		Columns("id", "transaction_id", "debit_account_id", "credit_account_id", "amount", "metadata", "created_at")

	for _, e := range entries {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}

		insert = insert.Values(e.ID, e.TransactionID, e.DebitAccountID, e.CreditAccountID, e.Amount, meta, sqrl.Expr("now()"))
	}

	query, args, err := insert.PlaceholderFormat(sqrl.Dollar).ToSql()
	if err != nil {
		return err
	}

	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	for accountID, delta := range deltas {
		query, args, err := sqrl.Update("ledger_account").
			Set("balance", sqrl.Expr("balance + ?", delta)).
			Where(sqrl.Eq{"id": accountID}).
			PlaceholderFormat(sqrl.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		if _, err := exec.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	return nil
}

// AccountsByCard implements reconciliation.AccountRepository.
func (r *LedgerRepository) AccountsByCard(ctx context.Context, cardID string) ([]domain.LedgerAccount, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select("id", "wallet_id", "card_id", "scope", "user_id", "balance", "currency", "created_at").
		From("ledger_account").
		Where(sqrl.Eq{"card_id": cardID}).
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

	var out []domain.LedgerAccount

	for rows.Next() {
		var acc domain.LedgerAccount
		if err := rows.Scan(&acc.ID, &acc.WalletID, &acc.CardID, &acc.Scope, &acc.UserID, &acc.Balance, &acc.Currency, &acc.CreatedAt); err != nil {
			return nil, err
		}

		out = append(out, acc)
	}

	return out, rows.Err()
}

// CardsByWallet implements reconciliation.AccountRepository.
func (r *LedgerRepository) CardsByWallet(ctx context.Context, walletID string) ([]string, error) {
	exec, err := r.executor(ctx)
	if err != nil {
		return nil, err
	}

	query, args, err := sqrl.Select("id").
		From("card").
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

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}
