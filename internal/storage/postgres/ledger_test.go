package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/pkg/apperr"
	"github.com/poolcard/ledger-core/pkg/mpostgres"
)

func newRepoWithMock(t *testing.T) (*LedgerRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &LedgerRepository{Connection: mpostgres.WithDB(db)}, mock
}

func TestLedgerRepository_FindByScope_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT (.+) FROM ledger_account`).
		WithArgs("card-1", string(domain.ScopeCardPool)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "wallet_id", "card_id", "scope", "user_id", "balance", "currency", "created_at"}))

	_, err := repo.FindByScope(context.Background(), "card-1", domain.ScopeCardPool, nil)

	require.Error(t, err)
	assert.IsType(t, apperr.EntityNotFoundError{}, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_FindByScope_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT (.+) FROM ledger_account`).
		WithArgs("card-1", string(domain.ScopeCardPool)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "wallet_id", "card_id", "scope", "user_id", "balance", "currency", "created_at"}).
			AddRow("acct-1", "wallet-1", "card-1", "CARD_POOL", nil, int64(1000), "USD", time.Now()))

	acc, err := repo.FindByScope(context.Background(), "card-1", domain.ScopeCardPool, nil)

	require.NoError(t, err)
	assert.Equal(t, int64(1000), acc.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_InsertEntries_AppliesDeltas(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO ledger_entry`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE ledger_account SET balance`).
		WithArgs(int64(-500), "acct-pool").
		WillReturnResult(sqlmock.NewResult(1, 1))

	entries := []domain.LedgerEntry{
		{ID: "entry-1", TransactionID: "tx-1", DebitAccountID: "acct-pool", CreditAccountID: "acct-equity", Amount: 500},
	}

	err := repo.InsertEntries(context.Background(), entries, map[string]int64{"acct-pool": -500})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_FindEntriesByTransactionID_Empty(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT (.+) FROM ledger_entry`).
		WithArgs("tx-unknown").
		WillReturnRows(sqlmock.NewRows([]string{"id", "transaction_id", "debit_account_id", "credit_account_id", "amount", "metadata", "created_at"}))

	entries, err := repo.FindEntriesByTransactionID(context.Background(), "tx-unknown")

	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}
