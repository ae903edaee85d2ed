package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolcard/ledger-core/pkg/mpostgres"
)

func newHoldRepoWithMock(t *testing.T) (*HoldRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &HoldRepository{Connection: mpostgres.WithDB(db)}, mock
}

func TestHoldRepository_SumPendingByCard(t *testing.T) {
	repo, mock := newHoldRepoWithMock(t)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount_minor\), 0\) FROM card_auth_hold`).
		WithArgs("card-1", "PENDING").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(int64(1500)))

	sum, err := repo.SumPendingByCard(context.Background(), "card-1")

	require.NoError(t, err)
	assert.Equal(t, int64(1500), sum)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldRepository_ExpirePendingOlderThan_ReportsAffectedCount(t *testing.T) {
	repo, mock := newHoldRepoWithMock(t)

	mock.ExpectExec(`UPDATE card_auth_hold SET status`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.ExpirePendingOlderThan(context.Background(), 1700000000)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
