package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/pkg/apperr"
	"github.com/poolcard/ledger-core/pkg/mpostgres"
)

func newCardRepoWithMock(t *testing.T) (*CardRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &CardRepository{Connection: mpostgres.WithDB(db)}, mock
}

func TestCardRepository_FindByID_Found(t *testing.T) {
	repo, mock := newCardRepoWithMock(t)

	mock.ExpectQuery(`SELECT (.+) FROM card`).
		WithArgs("card-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "wallet_id", "holder_user_id", "status", "provider_name", "external_card_id", "currency", "created_at", "updated_at"}).
			AddRow("card-1", "wallet-1", "user-1", "ACTIVE", "mock", "ext-1", "USD", time.Now(), time.Now()))

	card, err := repo.FindByID(context.Background(), "card-1")

	require.NoError(t, err)
	assert.Equal(t, "wallet-1", card.WalletID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepository_FindByID_NotFound(t *testing.T) {
	repo, mock := newCardRepoWithMock(t)

	mock.ExpectQuery(`SELECT (.+) FROM card`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "wallet_id", "holder_user_id", "status", "provider_name", "external_card_id", "currency", "created_at", "updated_at"}))

	_, err := repo.FindByID(context.Background(), "missing")

	require.Error(t, err)
	assert.IsType(t, apperr.EntityNotFoundError{}, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepository_Create_DuplicateMapsToConflict(t *testing.T) {
	repo, mock := newCardRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO card`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), domain.Card{
		WalletID: "wallet-1", HolderUserID: "user-1", Status: domain.CardActive,
		ProviderName: "mock", ExternalCardID: "ext-1", Currency: "USD",
	})

	require.Error(t, err)
	assert.IsType(t, apperr.EntityConflictError{}, err)
}
