package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/pkg/mpostgres"
)

func newWebhookRepoWithMock(t *testing.T) (*WebhookEventRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &WebhookEventRepository{Connection: mpostgres.WithDB(db)}, mock
}

func TestWebhookEventRepository_MarkProcessed_FirstDeliveryIsNew(t *testing.T) {
	repo, mock := newWebhookRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO processed_event`).
		WithArgs("synctera", "evt-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	alreadyProcessed, err := repo.MarkProcessed(context.Background(), "synctera", "evt-1")

	require.NoError(t, err)
	assert.False(t, alreadyProcessed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookEventRepository_MarkProcessed_DuplicateIsIgnored(t *testing.T) {
	repo, mock := newWebhookRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO processed_event`).
		WithArgs("synctera", "evt-1").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	alreadyProcessed, err := repo.MarkProcessed(context.Background(), "synctera", "evt-1")

	require.NoError(t, err)
	assert.True(t, alreadyProcessed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookEventRepository_InsertRawEvent_RetriesIgnoredAsNoop(t *testing.T) {
	repo, mock := newWebhookRepoWithMock(t)

	mock.ExpectExec(`INSERT INTO baas_event`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.InsertRawEvent(context.Background(), domain.BaasEvent{
		ProviderName: "synctera", ProviderEventID: "evt-1", Type: domain.EventCardAuth,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
