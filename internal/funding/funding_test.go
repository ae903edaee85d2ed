package funding_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/internal/funding"
	"github.com/poolcard/ledger-core/internal/ledger/postingengine"
	"github.com/poolcard/ledger-core/internal/ledger/service"
	"github.com/poolcard/ledger-core/pkg/apperr"
	"github.com/poolcard/ledger-core/pkg/mlog"
	"github.com/poolcard/ledger-core/pkg/mopentelemetry"
)

type fakeRouteRepo struct {
	routes map[string]domain.BaasFundingRoute
}

func routeKey(providerName, providerAccountID, reference string) string {
	return providerName + "|" + providerAccountID + "|" + reference
}

func (r *fakeRouteRepo) FindRoute(_ context.Context, providerName, providerAccountID, reference string) (*domain.BaasFundingRoute, error) {
	route, ok := r.routes[routeKey(providerName, providerAccountID, reference)]
	if !ok {
		return nil, nil
	}

	return &route, nil
}

type fakeAccountRepo struct{ ledger map[string]domain.LedgerAccount }

func newFakeAccountRepo() *fakeAccountRepo { return &fakeAccountRepo{ledger: map[string]domain.LedgerAccount{}} }

func acctKey(cardID string, scope domain.Scope, userID *string) string {
	u := ""
	if userID != nil {
		u = *userID
	}

	return cardID + "|" + string(scope) + "|" + u
}

func (r *fakeAccountRepo) FindByScope(_ context.Context, cardID string, scope domain.Scope, userID *string) (*domain.LedgerAccount, error) {
	a, ok := r.ledger[acctKey(cardID, scope, userID)]
	if !ok {
		return nil, apperr.EntityNotFoundError{EntityType: "LedgerAccount"}
	}

	return &a, nil
}

func (r *fakeAccountRepo) CreateAccount(_ context.Context, account domain.LedgerAccount) (*domain.LedgerAccount, error) {
	account.ID = "acct-" + acctKey(account.CardID, account.Scope, account.UserID)
	r.ledger[acctKey(account.CardID, account.Scope, account.UserID)] = account

	return &account, nil
}

type fakeEntryRepo struct {
	accountRepo *fakeAccountRepo
	entries     map[string][]domain.LedgerEntry
}

func (r *fakeEntryRepo) FindEntriesByTransactionID(_ context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	return r.entries[transactionID], nil
}

func (r *fakeEntryRepo) LockAccountsForUpdate(_ context.Context, accountIDs []string) (map[string]domain.LedgerAccount, error) {
	out := make(map[string]domain.LedgerAccount, len(accountIDs))

	for _, id := range accountIDs {
		for _, a := range r.accountRepo.ledger {
			if a.ID == id {
				out[id] = a
			}
		}
	}

	return out, nil
}

func (r *fakeEntryRepo) InsertEntries(_ context.Context, entries []domain.LedgerEntry, deltas map[string]int64) error {
	for _, e := range entries {
		r.entries[e.TransactionID] = append(r.entries[e.TransactionID], e)
	}

	for id, delta := range deltas {
		for k, a := range r.accountRepo.ledger {
			if a.ID == id {
				a.Balance += delta
				r.accountRepo.ledger[k] = a
			}
		}
	}

	return nil
}

type inlineTxRunner struct{}

func (inlineTxRunner) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func strPtr(s string) *string { return &s }

func newTestRouter(routes map[string]domain.BaasFundingRoute) (*funding.Router, *fakeAccountRepo) {
	accountRepo := newFakeAccountRepo()
	entryRepo := &fakeEntryRepo{accountRepo: accountRepo, entries: map[string][]domain.LedgerEntry{}}

	engine := &postingengine.Engine{
		Repo: entryRepo, TxRunner: inlineTxRunner{}, Logger: mlog.NopLogger{},
		Telemetry: &mopentelemetry.Telemetry{ServiceName: "test"}, NewID: func() string { return "entry-x" },
	}

	svc := &service.Service{Accounts: accountRepo, Engine: engine, Logger: mlog.NopLogger{}, Telemetry: &mopentelemetry.Telemetry{ServiceName: "test"}}

	router := &funding.Router{
		Routes: &fakeRouteRepo{routes: routes}, Ledger: svc, Logger: mlog.NopLogger{},
		Telemetry: &mopentelemetry.Telemetry{ServiceName: "test"},
	}

	return router, accountRepo
}

func TestRoute_ExactMatchCreditsCard(t *testing.T) {
	routes := map[string]domain.BaasFundingRoute{
		routeKey("synctera", "acct-1", "ref-1"): {WalletID: "wallet-1", CardID: "card-1", UserID: "user-1"},
	}
	router, accountRepo := newTestRouter(routes)

	err := router.Route(context.Background(), "synctera", "acct-1", "ref-1", 500, "tx-1")

	require.NoError(t, err)

	equity, err := accountRepo.FindByScope(context.Background(), "card-1", domain.ScopeCardMemberEquity, strPtr("user-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(500), equity.DisplayBalance())
}

func TestRoute_FallsBackToDefaultRoute(t *testing.T) {
	routes := map[string]domain.BaasFundingRoute{
		routeKey("synctera", "acct-1", ""): {WalletID: "wallet-1", CardID: "card-1", UserID: "user-1"},
	}
	router, accountRepo := newTestRouter(routes)

	err := router.Route(context.Background(), "synctera", "acct-1", "unknown-ref", 500, "tx-1")

	require.NoError(t, err)

	equity, err := accountRepo.FindByScope(context.Background(), "card-1", domain.ScopeCardMemberEquity, strPtr("user-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(500), equity.DisplayBalance())
}

func TestRoute_NoRouteFoundIsHandledWithoutError(t *testing.T) {
	router, _ := newTestRouter(nil)

	err := router.Route(context.Background(), "synctera", "acct-1", "ref-1", 500, "tx-1")

	require.NoError(t, err, "an unroutable funding event must not fail the webhook dispatch")
}
