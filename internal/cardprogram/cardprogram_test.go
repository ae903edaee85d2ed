package cardprogram_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolcard/ledger-core/internal/cardprogram"
	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/internal/ledger/postingengine"
	"github.com/poolcard/ledger-core/internal/ledger/service"
	"github.com/poolcard/ledger-core/internal/reconciliation"
	"github.com/poolcard/ledger-core/internal/splitting"
	"github.com/poolcard/ledger-core/pkg/apperr"
	"github.com/poolcard/ledger-core/pkg/mlog"
	"github.com/poolcard/ledger-core/pkg/mopentelemetry"
)

type fakeCardRepo struct{ cards map[string]domain.Card }

func (r *fakeCardRepo) FindByProviderCardID(_ context.Context, providerName, externalCardID string) (*domain.Card, error) {
	c, ok := r.cards[providerName+"/"+externalCardID]
	if !ok {
		return nil, nil
	}

	return &c, nil
}

type fakeMemberRepo struct{ members map[string][]domain.WalletMember }

func (r *fakeMemberRepo) MembersByWallet(_ context.Context, walletID string) ([]domain.WalletMember, error) {
	return r.members[walletID], nil
}

type fakeHoldRepo struct {
	byAuthID map[string]domain.CardAuthHold
	seq      int
}

func newFakeHoldRepo() *fakeHoldRepo {
	return &fakeHoldRepo{byAuthID: map[string]domain.CardAuthHold{}}
}

func (r *fakeHoldRepo) FindByProviderAuthID(_ context.Context, providerName, providerAuthID string) (*domain.CardAuthHold, error) {
	h, ok := r.byAuthID[providerName+"/"+providerAuthID]
	if !ok {
		return nil, nil
	}

	return &h, nil
}

func (r *fakeHoldRepo) SumPendingByCard(_ context.Context, cardID string) (int64, error) {
	var sum int64

	for _, h := range r.byAuthID {
		if h.CardID == cardID && h.Status == domain.HoldPending {
			sum += h.AmountMinor
		}
	}

	return sum, nil
}

func (r *fakeHoldRepo) Create(_ context.Context, hold domain.CardAuthHold) (*domain.CardAuthHold, error) {
	r.seq++
	hold.ID = "hold-" + hold.ProviderAuthID
	r.byAuthID[hold.ProviderName+"/"+hold.ProviderAuthID] = hold

	return &hold, nil
}

func (r *fakeHoldRepo) TransitionStatus(_ context.Context, id string, status domain.HoldStatus) error {
	for k, h := range r.byAuthID {
		if h.ID == id {
			h.Status = status
			r.byAuthID[k] = h
		}
	}

	return nil
}

func (r *fakeHoldRepo) ExpirePendingOlderThan(_ context.Context, cutoff int64) (int, error) {
	n := 0

	for k, h := range r.byAuthID {
		if h.Status == domain.HoldPending && h.CreatedAt.Unix() < cutoff {
			h.Status = domain.HoldExpired
			r.byAuthID[k] = h
			n++
		}
	}

	return n, nil
}

type fakeAccountRepo struct {
	ledger map[string]domain.LedgerAccount
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{ledger: map[string]domain.LedgerAccount{}}
}

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

// reconciliationRepo adapts fakeAccountRepo's ledger map to
// reconciliation.AccountRepository for end-to-end tests that check
// consistency after posting through cardprogram.
type reconciliationRepo struct {
	accounts *fakeAccountRepo
}

func (r *reconciliationRepo) AccountsByCard(_ context.Context, cardID string) ([]domain.LedgerAccount, error) {
	var out []domain.LedgerAccount

	for _, a := range r.accounts.ledger {
		if a.CardID == cardID {
			out = append(out, a)
		}
	}

	return out, nil
}

func (r *reconciliationRepo) CardsByWallet(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

type fakeEntryRepo struct {
	accounts map[string]domain.LedgerAccount
	entries  map[string][]domain.LedgerEntry
}

func (r *fakeEntryRepo) FindEntriesByTransactionID(_ context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	return r.entries[transactionID], nil
}

func (r *fakeEntryRepo) LockAccountsForUpdate(_ context.Context, accountIDs []string) (map[string]domain.LedgerAccount, error) {
	out := make(map[string]domain.LedgerAccount, len(accountIDs))

	for _, id := range accountIDs {
		if a, ok := r.accounts[id]; ok {
			out[id] = a
		}
	}

	return out, nil
}

func (r *fakeEntryRepo) InsertEntries(_ context.Context, entries []domain.LedgerEntry, deltas map[string]int64) error {
	for _, e := range entries {
		r.entries[e.TransactionID] = append(r.entries[e.TransactionID], e)
	}

	for id, delta := range deltas {
		a := r.accounts[id]
		a.Balance += delta
		r.accounts[id] = a
	}

	return nil
}

type inlineTxRunner struct{}

func (inlineTxRunner) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeMembershipRepo struct{ members []domain.WalletMember }

func (r *fakeMembershipRepo) PolicyForWallet(_ context.Context, _ string) (splitting.Policy, error) {
	return splitting.PolicyPayerOnly, nil
}

func (r *fakeMembershipRepo) MembersByJoinOrder(_ context.Context, _ string) ([]domain.WalletMember, error) {
	return r.members, nil
}

func newTestProgram(cards map[string]domain.Card, members map[string][]domain.WalletMember) (*cardprogram.Program, *fakeHoldRepo) {
	program, holds, _ := newTestProgramWithAccounts(cards, members)
	return program, holds
}

// newTestProgramWithAccounts is newTestProgram plus the backing account repo,
// for tests that also need to read the ledger directly (e.g. to run
// reconciliation after a posting sequence).
func newTestProgramWithAccounts(cards map[string]domain.Card, members map[string][]domain.WalletMember) (*cardprogram.Program, *fakeHoldRepo, *fakeAccountRepo) {
	accountRepo := newFakeAccountRepo()
	entryRepo := &fakeEntryRepo{accounts: map[string]domain.LedgerAccount{}, entries: map[string][]domain.LedgerEntry{}}

	engine := &postingengine.Engine{
		Repo:      wrapEntryRepo(accountRepo, entryRepo),
		TxRunner:  inlineTxRunner{},
		Logger:    mlog.NopLogger{},
		Telemetry: &mopentelemetry.Telemetry{ServiceName: "test"},
		NewID:     func() string { return "entry-x" },
	}

	svc := &service.Service{
		Accounts:  accountRepo,
		Engine:    engine,
		Logger:    mlog.NopLogger{},
		Telemetry: &mopentelemetry.Telemetry{ServiceName: "test"},
	}

	holds := newFakeHoldRepo()

	program := &cardprogram.Program{
		Cards:     &fakeCardRepo{cards: cards},
		Members:   &fakeMemberRepo{members: members},
		Holds:     holds,
		Ledger:    svc,
		Splits:    splitting.NewResolver(&fakeMembershipRepo{}),
		Logger:    mlog.NopLogger{},
		Telemetry: &mopentelemetry.Telemetry{ServiceName: "test"},
	}

	return program, holds, accountRepo
}

// wrapEntryRepo keeps the entry repo's accounts map synced with accounts
// created through the account repo, since Engine.Repo and Service.Accounts
// are separate ports in production but share one table in Postgres.
func wrapEntryRepo(accountRepo *fakeAccountRepo, entryRepo *fakeEntryRepo) *syncedEntryRepo {
	return &syncedEntryRepo{accountRepo: accountRepo, entryRepo: entryRepo}
}

type syncedEntryRepo struct {
	accountRepo *fakeAccountRepo
	entryRepo   *fakeEntryRepo
}

func (s *syncedEntryRepo) FindEntriesByTransactionID(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error) {
	return s.entryRepo.FindEntriesByTransactionID(ctx, transactionID)
}

func (s *syncedEntryRepo) LockAccountsForUpdate(ctx context.Context, accountIDs []string) (map[string]domain.LedgerAccount, error) {
	out := make(map[string]domain.LedgerAccount, len(accountIDs))

	for _, id := range accountIDs {
		for _, a := range s.accountRepo.ledger {
			if a.ID == id {
				out[id] = a
			}
		}
	}

	return out, nil
}

func (s *syncedEntryRepo) InsertEntries(ctx context.Context, entries []domain.LedgerEntry, deltas map[string]int64) error {
	if err := s.entryRepo.InsertEntries(ctx, entries, deltas); err != nil {
		return err
	}

	for id, delta := range deltas {
		for k, a := range s.accountRepo.ledger {
			if a.ID == id {
				a.Balance += delta
				s.accountRepo.ledger[k] = a
			}
		}
	}

	return nil
}

func TestAuthorize_DeclinesUnknownCard(t *testing.T) {
	program, _ := newTestProgram(map[string]domain.Card{}, nil)

	decision, err := program.Authorize(context.Background(), "synctera", "ext-1", 100, "auth-1", "event-1")

	require.NoError(t, err)
	assert.Equal(t, cardprogram.DecisionDecline, decision)
}

func TestAuthorize_DeclinesInsufficientPool(t *testing.T) {
	cards := map[string]domain.Card{
		"synctera/ext-1": {ID: "card-1", WalletID: "wallet-1", Status: domain.CardActive},
	}
	program, _ := newTestProgram(cards, nil)

	require.NoError(t, program.InitializeCard(context.Background(), cards["synctera/ext-1"]))

	decision, err := program.Authorize(context.Background(), "synctera", "ext-1", 500, "auth-1", "event-1")

	require.NoError(t, err)
	assert.Equal(t, cardprogram.DecisionDecline, decision)
}

func TestAuthorize_IsIdempotentByProviderAuthID(t *testing.T) {
	cards := map[string]domain.Card{
		"synctera/ext-1": {ID: "card-1", WalletID: "wallet-1", Status: domain.CardActive},
	}
	program, holds := newTestProgram(cards, nil)

	require.NoError(t, program.InitializeCard(context.Background(), cards["synctera/ext-1"]))

	// This test only cares about replay behavior, so it authorizes a
	// zero-amount purchase against the freshly-initialized (zero-balance)
	// pool rather than funding the card first; see
	// TestAuthorize_ApprovesAgainstDepositedFunds for a funded, positive-amount
	// authorization.
	decision1, err := program.Authorize(context.Background(), "synctera", "ext-1", 0, "auth-1", "event-1")
	require.NoError(t, err)
	assert.Equal(t, cardprogram.DecisionApprove, decision1)

	decision2, err := program.Authorize(context.Background(), "synctera", "ext-1", 0, "auth-1", "event-2")
	require.NoError(t, err)
	assert.Equal(t, cardprogram.DecisionApprove, decision2, "replay of the same providerAuthId must return the same decision")

	assert.Len(t, holds.byAuthID, 1)
}

// TestAuthorize_ApprovesAgainstDepositedFunds is the S1 happy path: deposit,
// authorise a positive amount against the now-funded pool, clear it, and
// confirm the card still reconciles. This is the scenario the sign-convention
// regression (pool going negative on deposit) broke: every positive
// authorization declined even though the card was fully funded.
func TestAuthorize_ApprovesAgainstDepositedFunds(t *testing.T) {
	cards := map[string]domain.Card{
		"synctera/ext-1": {ID: "card-1", WalletID: "wallet-1", Status: domain.CardActive},
	}
	members := map[string][]domain.WalletMember{
		"wallet-1": {{WalletID: "wallet-1", UserID: "user-1"}},
	}
	program, _, accounts := newTestProgramWithAccounts(cards, members)
	ctx := context.Background()

	require.NoError(t, program.InitializeCard(ctx, cards["synctera/ext-1"]))

	_, err := program.Ledger.PostCardDeposit(ctx, "wallet-1", "card-1", "user-1", 50_000, "deposit-1", nil)
	require.NoError(t, err)

	decision, err := program.Authorize(ctx, "synctera", "ext-1", 5_000, "auth-1", "event-1")
	require.NoError(t, err)
	assert.Equal(t, cardprogram.DecisionApprove, decision, "a funded card must approve an authorization within its balance")

	authID := "auth-1"
	require.NoError(t, program.Clear(ctx, "synctera", "ext-1", &authID, 5_000, "capture-1", "user-1"))

	recon := &reconciliation.Service{
		Accounts:  &reconciliationRepo{accounts: accounts},
		Logger:    mlog.NopLogger{},
		Telemetry: &mopentelemetry.Telemetry{ServiceName: "test"},
	}

	report, err := recon.Card(ctx, "card-1")
	require.NoError(t, err)
	assert.True(t, report.Consistent, "pool=%d sumEquity=%d pending=%d should reconcile", report.PoolBalance, report.SumOfMemberEquity, report.PendingWithdrawals)
	assert.Equal(t, int64(45_000), report.PoolBalance)
	assert.Equal(t, int64(45_000), report.MemberEquity["user-1"])
	assert.Equal(t, int64(0), report.PendingWithdrawals)
}

func TestReverseAuthorization_IgnoresMissingHold(t *testing.T) {
	program, _ := newTestProgram(nil, nil)

	err := program.ReverseAuthorization(context.Background(), "synctera", "auth-does-not-exist")

	require.NoError(t, err)
}

func TestReverseAuthorization_TransitionsMatchingHold(t *testing.T) {
	cards := map[string]domain.Card{
		"synctera/ext-1": {ID: "card-1", WalletID: "wallet-1", Status: domain.CardActive},
	}
	program, holds := newTestProgram(cards, nil)
	require.NoError(t, program.InitializeCard(context.Background(), cards["synctera/ext-1"]))

	_, err := program.Authorize(context.Background(), "synctera", "ext-1", 0, "auth-1", "event-1")
	require.NoError(t, err)

	require.NoError(t, program.ReverseAuthorization(context.Background(), "synctera", "auth-1"))

	assert.Equal(t, domain.HoldReversed, holds.byAuthID["synctera/auth-1"].Status)
}

func TestExpireStaleHolds_TransitionsOldPendingHolds(t *testing.T) {
	program, holds := newTestProgram(nil, nil)

	old := time.Now().Add(-8 * 24 * time.Hour)
	holds.byAuthID["synctera/auth-old"] = domain.CardAuthHold{
		ID: "hold-old", ProviderName: "synctera", ProviderAuthID: "auth-old",
		Status: domain.HoldPending, CreatedAt: old,
	}

	n, err := program.ExpireStaleHolds(context.Background(), time.Now().Add(-7*24*time.Hour).Unix())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.HoldExpired, holds.byAuthID["synctera/auth-old"].Status)
}

func TestActivateOnStatus_IgnoresNonActiveStatus(t *testing.T) {
	cards := map[string]domain.Card{
		"synctera/ext-1": {ID: "card-1", WalletID: "wallet-1", Status: domain.CardActive},
	}
	program, _ := newTestProgram(cards, nil)

	err := program.ActivateOnStatus(context.Background(), "synctera", "ext-1", "CLOSED")
	require.NoError(t, err)
}

func TestActivateOnStatus_IgnoresUnknownCard(t *testing.T) {
	program, _ := newTestProgram(nil, nil)

	err := program.ActivateOnStatus(context.Background(), "synctera", "does-not-exist", string(domain.CardActive))

	require.NoError(t, err)
}

func TestActivateOnStatus_InitializesPoolAndMemberAccounts(t *testing.T) {
	cards := map[string]domain.Card{
		"synctera/ext-1": {ID: "card-1", WalletID: "wallet-1", Status: domain.CardActive},
	}
	members := map[string][]domain.WalletMember{
		"wallet-1": {{WalletID: "wallet-1", UserID: "user-1"}, {WalletID: "wallet-1", UserID: "user-2"}},
	}
	program, _ := newTestProgram(cards, members)

	require.NoError(t, program.ActivateOnStatus(context.Background(), "synctera", "ext-1", string(domain.CardActive)))

	decision, err := program.Authorize(context.Background(), "synctera", "ext-1", 0, "auth-1", "event-1")
	require.NoError(t, err)
	assert.Equal(t, cardprogram.DecisionApprove, decision)

	// Idempotent: a second CARD_STATUS/ACTIVE event must not fail even though
	// the pool and member-equity accounts already exist.
	require.NoError(t, program.ActivateOnStatus(context.Background(), "synctera", "ext-1", string(domain.CardActive)))
}
