package splitting_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/internal/splitting"
)

type fakeMembershipRepo struct {
	policy  splitting.Policy
	members []domain.WalletMember
	calls   int
}

func (r *fakeMembershipRepo) PolicyForWallet(_ context.Context, _ string) (splitting.Policy, error) {
	r.calls++
	return r.policy, nil
}

func (r *fakeMembershipRepo) MembersByJoinOrder(_ context.Context, _ string) ([]domain.WalletMember, error) {
	return r.members, nil
}

func TestSplit_PayerOnlyPutsEntireAmountOnCardholder(t *testing.T) {
	repo := &fakeMembershipRepo{policy: splitting.PolicyPayerOnly}
	resolver := splitting.NewResolver(repo)

	splits, err := resolver.Split(context.Background(), "wallet-1", "user-1", 999)

	require.NoError(t, err)
	require.Len(t, splits, 1)
	assert.Equal(t, "user-1", splits[0].UserID)
	assert.Equal(t, int64(999), splits[0].Amount)
}

func TestSplit_EqualSplitDistributesRemainderByJoinOrder(t *testing.T) {
	now := time.Unix(1700000000, 0)
	members := []domain.WalletMember{
		{UserID: "c", JoinedAt: now.Add(2 * time.Hour)},
		{UserID: "a", JoinedAt: now},
		{UserID: "b", JoinedAt: now.Add(1 * time.Hour)},
	}
	repo := &fakeMembershipRepo{policy: splitting.PolicyEqualSplit, members: members}
	resolver := splitting.NewResolver(repo)

	splits, err := resolver.Split(context.Background(), "wallet-1", "user-a", 100)

	require.NoError(t, err)
	require.Len(t, splits, 3)

	var total int64
	for _, s := range splits {
		total += s.Amount
	}
	assert.Equal(t, int64(100), total)

	assert.Equal(t, "a", splits[0].UserID)
	assert.Equal(t, int64(34), splits[0].Amount)
	assert.Equal(t, "b", splits[1].UserID)
	assert.Equal(t, int64(33), splits[1].Amount)
	assert.Equal(t, "c", splits[2].UserID)
	assert.Equal(t, int64(33), splits[2].Amount)
}

func TestSplit_CachesPolicyLookupUntilInvalidated(t *testing.T) {
	repo := &fakeMembershipRepo{policy: splitting.PolicyPayerOnly}
	resolver := splitting.NewResolver(repo)

	_, err := resolver.Split(context.Background(), "wallet-1", "user-1", 100)
	require.NoError(t, err)

	_, err = resolver.Split(context.Background(), "wallet-1", "user-1", 100)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.calls, "second lookup should hit the cache")

	resolver.Invalidate(context.Background(), "wallet-1")

	_, err = resolver.Split(context.Background(), "wallet-1", "user-1", 100)
	require.NoError(t, err)

	assert.Equal(t, 2, repo.calls, "lookup after invalidate should miss the cache")
}
