// Package splitting turns a CARD_CLEARING amount into per-member splits
// (SPEC_FULL.md §4.9), cached by walletId with a TTL safety net. Grounded on
// the teacher's cache-aside pattern in common/mredis usage plus
// hashicorp/golang-lru for the in-process layer.
package splitting

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"

	"github.com/poolcard/ledger-core/internal/domain"
	"github.com/poolcard/ledger-core/internal/ledger/service"
)

// Policy discriminates how a capture is divided across wallet members.
type Policy string

const (
	// PolicyPayerOnly puts the entire amount on the cardholder.
	PolicyPayerOnly Policy = "PAYER_ONLY"
	// PolicyEqualSplit divides the amount evenly, remainder by join order.
	PolicyEqualSplit Policy = "EQUAL_SPLIT"
)

const (
	cacheTTL      = 60 * time.Second
	cacheCapacity = 1000
)

// MembershipRepository resolves a wallet's policy and its members ordered by
// join time, the ordering needed to distribute EQUAL_SPLIT remainders
// deterministically.
type MembershipRepository interface {
	PolicyForWallet(ctx context.Context, walletID string) (Policy, error)
	MembersByJoinOrder(ctx context.Context, walletID string) ([]domain.WalletMember, error)
}

type cacheEntry struct {
	policy    Policy
	members   []domain.WalletMember
	expiresAt time.Time
}

// redisEntry is the wire shape stored in the shared Redis tier.
type redisEntry struct {
	Policy  Policy                `json:"policy"`
	Members []domain.WalletMember `json:"members"`
}

// Resolver computes splits and caches the policy lookup per wallet. Two
// tiers: an in-process LRU (cheapest, per-instance) backed by a shared
// Redis tier so a cold instance doesn't have to hit Postgres on every miss.
// Redis is optional; a nil client degrades to LRU+repository only.
type Resolver struct {
	Repo  MembershipRepository
	Redis *redis.Client

	mu    sync.Mutex
	cache *lru.Cache[string, cacheEntry]
}

// NewResolver constructs a Resolver with the default cache capacity and no
// shared Redis tier. Use NewResolverWithRedis to wire the shared tier.
func NewResolver(repo MembershipRepository) *Resolver {
	cache, _ := lru.New[string, cacheEntry](cacheCapacity)
	return &Resolver{Repo: repo, cache: cache}
}

// NewResolverWithRedis constructs a Resolver with a shared Redis cache tier
// in front of the repository, for cross-instance consistency.
func NewResolverWithRedis(repo MembershipRepository, client *redis.Client) *Resolver {
	r := NewResolver(repo)
	r.Redis = client

	return r
}

// Invalidate drops the cached policy/members for walletID, e.g. when an
// admin changes the policy or the membership roster changes. No write path
// in this module calls it; cached entries otherwise last until their TTL.
func (r *Resolver) Invalidate(ctx context.Context, walletID string) {
	r.mu.Lock()
	r.cache.Remove(walletID)
	r.mu.Unlock()

	if r.Redis != nil {
		r.Redis.Del(ctx, redisKey(walletID))
	}
}

func redisKey(walletID string) string { return "splitting:policy:" + walletID }

// Split computes the per-member splits for a CARD_CLEARING of amount,
// attributed to cardholderUserID under walletID's current policy.
func (r *Resolver) Split(ctx context.Context, walletID, cardholderUserID string, amount int64) ([]service.Split, error) {
	policy, members, err := r.lookup(ctx, walletID)
	if err != nil {
		return nil, err
	}

	switch policy {
	case PolicyPayerOnly:
		return []service.Split{{UserID: cardholderUserID, Amount: amount}}, nil
	case PolicyEqualSplit:
		return equalSplit(members, amount), nil
	default:
		return []service.Split{{UserID: cardholderUserID, Amount: amount}}, nil
	}
}

func (r *Resolver) lookup(ctx context.Context, walletID string) (Policy, []domain.WalletMember, error) {
	r.mu.Lock()

	if entry, ok := r.cache.Get(walletID); ok && time.Now().Before(entry.expiresAt) {
		r.mu.Unlock()
		return entry.policy, entry.members, nil
	}

	r.mu.Unlock()

	if r.Redis != nil {
		if policy, members, ok := r.getFromRedis(ctx, walletID); ok {
			r.storeLRU(walletID, policy, members)
			return policy, members, nil
		}
	}

	policy, err := r.Repo.PolicyForWallet(ctx, walletID)
	if err != nil {
		return "", nil, err
	}

	members, err := r.Repo.MembersByJoinOrder(ctx, walletID)
	if err != nil {
		return "", nil, err
	}

	r.storeLRU(walletID, policy, members)

	if r.Redis != nil {
		r.storeRedis(ctx, walletID, policy, members)
	}

	return policy, members, nil
}

func (r *Resolver) storeLRU(walletID string, policy Policy, members []domain.WalletMember) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache.Add(walletID, cacheEntry{policy: policy, members: members, expiresAt: time.Now().Add(cacheTTL)})
}

func (r *Resolver) getFromRedis(ctx context.Context, walletID string) (Policy, []domain.WalletMember, bool) {
	raw, err := r.Redis.Get(ctx, redisKey(walletID)).Bytes()
	if err != nil {
		return "", nil, false
	}

	var entry redisEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return "", nil, false
	}

	return entry.Policy, entry.Members, true
}

func (r *Resolver) storeRedis(ctx context.Context, walletID string, policy Policy, members []domain.WalletMember) {
	raw, err := json.Marshal(redisEntry{Policy: policy, Members: members})
	if err != nil {
		return
	}

	r.Redis.Set(ctx, redisKey(walletID), raw, cacheTTL)
}

// equalSplit divides amount across members, with the amount-mod-N remainder
// distributed one minor unit at a time in join order.
func equalSplit(members []domain.WalletMember, amount int64) []service.Split {
	n := int64(len(members))
	if n == 0 {
		return nil
	}

	ordered := make([]domain.WalletMember, len(members))
	copy(ordered, members)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].JoinedAt.Before(ordered[j].JoinedAt) })

	base := amount / n
	remainder := amount % n

	splits := make([]service.Split, 0, n)

	for i, m := range ordered {
		share := base
		if int64(i) < remainder {
			share++
		}

		splits = append(splits, service.Split{UserID: m.UserID, Amount: share})
	}

	return splits
}
