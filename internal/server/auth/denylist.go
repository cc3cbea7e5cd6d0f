package auth

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// Denylist remembers revoked token ids until the tokens would have expired
// anyway.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryDenylist keeps revocations in this process. Revocations are lost on
// restart and are not shared between replicas. The cache is bounded: when it
// is full the oldest entry is dropped even if its token is still valid, and
// that token is accepted again. OnEarlyEviction reports such drops.
type MemoryDenylist struct {
	entries *expirable.LRU[string, time.Time]
	now     func() time.Time

	mu           sync.Mutex
	onEarlyEvict func(tokenID string, until time.Time)
}

// NewMemoryDenylist holds up to size entries, each for at most maxTTL
// (normally the access token lifetime).
func NewMemoryDenylist(size int, maxTTL time.Duration) *MemoryDenylist {
	d := &MemoryDenylist{now: time.Now}
	d.entries = expirable.NewLRU[string, time.Time](size, d.evicted, maxTTL)
	return d
}

// OnEarlyEviction registers fn to be called for entries dropped to make room
// while the token they block has not expired yet.
func (d *MemoryDenylist) OnEarlyEviction(fn func(tokenID string, until time.Time)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onEarlyEvict = fn
}

func (d *MemoryDenylist) evicted(tokenID string, until time.Time) {
	if !until.After(d.now()) {
		return
	}
	d.mu.Lock()
	fn := d.onEarlyEvict
	d.mu.Unlock()
	if fn != nil {
		fn(tokenID, until)
	}
}

func (d *MemoryDenylist) Revoke(_ context.Context, tokenID string, until time.Time) error {
	if !until.After(d.now()) {
		return nil
	}
	d.entries.Add(tokenID, until)
	return nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	until, ok := d.entries.Get(tokenID)
	if !ok {
		return false, nil
	}
	return until.After(d.now()), nil
}

const redisDenylistPrefix = "metaltracker:denylist:"

// RedisDenylist shares revocations between replicas. Keys expire together
// with the tokens they block.
type RedisDenylist struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisDenylist(client redis.UniversalClient) *RedisDenylist {
	return &RedisDenylist{client: client, now: time.Now}
}

func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, redisDenylistPrefix+tokenID, "1", ttl).Err()
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, redisDenylistPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
