package strava

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeLedger remembers redeemed authorization codes. Claim returns true only for the first caller.
type CodeLedger interface {
	Claim(ctx context.Context, code string) (bool, error)
}

type RedisLedger struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLedger(rdb *redis.Client, ttl time.Duration) *RedisLedger {
	return &RedisLedger{rdb: rdb, ttl: ttl}
}

// Claim fails closed: when redis is unreachable the code is not redeemed.
func (l *RedisLedger) Claim(ctx context.Context, code string) (bool, error) {
	return l.rdb.SetNX(ctx, ledgerKey(code), 1, l.ttl).Result()
}

func ledgerKey(code string) string {
	sum := sha256.Sum256([]byte(code))
	return "strava:code:" + hex.EncodeToString(sum[:])
}

// MemoryLedger is the single process variant.
type MemoryLedger struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryLedger(ttl time.Duration) *MemoryLedger {
	return &MemoryLedger{ttl: ttl, seen: map[string]time.Time{}, now: time.Now}
}

func (l *MemoryLedger) Claim(_ context.Context, code string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for k, exp := range l.seen {
		if now.After(exp) {
			delete(l.seen, k)
		}
	}
	key := ledgerKey(code)
	if _, ok := l.seen[key]; ok {
		return false, nil
	}
	l.seen[key] = now.Add(l.ttl)
	return true, nil
}
