package strava

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedger_ClaimOnce(t *testing.T) {
	l := NewMemoryLedger(time.Minute)
	ctx := context.Background()

	ok, err := l.Claim(ctx, "code-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Claim(ctx, "code-1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Claim(ctx, "code-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLedger_ForgetsAfterTTL(t *testing.T) {
	now := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	l := NewMemoryLedger(time.Minute)
	l.now = func() time.Time { return now }

	ok, _ := l.Claim(context.Background(), "code-1")
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = l.Claim(context.Background(), "code-1")
	assert.True(t, ok)
	assert.Len(t, l.seen, 1)
}

func TestRedisLedger_FailsClosedWhenUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	ok, err := NewRedisLedger(rdb, time.Minute).Claim(context.Background(), "code-1")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestLedgerKeyDoesNotLeakCode(t *testing.T) {
	key := ledgerKey("super-secret-code")
	assert.NotContains(t, key, "super-secret-code")
	assert.Equal(t, key, ledgerKey("super-secret-code"))
}
