package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	pendingPrefix = "pending:"
	donePrefix    = "done:"
)

// releaseScript deletes the key only while it still holds the caller's pending claim.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLedger is a SyncLedger shared by every instance of the service.
type RedisLedger struct {
	client    redis.UniversalClient
	keyPrefix string
}

func NewRedisLedger(client redis.UniversalClient, keyPrefix string) *RedisLedger {
	if keyPrefix == "" {
		keyPrefix = "order-sync:"
	}
	return &RedisLedger{client: client, keyPrefix: keyPrefix}
}

func (l *RedisLedger) key(sessionID string) string {
	return l.keyPrefix + sessionID
}

// Claim uses SETNX so exactly one caller acquires a session.
func (l *RedisLedger) Claim(ctx context.Context, sessionID string, ttl time.Duration) (Claim, error) {
	key := l.key(sessionID)
	token := uuid.NewString()

	// Two attempts: the existing key may expire between SETNX and GET.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := l.client.SetNX(ctx, key, pendingPrefix+token, ttl).Result()
		if err != nil {
			return Claim{}, fmt.Errorf("claim session %s: %w", sessionID, err)
		}
		if ok {
			return Claim{State: ClaimAcquired, Token: token}, nil
		}

		val, err := l.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return Claim{}, fmt.Errorf("read claim for session %s: %w", sessionID, err)
		}
		if strings.HasPrefix(val, donePrefix) {
			return Claim{State: ClaimCompleted, OrderID: strings.TrimPrefix(val, donePrefix)}, nil
		}
		return Claim{State: ClaimInProgress}, nil
	}
	return Claim{State: ClaimInProgress}, nil
}

func (l *RedisLedger) Complete(ctx context.Context, sessionID, orderID string) error {
	if err := l.client.Set(ctx, l.key(sessionID), donePrefix+orderID, syncedRetention).Err(); err != nil {
		return fmt.Errorf("complete session %s: %w", sessionID, err)
	}
	return nil
}

func (l *RedisLedger) Release(ctx context.Context, sessionID, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key(sessionID)}, pendingPrefix+token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release session %s: %w", sessionID, err)
	}
	return nil
}

var _ SyncLedger = (*RedisLedger)(nil)
