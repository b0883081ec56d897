package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultSubmitLockTTL = 15 * time.Second

// releaseScript deletes the lock only while it still holds our token, so an
// expired lock taken over by another request is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SubmitLock limits each user to one pass submission in flight across all
// API instances.
// Key format: submit:<uid>
type SubmitLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSubmitLock creates a SubmitLock. If ttl <= 0, defaultSubmitLockTTL is used.
func NewSubmitLock(client *redis.Client, ttl time.Duration) *SubmitLock {
	if ttl <= 0 {
		ttl = defaultSubmitLockTTL
	}
	return &SubmitLock{client: client, ttl: ttl}
}

// TryAcquire takes the lock for uid. ok is false when another submission holds it.
func (l *SubmitLock) TryAcquire(ctx context.Context, uid string) (func(), bool, error) {
	key := submitKey(uid)
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("submit lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, true, nil
}

func submitKey(uid string) string {
	return "submit:" + uid
}
