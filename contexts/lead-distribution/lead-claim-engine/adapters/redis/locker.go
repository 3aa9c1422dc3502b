package redisadapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	application "leadhub/contexts/lead-distribution/lead-claim-engine/application"
	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
)

const (
	defaultKeyPrefix    = "leadhub:claim-lock:"
	defaultTTL          = 10 * time.Second
	defaultPollInterval = 25 * time.Millisecond
)

// releaseScript deletes the key only while it still carries our token, so an
// expired holder never frees a successor's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a ContentionLocker shared by every serving instance. The TTL caps
// how long a crashed holder can keep a key.
type Locker struct {
	client       redis.UniversalClient
	keyPrefix    string
	ttl          time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
}

func NewLocker(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *Locker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Locker{
		client:       client,
		keyPrefix:    defaultKeyPrefix,
		ttl:          ttl,
		pollInterval: defaultPollInterval,
		logger:       application.ResolveLogger(logger),
	}
}

func (l *Locker) Acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	redisKey := l.keyPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { l.release(redisKey, token) }, nil
		}
		if !time.Now().Before(deadline) {
			return nil, domainerrors.ErrClaimContended
		}

		timer := time.NewTimer(l.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Locker) release(redisKey string, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		l.logger.Warn("claim lock release failed",
			"event", "redis_claim_lock_release_failed",
			"module", application.ModuleName,
			"layer", "adapter",
			"key", redisKey,
			"error", err.Error(),
		)
	}
}
