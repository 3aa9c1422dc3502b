package redisadapter

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	domainerrors "leadhub/contexts/lead-distribution/lead-claim-engine/domain/errors"
)

func newTestLocker(t *testing.T) (*Locker, *redis.Client) {
	t.Helper()
	addr := os.Getenv("LEADHUB_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LEADHUB_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	locker := NewLocker(client, 2*time.Second, nil)
	locker.keyPrefix = "leadhub-test:" + uuid.NewString() + ":"
	return locker, client
}

func TestLockerExcludesSecondHolderUntilRelease(t *testing.T) {
	locker, _ := newTestLocker(t)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "lead:lead-1", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	_, err = locker.Acquire(ctx, "lead:lead-1", 100*time.Millisecond)
	if !errors.Is(err, domainerrors.ErrClaimContended) || !errors.Is(err, domainerrors.ErrClaimConflict) {
		t.Fatalf("expected contended conflict, got %v", err)
	}

	other, err := locker.Acquire(ctx, "lead:lead-2", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("independent key should not contend: %v", err)
	}
	other()

	release()
	again, err := locker.Acquire(ctx, "lead:lead-1", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
	again()
}

func TestLockerReleaseLeavesSuccessorLockIntact(t *testing.T) {
	locker, client := newTestLocker(t)
	locker.ttl = 50 * time.Millisecond
	ctx := context.Background()

	staleRelease, err := locker.Acquire(ctx, "lead:lead-1", time.Second)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	locker.ttl = 2 * time.Second
	successor, err := locker.Acquire(ctx, "lead:lead-1", time.Second)
	if err != nil {
		t.Fatalf("successor acquire after expiry failed: %v", err)
	}
	defer successor()

	staleRelease()
	exists, err := client.Exists(ctx, locker.keyPrefix+"lead:lead-1").Result()
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists != 1 {
		t.Fatalf("stale release removed the successor's lock")
	}
}

func TestLockerHonoursCancellation(t *testing.T) {
	locker, _ := newTestLocker(t)
	release, err := locker.Acquire(context.Background(), "lead:lead-1", time.Second)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := locker.Acquire(ctx, "lead:lead-1", 5*time.Second); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
