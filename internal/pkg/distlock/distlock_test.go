package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisLockAcquireRelease(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()

	l1 := NewRedisLock(client, "sweep:hour", 30*time.Second)
	ok, err := l1.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if !ok {
		t.Fatal("first Acquire() should succeed")
	}

	// Second holder with the same key must be rejected
	l2 := NewRedisLock(client, "sweep:hour", 30*time.Second)
	ok, err = l2.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if ok {
		t.Fatal("second Acquire() should fail while lock is held")
	}

	// Releasing someone else's lock must be a no-op
	if err := l2.Release(ctx); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	ok, _ = l2.Acquire(ctx)
	if ok {
		t.Fatal("lock should still be held by l1 after l2's Release")
	}

	if err := l1.Release(ctx); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	ok, _ = l2.Acquire(ctx)
	if !ok {
		t.Fatal("Acquire() should succeed after owner released")
	}
}

func TestRedisLockTTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()

	l1 := NewRedisLock(client, "sweep:ttl", time.Second)
	if ok, _ := l1.Acquire(ctx); !ok {
		t.Fatal("Acquire() should succeed")
	}

	mr.FastForward(2 * time.Second)

	l2 := NewRedisLock(client, "sweep:ttl", time.Second)
	if ok, _ := l2.Acquire(ctx); !ok {
		t.Fatal("Acquire() should succeed after TTL expiry")
	}
}
