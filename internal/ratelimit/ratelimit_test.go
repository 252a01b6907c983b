package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

// setupTestRedis creates an in-memory Redis server for testing
func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return client, func() {
		client.Close()
		mr.Close()
	}
}

func TestAllowConsumesTokens(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	limiter := NewLimiter(client, 3, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "10.0.0.1", "login")
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}

	allowed, err := limiter.Allow(ctx, "10.0.0.1", "login")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if allowed {
		t.Error("attempt past capacity should be denied")
	}
}

func TestSubjectsAreIndependent(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	limiter := NewLimiter(client, 1, 1)
	ctx := context.Background()

	if allowed, _ := limiter.Allow(ctx, "10.0.0.1", "login"); !allowed {
		t.Fatal("first subject should be allowed")
	}
	if allowed, _ := limiter.Allow(ctx, "10.0.0.1", "login"); allowed {
		t.Fatal("first subject should now be empty")
	}
	if allowed, _ := limiter.Allow(ctx, "10.0.0.2", "login"); !allowed {
		t.Error("second subject must not share the first subject's bucket")
	}
}

func TestResetRefillsBucket(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	limiter := NewLimiter(client, 1, 1)
	ctx := context.Background()

	if allowed, _ := limiter.Allow(ctx, "10.0.0.1", "login"); !allowed {
		t.Fatal("first attempt should be allowed")
	}
	if allowed, _ := limiter.Allow(ctx, "10.0.0.1", "login"); allowed {
		t.Fatal("bucket should be empty")
	}

	if err := limiter.Reset(ctx, "10.0.0.1", "login"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	if allowed, _ := limiter.Allow(ctx, "10.0.0.1", "login"); !allowed {
		t.Error("bucket should be full again after reset")
	}
}
