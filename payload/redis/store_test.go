package redis_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/interceder/payload/payloadtest"
	"github.com/xraph/interceder/payload/redis"
)

const testDSN = "redis://localhost:6379/0"

func redisAvailable(t *testing.T, opts ...redis.Option) *redis.Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	s, err := redis.Open(ctx, testDSN, opts...)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testPrefix() string {
	return fmt.Sprintf("interceder-test:%d:", time.Now().UnixNano())
}

func cleanupRedisKeys(t *testing.T, client goredis.UniversalClient, prefix string) {
	t.Helper()
	ctx := context.Background()
	var cursor uint64
	for {
		keys, next, err := client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return
		}
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
}

func TestStoreContract(t *testing.T) {
	prefix := testPrefix()
	s := redisAvailable(t, redis.WithPrefix(prefix))
	t.Cleanup(func() { cleanupRedisKeys(t, s.Client(), prefix) })

	payloadtest.Run(t, s)
}

func TestPrefixedKey(t *testing.T) {
	prefix := testPrefix()
	s := redisAvailable(t, redis.WithPrefix(prefix))
	t.Cleanup(func() { cleanupRedisKeys(t, s.Client(), prefix) })

	ctx := context.Background()
	if err := s.Put(ctx, "orders", []byte("body")); err != nil {
		t.Fatal(err)
	}

	got, err := s.KV().GetRaw(ctx, prefix+"orders")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "body" {
		t.Fatalf("got %q", got)
	}
}

func TestTTL(t *testing.T) {
	prefix := testPrefix()
	s := redisAvailable(t, redis.WithPrefix(prefix), redis.WithTTL(time.Minute))
	t.Cleanup(func() { cleanupRedisKeys(t, s.Client(), prefix) })

	ctx := context.Background()
	if err := s.Put(ctx, "orders", []byte("body")); err != nil {
		t.Fatal(err)
	}

	ttl, err := s.TTL(ctx, "orders")
	if err != nil {
		t.Fatal(err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl = %v, want (0, 1m]", ttl)
	}
}

func TestCloseLeavesBorrowedStoreOpen(t *testing.T) {
	owner := redisAvailable(t)

	borrowed := redis.New(owner.KV())
	if err := borrowed.Close(); err != nil {
		t.Fatal(err)
	}
	if err := owner.Ping(context.Background()); err != nil {
		t.Fatalf("kv store closed by borrowed store: %v", err)
	}
}
