package libro

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestCacheFetchJSONPopulatesOnce(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (any, error) {
		loads++
		return map[string]int{"valor": 42}, nil
	}

	key, err := cache.BuildKey(ctx, "libro", "balanza", "1:1:1")
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]int
	if err := cache.FetchJSON(ctx, key, &out, loader); err != nil {
		t.Fatal(err)
	}
	if err := cache.FetchJSON(ctx, key, &out, loader); err != nil {
		t.Fatal(err)
	}
	if loads != 1 {
		t.Fatalf("loader ran %d times, want 1", loads)
	}
	if out["valor"] != 42 {
		t.Fatalf("out = %v", out)
	}
}

func TestCacheBumpInvalidates(t *testing.T) {
	cache := testCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(context.Context) (any, error) {
		loads++
		return loads, nil
	}

	key1, _ := cache.BuildKey(ctx, "libro", "mayor", "1:1:1")
	var out int
	if err := cache.FetchJSON(ctx, key1, &out, loader); err != nil {
		t.Fatal(err)
	}

	if err := cache.Bump(ctx); err != nil {
		t.Fatal(err)
	}

	key2, _ := cache.BuildKey(ctx, "libro", "mayor", "1:1:1")
	if key1 == key2 {
		t.Fatal("bump must change the derived key")
	}
	if err := cache.FetchJSON(ctx, key2, &out, loader); err != nil {
		t.Fatal(err)
	}
	if loads != 2 {
		t.Fatalf("loader ran %d times after bump, want 2", loads)
	}
}

func TestNilCachePassesThrough(t *testing.T) {
	var cache *Cache
	var out int
	err := cache.FetchJSON(context.Background(), "k", &out, func(context.Context) (any, error) {
		return 7, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != 7 {
		t.Fatalf("out = %d", out)
	}
}
