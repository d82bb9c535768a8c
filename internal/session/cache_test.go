package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCacheWithClient(client, time.Hour)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestPutLookupRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	entry := Entry{UserID: 7, Name: "Mirela", AccessLevel: 2, TokenHash: "abc123"}
	if err := cache.Put(ctx, "sess-1", entry); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := cache.Lookup(ctx, "sess-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got == nil {
		t.Fatalf("expected cache hit")
	}
	if *got != entry {
		t.Fatalf("entry round trip mismatch: got %+v want %+v", *got, entry)
	}
}

func TestLookupMissReturnsNil(t *testing.T) {
	cache, _ := newTestCache(t)

	got, err := cache.Lookup(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got != nil {
		t.Fatalf("expected miss, got %+v", *got)
	}
}

func TestPutOverwritesPreviousRotation(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	if err := cache.Put(ctx, "sess-1", Entry{UserID: 7, TokenHash: "old"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := cache.Put(ctx, "sess-1", Entry{UserID: 7, TokenHash: "new"}); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := cache.Lookup(ctx, "sess-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got == nil || got.TokenHash != "new" {
		t.Fatalf("expected rotated token hash, got %+v", got)
	}
}

func TestInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	if err := cache.Put(ctx, "sess-1", Entry{UserID: 7, TokenHash: "abc"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := cache.Invalidate(ctx, "sess-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	got, err := cache.Lookup(ctx, "sess-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got != nil {
		t.Fatalf("expected entry to be gone, got %+v", *got)
	}
}

func TestEntryExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCacheWithClient(client, time.Minute)
	defer cache.Close()
	ctx := context.Background()

	if err := cache.Put(ctx, "sess-1", Entry{UserID: 7, TokenHash: "abc"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	got, err := cache.Lookup(ctx, "sess-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got != nil {
		t.Fatalf("expected expired entry to miss, got %+v", *got)
	}
}
