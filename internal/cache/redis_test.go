package cache

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"
)

func TestConnectWithoutAddrIsDisabled(t *testing.T) {
	client, err := Connect(context.Background(), "", "", 0)
	if client != nil || err != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", client, err)
	}
}

func TestConnectUnreachable(t *testing.T) {
	client, err := Connect(context.Background(), "127.0.0.1:1", "", 0)
	if err == nil || client != nil {
		t.Fatalf("expected error for unreachable redis")
	}
}

// Integration-style test: runs only if REDIS_ADDR env is set.
func TestRedisCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	client, err := Connect(context.Background(), addr, os.Getenv("REDIS_PASSWORD"), 0)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	c := NewRedisCache(client, "test:"+strconv.FormatInt(time.Now().UnixNano(), 10)+":")

	got, err := c.Get(ctx, "missing")
	if err != nil || got != nil {
		t.Fatalf("miss: %q %v", got, err)
	}

	if err := c.Set(ctx, "page", []byte(`[1,2]`), time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err = c.Get(ctx, "page")
	if err != nil || string(got) != `[1,2]` {
		t.Fatalf("hit: %q %v", got, err)
	}
}
