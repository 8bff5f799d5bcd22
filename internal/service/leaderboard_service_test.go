package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
	fail bool
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.fail {
		return nil, errors.New("cache down")
	}
	return c.data[key], nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("cache down")
	}
	if c.data == nil {
		c.data = map[string][]byte{}
	}
	c.data[key] = value
	return nil
}

func TestLeaderboardTop(t *testing.T) {
	st := newTestStore(t)
	svc := NewLeaderboardService(st, testCatalog(t), nil, LeaderboardConfig{DefaultLimit: 2, MaxLimit: 3})
	for id, bal := range map[int64]int64{1: 50, 2: 500, 3: 50, 4: 10} {
		seedAccount(t, st, id, bal)
	}

	top, err := svc.Top(context.Background(), 0)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].ID != 2 || top[1].ID != 1 || top[1].Rank != 2 {
		t.Fatalf("unexpected default page %+v", top)
	}
	if top[0].Level != 3 || top[0].Title != "Miner" {
		t.Fatalf("expected derived level for balance 500, got %+v", top[0])
	}

	top, _ = svc.Top(context.Background(), 1000)
	if len(top) != 3 {
		t.Fatalf("limit must be capped at 3, got %d", len(top))
	}
}

func TestLeaderboardCache(t *testing.T) {
	st := newTestStore(t)
	cache := &memoryCache{}
	svc := NewLeaderboardService(st, testCatalog(t), cache, LeaderboardConfig{DefaultLimit: 10, MaxLimit: 10, CacheTTL: time.Minute})
	seedAccount(t, st, 1, 10)
	ctx := context.Background()

	if _, err := svc.Top(ctx, 10); err != nil {
		t.Fatalf("top: %v", err)
	}
	seedAccount(t, st, 2, 20)

	top, _ := svc.Top(ctx, 10)
	if len(top) != 1 {
		t.Fatalf("expected cached page, got %d rows", len(top))
	}

	cache.fail = true
	top, err := svc.Top(ctx, 10)
	if err != nil || len(top) != 2 {
		t.Fatalf("cache failure must fall through to the store: %d rows, %v", len(top), err)
	}
}

func TestLeaderboardAssets(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, st, 1, 5000)
	purchases := NewPurchaseService(st, testCatalog(t))
	if _, err := purchases.Purchase(ctx, 1, "drill", 2, 1000); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if _, err := purchases.Purchase(ctx, 1, "relic", 1, 7); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	svc := NewLeaderboardService(st, testCatalog(t), nil, LeaderboardConfig{DefaultLimit: 10, MaxLimit: 10})
	stats, err := svc.Assets(ctx)
	if err != nil {
		t.Fatalf("assets: %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("expected catalog plus one extra, got %+v", stats)
	}
	if stats[0].ID != "pickaxe" || stats[0].TotalUnits != 0 {
		t.Fatalf("unexpected first entry %+v", stats[0])
	}
	if stats[1].ID != "drill" || stats[1].TotalInvested != 2000 {
		t.Fatalf("unexpected drill entry %+v", stats[1])
	}
	if stats[2].ID != "relic" || stats[2].TotalUnits != 1 {
		t.Fatalf("unexpected extra entry %+v", stats[2])
	}
}
