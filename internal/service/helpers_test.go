package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tapminer/internal/catalog"
	"tapminer/internal/domain"
	"tapminer/internal/repository/sqlite"
	"tapminer/internal/store"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(sqlite.MemoryPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

// newFileStore opens a WAL database on disk. Unlike the in-memory store it
// pools several connections, so concurrent callers run real overlapping
// transactions instead of queueing for a single connection.
func newFileStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "economy.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]domain.AssetType{
		{ID: "pickaxe", Name: "Pickaxe", Cost: 10, Income: 1},
		{ID: "drill", Name: "Drill", Cost: 1000, Income: 5},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

// seedAccount inserts an account with a given balance through a raw tx.
func seedAccount(t *testing.T, st store.Store, id, balance int64) {
	t.Helper()
	err := st.InTx(context.Background(), func(tx store.Tx) error {
		_, err := tx.InsertAccount(context.Background(), &domain.Account{
			ID:       id,
			Username: domain.DefaultUsername(id),
			Balance:  balance,
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed account %d: %v", id, err)
	}
}

func mustAccount(t *testing.T, st store.Store, id int64) *domain.Account {
	t.Helper()
	acc, err := st.GetAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("get account %d: %v", id, err)
	}
	return acc
}

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ int64, ev domain.Event) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (n *recordingNotifier) ReferralJoined(_ context.Context, referrerID int64, username string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, username)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}
