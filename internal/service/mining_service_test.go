package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"tapminer/internal/domain"
	"tapminer/internal/store"
)

func newMiningService(t *testing.T, clock *fixedClock) *MiningService {
	t.Helper()
	return newMiningServiceOn(t, newTestStore(t), clock)
}

func newMiningServiceOn(t *testing.T, st store.Store, clock *fixedClock) *MiningService {
	t.Helper()
	svc := NewMiningService(st, testCatalog(t), MiningConfig{
		Cooldown:  time.Hour,
		RewardMin: 1,
		RewardMax: 3,
	})
	svc.now = clock.Now
	return svc
}

func TestMineCooldown(t *testing.T) {
	clock := &fixedClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := newMiningService(t, clock)
	svc.randN = func(n int64) int64 { return n - 1 } // always the max reward
	ctx := context.Background()
	seedAccount(t, svc.store, 1, 0)

	res, err := svc.Mine(ctx, 1)
	if err != nil {
		t.Fatalf("mine: %v", err)
	}
	if res.Earned != 3 || res.PassiveIncome != 0 || res.NewBalance != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !res.NextMineAt.Equal(clock.Now().Add(time.Hour)) {
		t.Fatalf("unexpected next mine %s", res.NextMineAt)
	}

	clock.Advance(59 * time.Minute)
	_, err = svc.Mine(ctx, 1)
	var cd *CooldownError
	if !errors.As(err, &cd) || !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected CooldownError, got %v", err)
	}
	if cd.RetryAfter != time.Minute || cd.RetryAfterSeconds() != 60 {
		t.Fatalf("unexpected retry after %s", cd.RetryAfter)
	}
	if acc := mustAccount(t, svc.store, 1); acc.Balance != 3 {
		t.Fatalf("cooldown mutated balance: %d", acc.Balance)
	}

	clock.Advance(time.Minute)
	if _, err := svc.Mine(ctx, 1); err != nil {
		t.Fatalf("mine after cooldown: %v", err)
	}
	acc := mustAccount(t, svc.store, 1)
	if acc.Balance != 6 || !acc.LastRewardAt.Equal(clock.Now()) {
		t.Fatalf("unexpected account after second mine %+v", acc)
	}
}

func TestMineRewardRangeAndPassiveIncome(t *testing.T) {
	clock := &fixedClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := newMiningService(t, clock)
	ctx := context.Background()

	err := svc.store.InTx(ctx, func(tx store.Tx) error {
		_, err := tx.InsertAccount(ctx, &domain.Account{
			ID:     1,
			Assets: domain.Assets{"pickaxe": 4, "drill": 2, "retired": 9},
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	var balance int64
	for i := 0; i < 20; i++ {
		res, err := svc.Mine(ctx, 1)
		if err != nil {
			t.Fatalf("mine %d: %v", i, err)
		}
		if res.Earned < 1 || res.Earned > 3 {
			t.Fatalf("earned %d outside [1,3]", res.Earned)
		}
		if res.PassiveIncome != 4*1+2*5 {
			t.Fatalf("unexpected passive income %d", res.PassiveIncome)
		}
		balance += res.Earned + res.PassiveIncome
		if res.NewBalance != balance {
			t.Fatalf("balance drift: %d vs %d", res.NewBalance, balance)
		}
		clock.Advance(time.Hour)
	}

	entries, _ := svc.store.LedgerEntries(ctx, 1, 100)
	if len(entries) != 20 || entries[0].Category != domain.LedgerMine {
		t.Fatalf("unexpected ledger size %d", len(entries))
	}
}

func TestMineConcurrentYieldsOneReward(t *testing.T) {
	clock := &fixedClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := newMiningServiceOn(t, newFileStore(t), clock)
	seedAccount(t, svc.store, 1, 0)

	const callers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		cooldown int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Mine(context.Background(), 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrCooldownActive):
				cooldown++
			default:
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || cooldown != callers-1 {
		t.Fatalf("expected 1 reward and %d cooldowns, got %d/%d", callers-1, ok, cooldown)
	}
	entries, _ := svc.store.LedgerEntries(context.Background(), 1, 100)
	if len(entries) != 1 {
		t.Fatalf("expected exactly one ledger entry, got %d", len(entries))
	}
}

func TestMineRejectsOverflowingReward(t *testing.T) {
	ctx := context.Background()

	t.Run("passive income", func(t *testing.T) {
		clock := &fixedClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
		svc := newMiningService(t, clock)
		shop := NewPurchaseService(svc.store, svc.catalog)
		seedAccount(t, svc.store, 1, 1000)

		// zero-cost grants large enough that quantity × income wraps int64
		if _, err := shop.Purchase(ctx, 1, "drill", 1844674407370955161, 0); err != nil {
			t.Fatalf("grant drill: %v", err)
		}
		if _, err := shop.Purchase(ctx, 1, "pickaxe", 9223372036854775311, 0); err != nil {
			t.Fatalf("grant pickaxe: %v", err)
		}

		_, err := svc.Mine(ctx, 1)
		if !errors.Is(err, ErrBalanceOverflow) {
			t.Fatalf("expected ErrBalanceOverflow, got %v", err)
		}
		acc := mustAccount(t, svc.store, 1)
		if acc.Balance != 1000 || !acc.LastRewardAt.IsZero() {
			t.Fatalf("overflowing mine mutated account %+v", acc)
		}
		entries, _ := svc.store.LedgerEntries(ctx, 1, 10)
		for _, e := range entries {
			if e.Category == domain.LedgerMine {
				t.Fatalf("unexpected mine ledger entry %+v", e)
			}
		}
	})

	t.Run("balance", func(t *testing.T) {
		clock := &fixedClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
		svc := newMiningService(t, clock)
		svc.randN = func(n int64) int64 { return n - 1 }
		seedAccount(t, svc.store, 1, math.MaxInt64-2)

		if _, err := svc.Mine(ctx, 1); !errors.Is(err, ErrBalanceOverflow) {
			t.Fatalf("expected ErrBalanceOverflow, got %v", err)
		}
		if acc := mustAccount(t, svc.store, 1); acc.Balance != math.MaxInt64-2 {
			t.Fatalf("balance changed to %d", acc.Balance)
		}
	})
}

func TestMineErrors(t *testing.T) {
	clock := &fixedClock{t: time.Now()}
	svc := newMiningService(t, clock)

	if _, err := svc.Mine(context.Background(), 0); !errors.Is(err, ErrInvalidAccountID) {
		t.Fatalf("expected ErrInvalidAccountID, got %v", err)
	}
	if _, err := svc.Mine(context.Background(), 77); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMineStatus(t *testing.T) {
	clock := &fixedClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := newMiningService(t, clock)
	ctx := context.Background()
	seedAccount(t, svc.store, 1, 0)

	st, err := svc.Status(ctx, 1)
	if err != nil || !st.Ready || st.RetryAfter != 0 {
		t.Fatalf("fresh account must be ready: %+v %v", st, err)
	}

	if _, err := svc.Mine(ctx, 1); err != nil {
		t.Fatalf("mine: %v", err)
	}
	clock.Advance(30*time.Minute + 500*time.Millisecond)

	st, err = svc.Status(ctx, 1)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Ready || st.RetryAfter != 30*60 {
		t.Fatalf("unexpected cooling status %+v", st)
	}
}
