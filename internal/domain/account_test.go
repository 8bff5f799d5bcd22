package domain

import (
	"testing"
	"time"
)

func TestLevelFor(t *testing.T) {
	cases := []struct {
		balance int64
		want    int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{1_999, 3},
		{2_000, 4},
		{25_000_000, 10},
		{1 << 40, 10},
	}
	for _, tc := range cases {
		if got := LevelFor(tc.balance); got != tc.want {
			t.Fatalf("LevelFor(%d) = %d; want %d", tc.balance, got, tc.want)
		}
	}
}

func TestNextLevelAt(t *testing.T) {
	if got := NextLevelAt(0); got != 100 {
		t.Fatalf("NextLevelAt(0) = %d; want 100", got)
	}
	if got := NextLevelAt(30_000_000); got != -1 {
		t.Fatalf("NextLevelAt at max = %d; want -1", got)
	}
	if RankFor(0) != "Digger" || RankFor(99) != "Legend" {
		t.Fatalf("RankFor must clamp out-of-range levels")
	}
}

func TestCooldownRemaining(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	window := time.Hour

	var fresh Account
	if got := fresh.CooldownRemaining(now, window); got != 0 {
		t.Fatalf("never-mined account must be ready, got %v", got)
	}

	a := Account{LastRewardAt: now.Add(-20 * time.Minute)}
	if got := a.CooldownRemaining(now, window); got != 40*time.Minute {
		t.Fatalf("remaining = %v; want 40m", got)
	}

	a.LastRewardAt = now.Add(-window)
	if got := a.CooldownRemaining(now, window); got != 0 {
		t.Fatalf("exactly one window elapsed must be ready, got %v", got)
	}
}

func TestAssetsWithCopies(t *testing.T) {
	orig := Assets{"drill": 2}
	next := orig.With("drill", 3).With("cart", 1)

	if orig.Quantity("drill") != 2 {
		t.Fatalf("With must not mutate the receiver")
	}
	if next.Quantity("drill") != 5 || next.Quantity("cart") != 1 {
		t.Fatalf("unexpected assets %v", next)
	}
	if next.Quantity("missing") != 0 || Assets(nil).Quantity("x") != 0 {
		t.Fatalf("missing keys must read as 0")
	}
	if next.Total() != 6 {
		t.Fatalf("Total = %d; want 6", next.Total())
	}
}

func TestReferralOutcomeTerminal(t *testing.T) {
	for _, o := range []ReferralOutcome{ReferralSuccess, ReferralAlreadyApplied} {
		if !o.Terminal() {
			t.Fatalf("%s must be terminal", o)
		}
	}
	for _, o := range []ReferralOutcome{ReferralInviterNotFound, ReferralAlreadyReferred, ReferralPending} {
		if o.Terminal() {
			t.Fatalf("%s must never be stored", o)
		}
	}
}
