package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tapminer/internal/domain"
)

func TestFetchOrCreate(t *testing.T) {
	st := newTestStore(t)
	svc := NewAccountService(st, true)
	ctx := context.Background()

	acc, created, err := svc.FetchOrCreate(ctx, 5, "  ")
	if err != nil || !created {
		t.Fatalf("create: created=%v err=%v", created, err)
	}
	if acc.Username != "miner_5" || acc.Balance != 0 || !acc.Subscribed {
		t.Fatalf("unexpected new account %+v", acc)
	}

	acc, created, err = svc.FetchOrCreate(ctx, 5, "other")
	if err != nil || created {
		t.Fatalf("fetch: created=%v err=%v", created, err)
	}
	if acc.Username != "miner_5" {
		t.Fatalf("existing username overwritten: %q", acc.Username)
	}

	long := strings.Repeat("x", 40)
	acc, _, _ = svc.FetchOrCreate(ctx, 6, long)
	if len(acc.Username) != maxUsernameLen {
		t.Fatalf("expected truncated username, got %d chars", len(acc.Username))
	}

	if _, _, err := svc.FetchOrCreate(ctx, -1, ""); !errors.Is(err, ErrInvalidAccountID) {
		t.Fatalf("expected ErrInvalidAccountID, got %v", err)
	}
}

func TestUpdateFields(t *testing.T) {
	st := newTestStore(t)
	svc := NewAccountService(st, false)
	ctx := context.Background()
	seedAccount(t, st, 1, 300)

	name := "  digger  "
	sub := true
	acc, err := svc.UpdateFields(ctx, 1, domain.AccountPatch{Username: &name, Subscribed: &sub})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if acc.Username != "digger" || !acc.Subscribed || acc.Balance != 300 {
		t.Fatalf("unexpected account %+v", acc)
	}

	empty := " "
	if _, err := svc.UpdateFields(ctx, 1, domain.AccountPatch{Username: &empty}); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}
	if _, err := svc.UpdateFields(ctx, 2, domain.AccountPatch{Subscribed: &sub}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := svc.UpdateFields(ctx, 3, domain.AccountPatch{}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for empty patch on missing account, got %v", err)
	}
}

func TestGetAndLedger(t *testing.T) {
	st := newTestStore(t)
	svc := NewAccountService(st, false)
	ctx := context.Background()

	if _, err := svc.Get(ctx, 9); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	seedAccount(t, st, 9, 0)
	entries, err := svc.Ledger(ctx, 9, 0)
	if err != nil || len(entries) != 0 {
		t.Fatalf("unexpected ledger %v %v", entries, err)
	}
}
