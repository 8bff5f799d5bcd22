package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"tapminer/internal/domain"
	"tapminer/internal/logger"
	"tapminer/internal/store"
)

const maxUsernameLen = 32

// AccountService is the only path that creates accounts outside a referral
// claim and the only path that edits user-owned fields.
type AccountService struct {
	store         store.Store
	newSubscribed bool
}

func NewAccountService(st store.Store, newSubscribed bool) *AccountService {
	return &AccountService{store: st, newSubscribed: newSubscribed}
}

// normalizeUsername trims and truncates an externally supplied name.
func normalizeUsername(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > maxUsernameLen {
		name = string([]rune(name)[:maxUsernameLen])
	}
	return name
}

// FetchOrCreate returns the account, creating it with a zero balance on
// first contact. created reports whether this call inserted it.
func (s *AccountService) FetchOrCreate(ctx context.Context, id int64, username string) (*domain.Account, bool, error) {
	if id <= 0 {
		return nil, false, ErrInvalidAccountID
	}
	username = normalizeUsername(username)
	if username == "" {
		username = domain.DefaultUsername(id)
	}

	acc, created, err := s.store.FetchOrCreateAccount(ctx, &domain.Account{
		ID:         id,
		Username:   username,
		Subscribed: s.newSubscribed,
	})
	if err != nil {
		return nil, false, fromStore(err)
	}
	if created {
		logger.WithContext(ctx).Info("account created", "account_id", id)
	}
	return acc, created, nil
}

func (s *AccountService) Get(ctx context.Context, id int64) (*domain.Account, error) {
	if id <= 0 {
		return nil, ErrInvalidAccountID
	}
	acc, err := s.store.GetAccount(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return acc, fromStore(err)
}

// UpdateFields changes username and/or subscribed. Economy fields are not
// reachable from here.
func (s *AccountService) UpdateFields(ctx context.Context, id int64, patch domain.AccountPatch) (*domain.Account, error) {
	if id <= 0 {
		return nil, ErrInvalidAccountID
	}
	if patch.Username != nil {
		name := strings.TrimSpace(*patch.Username)
		if n := utf8.RuneCountInString(name); n == 0 || n > maxUsernameLen {
			return nil, ErrInvalidUsername
		}
		patch.Username = &name
	}
	if patch.Empty() {
		return s.Get(ctx, id)
	}

	acc, err := s.store.UpdateAccountFields(ctx, id, patch)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return acc, fromStore(err)
}

// Ledger returns the most recent balance changes, newest first.
func (s *AccountService) Ledger(ctx context.Context, id int64, limit int) ([]domain.LedgerEntry, error) {
	if id <= 0 {
		return nil, ErrInvalidAccountID
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	entries, err := s.store.LedgerEntries(ctx, id, limit)
	return entries, fromStore(err)
}
