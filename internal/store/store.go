// Package store defines the contract every Account Store backend
// (Postgres, SQLite) satisfies. The engines in internal/service depend only
// on these interfaces.
package store

import (
	"context"
	"errors"
	"time"

	"tapminer/internal/domain"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrConflict          = errors.New("concurrent modification detected")
)

// Store is the Account Store plus the read-only projections over it.
type Store interface {
	// InTx runs fn inside one transaction. fn returning an error rolls back
	// everything it did; returning nil commits.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetAccount(ctx context.Context, id int64) (*domain.Account, error)
	// FetchOrCreateAccount inserts acc if no row with acc.ID exists, fills an
	// empty stored username, and returns the stored row.
	FetchOrCreateAccount(ctx context.Context, acc *domain.Account) (*domain.Account, bool, error)
	UpdateAccountFields(ctx context.Context, id int64, patch domain.AccountPatch) (*domain.Account, error)
	TopAccounts(ctx context.Context, limit int) ([]domain.Account, error)

	LedgerEntries(ctx context.Context, accountID int64, limit int) ([]domain.LedgerEntry, error)
	// LedgerTotal sums every entry of one category for an account.
	LedgerTotal(ctx context.Context, accountID int64, category string) (int64, error)
	AssetAggregates(ctx context.Context) ([]domain.AssetAggregate, error)
	ReferralAttempts(ctx context.Context, referrerID int64, limit int) ([]domain.ReferralAttempt, error)

	Ping(ctx context.Context) error
	Close()
}

// Tx exposes the row-level primitives the engines compose. Locks taken
// through a Tx are held until the surrounding InTx returns.
type Tx interface {
	// LockAccounts locks the given rows in ascending id order and returns
	// the ones that exist.
	LockAccounts(ctx context.Context, ids ...int64) (map[int64]*domain.Account, error)
	// InsertAccount creates acc; false when the id already exists.
	InsertAccount(ctx context.Context, acc *domain.Account) (bool, error)
	// SetReferrer sets referred_by only when it is still NULL.
	SetReferrer(ctx context.Context, referredID, referrerID int64) (bool, error)
	// CreditReferrer adds bonus and increments referral_count.
	CreditReferrer(ctx context.Context, referrerID, bonus int64) (balance, count int64, err error)
	// ApplyMiningReward adds amount and moves last_reward_at forward to at.
	ApplyMiningReward(ctx context.Context, id, amount int64, at time.Time) (int64, error)
	// ApplyPurchase debits cost (never below zero) and stores assets.
	ApplyPurchase(ctx context.Context, id, cost int64, assets domain.Assets) (int64, error)
	// AddAssetInvestment adds to the global aggregate of assetID.
	AddAssetInvestment(ctx context.Context, assetID string, units, invested int64) (*domain.AssetAggregate, error)
	AppendLedger(ctx context.Context, entry *domain.LedgerEntry) error

	// ClaimReferralAttempt inserts the (referrer, referred) ledger row, or
	// locks the existing one. fresh reports whether it was inserted now.
	ClaimReferralAttempt(ctx context.Context, referrerID, referredID int64) (attempt *domain.ReferralAttempt, fresh bool, err error)
	// ResolveReferralAttempt sets the outcome of a fresh attempt. Rows
	// committed earlier are immutable and yield ErrConflict.
	ResolveReferralAttempt(ctx context.Context, attempt *domain.ReferralAttempt) error
}
