package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"tapminer/internal/domain"
	"tapminer/internal/store"

	"github.com/jmoiron/sqlx"
)

const accountColumns = `id, username, balance, assets, last_reward_at, referred_by, referral_count, subscribed, created_at`

type accountRow struct {
	ID            int64         `db:"id"`
	Username      string        `db:"username"`
	Balance       int64         `db:"balance"`
	Assets        string        `db:"assets"`
	LastRewardAt  sql.NullInt64 `db:"last_reward_at"`
	ReferredBy    sql.NullInt64 `db:"referred_by"`
	ReferralCount int64         `db:"referral_count"`
	Subscribed    bool          `db:"subscribed"`
	CreatedAt     int64         `db:"created_at"`
}

func (r *accountRow) toDomain() (*domain.Account, error) {
	a := &domain.Account{
		ID:            r.ID,
		Username:      r.Username,
		Balance:       r.Balance,
		Assets:        domain.Assets{},
		ReferralCount: r.ReferralCount,
		Subscribed:    r.Subscribed,
		CreatedAt:     fromNanos(r.CreatedAt),
	}
	if r.LastRewardAt.Valid {
		a.LastRewardAt = fromNanos(r.LastRewardAt.Int64)
	}
	if r.ReferredBy.Valid {
		ref := r.ReferredBy.Int64
		a.ReferredBy = &ref
	}
	if r.Assets != "" {
		if err := json.Unmarshal([]byte(r.Assets), &a.Assets); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func getAccount(ctx context.Context, q sqlx.QueryerContext, id int64) (*domain.Account, error) {
	var row accountRow
	err := sqlx.GetContext(ctx, q, &row, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, mapError(err)
	}
	return row.toDomain()
}

func insertAccount(ctx context.Context, e sqlx.ExecerContext, acc *domain.Account, now time.Time) (bool, error) {
	assets := acc.Assets
	if assets == nil {
		assets = domain.Assets{}
	}
	assetsJSON, err := json.Marshal(assets)
	if err != nil {
		return false, err
	}
	var referredBy sql.NullInt64
	if acc.ReferredBy != nil {
		referredBy = sql.NullInt64{Int64: *acc.ReferredBy, Valid: true}
	}

	res, err := e.ExecContext(ctx,
		`INSERT INTO accounts (id, username, balance, assets, referred_by, subscribed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		acc.ID, acc.Username, acc.Balance, string(assetsJSON), referredBy, acc.Subscribed, toNanos(now),
	)
	if err != nil {
		return false, mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		acc.CreatedAt = now
	}
	return n == 1, nil
}

func (s *Store) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	return getAccount(ctx, s.db, id)
}

func (s *Store) FetchOrCreateAccount(ctx context.Context, acc *domain.Account) (*domain.Account, bool, error) {
	created, err := insertAccount(ctx, s.db, acc, s.now())
	if err != nil {
		return nil, false, err
	}
	if !created && acc.Username != "" {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE accounts SET username = ? WHERE id = ? AND username = ''`,
			acc.Username, acc.ID,
		); err != nil {
			return nil, false, mapError(err)
		}
	}

	stored, err := getAccount(ctx, s.db, acc.ID)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

func (s *Store) UpdateAccountFields(ctx context.Context, id int64, patch domain.AccountPatch) (*domain.Account, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts
		 SET username = COALESCE(?, username), subscribed = COALESCE(?, subscribed)
		 WHERE id = ?`,
		patch.Username, patch.Subscribed, id,
	)
	if err != nil {
		return nil, mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, store.ErrNotFound
	}
	return getAccount(ctx, s.db, id)
}

func (s *Store) TopAccounts(ctx context.Context, limit int) ([]domain.Account, error) {
	var rows []accountRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+accountColumns+` FROM accounts ORDER BY balance DESC, id ASC LIMIT ?`, limit,
	); err != nil {
		return nil, mapError(err)
	}
	return toAccounts(rows)
}

func toAccounts(rows []accountRow) ([]domain.Account, error) {
	res := make([]domain.Account, 0, len(rows))
	for i := range rows {
		a, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		res = append(res, *a)
	}
	return res, nil
}

// LockAccounts reads the rows in ascending id order. The IMMEDIATE
// transaction already holds the database write lock.
func (t *txRepo) LockAccounts(ctx context.Context, ids ...int64) (map[int64]*domain.Account, error) {
	locked := make(map[int64]*domain.Account, len(ids))
	if len(ids) == 0 {
		return locked, nil
	}
	ordered := append([]int64(nil), ids...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	query, args, err := sqlx.In(`SELECT `+accountColumns+` FROM accounts WHERE id IN (?) ORDER BY id`, ordered)
	if err != nil {
		return nil, err
	}
	var rows []accountRow
	if err := t.tx.SelectContext(ctx, &rows, t.tx.Rebind(query), args...); err != nil {
		return nil, mapError(err)
	}
	accounts, err := toAccounts(rows)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		locked[accounts[i].ID] = &accounts[i]
	}
	return locked, nil
}

func (t *txRepo) InsertAccount(ctx context.Context, acc *domain.Account) (bool, error) {
	return insertAccount(ctx, t.tx, acc, t.now())
}

func (t *txRepo) SetReferrer(ctx context.Context, referredID, referrerID int64) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET referred_by = ?
		 WHERE id = ? AND referred_by IS NULL AND id <> ?`,
		referrerID, referredID, referrerID,
	)
	if err != nil {
		return false, mapError(err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (t *txRepo) CreditReferrer(ctx context.Context, referrerID, bonus int64) (int64, int64, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET balance = balance + ?, referral_count = referral_count + 1 WHERE id = ?`,
		bonus, referrerID,
	)
	if err != nil {
		return 0, 0, mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, 0, store.ErrNotFound
	}

	var out struct {
		Balance       int64 `db:"balance"`
		ReferralCount int64 `db:"referral_count"`
	}
	if err := t.tx.GetContext(ctx, &out,
		`SELECT balance, referral_count FROM accounts WHERE id = ?`, referrerID,
	); err != nil {
		return 0, 0, mapError(err)
	}
	return out.Balance, out.ReferralCount, nil
}

func (t *txRepo) ApplyMiningReward(ctx context.Context, id, amount int64, at time.Time) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET balance = balance + ?, last_reward_at = ?
		 WHERE id = ? AND (last_reward_at IS NULL OR last_reward_at <= ?)`,
		amount, toNanos(at), id, toNanos(at),
	)
	if err != nil {
		return 0, mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, store.ErrConflict
	}
	return t.balance(ctx, id)
}

func (t *txRepo) ApplyPurchase(ctx context.Context, id, cost int64, assets domain.Assets) (int64, error) {
	assetsJSON, err := json.Marshal(assets)
	if err != nil {
		return 0, err
	}
	res, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET balance = balance - ?, assets = ?
		 WHERE id = ? AND balance >= ?`,
		cost, string(assetsJSON), id, cost,
	)
	if err != nil {
		return 0, mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, store.ErrInsufficientFunds
	}
	return t.balance(ctx, id)
}

func (t *txRepo) balance(ctx context.Context, id int64) (int64, error) {
	var balance int64
	if err := t.tx.GetContext(ctx, &balance, `SELECT balance FROM accounts WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.ErrNotFound
		}
		return 0, mapError(err)
	}
	return balance, nil
}
