package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"tapminer/internal/domain"
	"tapminer/internal/store"

	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, username, balance, assets, last_reward_at, referred_by, referral_count, subscribed, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		a          domain.Account
		assetsJSON []byte
		lastReward *time.Time
	)
	if err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Balance,
		&assetsJSON,
		&lastReward,
		&a.ReferredBy,
		&a.ReferralCount,
		&a.Subscribed,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	if lastReward != nil {
		a.LastRewardAt = *lastReward
	}
	a.Assets = domain.Assets{}
	if len(assetsJSON) > 0 {
		if err := json.Unmarshal(assetsJSON, &a.Assets); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

func getAccount(ctx context.Context, q querier, id int64) (*domain.Account, error) {
	a, err := scanAccount(q.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return a, nil
}

func insertAccount(ctx context.Context, q querier, acc *domain.Account) (bool, error) {
	assets := acc.Assets
	if assets == nil {
		assets = domain.Assets{}
	}
	assetsJSON, err := json.Marshal(assets)
	if err != nil {
		return false, err
	}

	err = q.QueryRow(ctx,
		`INSERT INTO accounts (id, username, balance, assets, referred_by, subscribed)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING
		 RETURNING created_at`,
		acc.ID, acc.Username, acc.Balance, assetsJSON, acc.ReferredBy, acc.Subscribed,
	).Scan(&acc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, mapError(err)
	}
	return true, nil
}

func (s *Store) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	return getAccount(ctx, s.db, id)
}

func (s *Store) FetchOrCreateAccount(ctx context.Context, acc *domain.Account) (*domain.Account, bool, error) {
	created, err := insertAccount(ctx, s.db, acc)
	if err != nil {
		return nil, false, err
	}
	if !created && acc.Username != "" {
		// имя могло отсутствовать при первом контакте
		if _, err := s.db.Exec(ctx,
			`UPDATE accounts SET username = $2 WHERE id = $1 AND username = ''`,
			acc.ID, acc.Username,
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
	a, err := scanAccount(s.db.QueryRow(ctx,
		`UPDATE accounts
		 SET username = COALESCE($2, username), subscribed = COALESCE($3, subscribed)
		 WHERE id = $1
		 RETURNING `+accountColumns,
		id, patch.Username, patch.Subscribed,
	))
	if err != nil {
		return nil, mapError(err)
	}
	return a, nil
}

// TopAccounts returns accounts ordered by balance desc, ties by id.
func (s *Store) TopAccounts(ctx context.Context, limit int) ([]domain.Account, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+accountColumns+`
		 FROM accounts
		 ORDER BY balance DESC, id ASC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var res []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *a)
	}
	return res, rows.Err()
}

// LockAccounts takes FOR UPDATE locks in ascending id order so two
// transactions touching the same pair can never wait on each other in a cycle.
func (t *txRepo) LockAccounts(ctx context.Context, ids ...int64) (map[int64]*domain.Account, error) {
	ordered := append([]int64(nil), ids...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	rows, err := t.tx.Query(ctx,
		`SELECT `+accountColumns+`
		 FROM accounts
		 WHERE id = ANY($1)
		 ORDER BY id
		 FOR UPDATE`, ordered)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	locked := make(map[int64]*domain.Account, len(ordered))
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		locked[a.ID] = a
	}
	return locked, mapError(rows.Err())
}

func (t *txRepo) InsertAccount(ctx context.Context, acc *domain.Account) (bool, error) {
	return insertAccount(ctx, t.tx, acc)
}

func (t *txRepo) SetReferrer(ctx context.Context, referredID, referrerID int64) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`UPDATE accounts SET referred_by = $2
		 WHERE id = $1 AND referred_by IS NULL AND id <> $2`,
		referredID, referrerID,
	)
	if err != nil {
		return false, mapError(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *txRepo) CreditReferrer(ctx context.Context, referrerID, bonus int64) (int64, int64, error) {
	var balance, count int64
	err := t.tx.QueryRow(ctx,
		`UPDATE accounts
		 SET balance = balance + $2, referral_count = referral_count + 1
		 WHERE id = $1
		 RETURNING balance, referral_count`,
		referrerID, bonus,
	).Scan(&balance, &count)
	return balance, count, mapError(err)
}

func (t *txRepo) ApplyMiningReward(ctx context.Context, id, amount int64, at time.Time) (int64, error) {
	var balance int64
	err := t.tx.QueryRow(ctx,
		`UPDATE accounts
		 SET balance = balance + $2, last_reward_at = $3
		 WHERE id = $1 AND (last_reward_at IS NULL OR last_reward_at <= $3)
		 RETURNING balance`,
		id, amount, at,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		// row is locked by the caller, so only the monotonic guard can fail
		return 0, store.ErrConflict
	}
	return balance, mapError(err)
}

func (t *txRepo) ApplyPurchase(ctx context.Context, id, cost int64, assets domain.Assets) (int64, error) {
	assetsJSON, err := json.Marshal(assets)
	if err != nil {
		return 0, err
	}

	var balance int64
	err = t.tx.QueryRow(ctx,
		`UPDATE accounts
		 SET balance = balance - $2, assets = $3
		 WHERE id = $1 AND balance >= $2
		 RETURNING balance`,
		id, cost, assetsJSON,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, store.ErrInsufficientFunds
	}
	return balance, mapError(err)
}
