package repository

import (
	"context"
	"errors"

	"tapminer/internal/domain"
	"tapminer/internal/store"

	"github.com/jackc/pgx/v5"
)

const attemptColumns = `id, referrer_id, referred_id, outcome, bonus, referrer_balance, referral_count, created_at`

func scanAttempt(row rowScanner) (*domain.ReferralAttempt, error) {
	var a domain.ReferralAttempt
	if err := row.Scan(
		&a.ID,
		&a.ReferrerID,
		&a.ReferredID,
		&a.Outcome,
		&a.Bonus,
		&a.ReferrerBalance,
		&a.ReferralCount,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// ClaimReferralAttempt relies on the (referrer_id, referred_id) unique
// constraint: a concurrent inserter of the same pair blocks until the first
// transaction ends, then either inserts (first rolled back) or falls through
// to the locked read of the committed row.
func (t *txRepo) ClaimReferralAttempt(ctx context.Context, referrerID, referredID int64) (*domain.ReferralAttempt, bool, error) {
	a, err := scanAttempt(t.tx.QueryRow(ctx,
		`INSERT INTO referral_attempts (referrer_id, referred_id, outcome)
		 VALUES ($1, $2, 'pending')
		 ON CONFLICT (referrer_id, referred_id) DO NOTHING
		 RETURNING `+attemptColumns,
		referrerID, referredID,
	))
	if err == nil {
		return a, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, mapError(err)
	}

	a, err = scanAttempt(t.tx.QueryRow(ctx,
		`SELECT `+attemptColumns+`
		 FROM referral_attempts
		 WHERE referrer_id = $1 AND referred_id = $2
		 FOR UPDATE`,
		referrerID, referredID,
	))
	if err != nil {
		return nil, false, mapError(err)
	}
	return a, false, nil
}

// ResolveReferralAttempt fills in the outcome of a row inserted by this
// transaction. A committed row is never pending, so it cannot be rewritten.
func (t *txRepo) ResolveReferralAttempt(ctx context.Context, a *domain.ReferralAttempt) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE referral_attempts
		 SET outcome = $2, bonus = $3, referrer_balance = $4, referral_count = $5
		 WHERE id = $1 AND outcome = 'pending'`,
		a.ID, a.Outcome, a.Bonus, a.ReferrerBalance, a.ReferralCount,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrConflict
	}
	return nil
}

// ReferralAttempts returns the most recent attempts made on behalf of a referrer.
func (s *Store) ReferralAttempts(ctx context.Context, referrerID int64, limit int) ([]domain.ReferralAttempt, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+attemptColumns+`
		 FROM referral_attempts
		 WHERE referrer_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		referrerID, limit,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var res []domain.ReferralAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *a)
	}
	return res, rows.Err()
}
