package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"tapminer/internal/domain"
	"tapminer/internal/store"
)

const attemptColumns = `id, referrer_id, referred_id, outcome, bonus, referrer_balance, referral_count, created_at`

type attemptRow struct {
	ID              int64  `db:"id"`
	ReferrerID      int64  `db:"referrer_id"`
	ReferredID      int64  `db:"referred_id"`
	Outcome         string `db:"outcome"`
	Bonus           int64  `db:"bonus"`
	ReferrerBalance int64  `db:"referrer_balance"`
	ReferralCount   int64  `db:"referral_count"`
	CreatedAt       int64  `db:"created_at"`
}

func (r *attemptRow) toDomain() *domain.ReferralAttempt {
	return &domain.ReferralAttempt{
		ID:              r.ID,
		ReferrerID:      r.ReferrerID,
		ReferredID:      r.ReferredID,
		Outcome:         domain.ReferralOutcome(r.Outcome),
		Bonus:           r.Bonus,
		ReferrerBalance: r.ReferrerBalance,
		ReferralCount:   r.ReferralCount,
		CreatedAt:       fromNanos(r.CreatedAt),
	}
}

func (t *txRepo) ClaimReferralAttempt(ctx context.Context, referrerID, referredID int64) (*domain.ReferralAttempt, bool, error) {
	now := toNanos(t.now())
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO referral_attempts (referrer_id, referred_id, outcome, created_at)
		 VALUES (?, ?, 'pending', ?)
		 ON CONFLICT (referrer_id, referred_id) DO NOTHING`,
		referrerID, referredID, now,
	)
	if err != nil {
		return nil, false, mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	var row attemptRow
	err = t.tx.GetContext(ctx, &row,
		`SELECT `+attemptColumns+` FROM referral_attempts WHERE referrer_id = ? AND referred_id = ?`,
		referrerID, referredID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, store.ErrNotFound
	}
	if err != nil {
		return nil, false, mapError(err)
	}
	return row.toDomain(), n == 1, nil
}

// ResolveReferralAttempt only touches a row still pending, i.e. one this
// transaction inserted.
func (t *txRepo) ResolveReferralAttempt(ctx context.Context, a *domain.ReferralAttempt) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE referral_attempts
		 SET outcome = ?, bonus = ?, referrer_balance = ?, referral_count = ?
		 WHERE id = ? AND outcome = 'pending'`,
		string(a.Outcome), a.Bonus, a.ReferrerBalance, a.ReferralCount, a.ID,
	)
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrConflict
	}
	return nil
}

func (s *Store) ReferralAttempts(ctx context.Context, referrerID int64, limit int) ([]domain.ReferralAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []attemptRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+attemptColumns+` FROM referral_attempts
		 WHERE referrer_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		referrerID, limit,
	); err != nil {
		return nil, mapError(err)
	}
	res := make([]domain.ReferralAttempt, 0, len(rows))
	for i := range rows {
		res = append(res, *rows[i].toDomain())
	}
	return res, nil
}
