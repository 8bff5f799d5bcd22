package repository

import (
	"context"

	"tapminer/internal/domain"
)

// AppendLedger inserts one ledger entry using the surrounding transaction.
func (t *txRepo) AppendLedger(ctx context.Context, e *domain.LedgerEntry) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO transactions (account_id, amount, category, note)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		e.AccountID, e.Amount, e.Category, e.Note,
	).Scan(&e.ID, &e.CreatedAt)
	return mapError(err)
}

func (s *Store) LedgerTotal(ctx context.Context, accountID int64, category string) (int64, error) {
	var total int64
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)::BIGINT
		 FROM transactions
		 WHERE account_id = $1 AND category = $2`,
		accountID, category,
	).Scan(&total)
	return total, mapError(err)
}

// LedgerEntries returns recent entries for an account, newest first.
func (s *Store) LedgerEntries(ctx context.Context, accountID int64, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, account_id, amount, category, note, created_at
		 FROM transactions
		 WHERE account_id = $1
		 ORDER BY id DESC
		 LIMIT $2`,
		accountID, limit,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var res []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Amount, &e.Category, &e.Note, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
