package sqlite

import (
	"context"

	"tapminer/internal/domain"
)

type ledgerRow struct {
	ID        int64  `db:"id"`
	AccountID int64  `db:"account_id"`
	Amount    int64  `db:"amount"`
	Category  string `db:"category"`
	Note      string `db:"note"`
	CreatedAt int64  `db:"created_at"`
}

type aggregateRow struct {
	AssetID       string `db:"asset_id"`
	TotalUnits    int64  `db:"total_units"`
	TotalInvested int64  `db:"total_invested"`
	UpdatedAt     int64  `db:"updated_at"`
}

func (r *aggregateRow) toDomain() domain.AssetAggregate {
	return domain.AssetAggregate{
		AssetID:       r.AssetID,
		TotalUnits:    r.TotalUnits,
		TotalInvested: r.TotalInvested,
		UpdatedAt:     fromNanos(r.UpdatedAt),
	}
}

func (t *txRepo) AppendLedger(ctx context.Context, e *domain.LedgerEntry) error {
	now := t.now()
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO transactions (account_id, amount, category, note, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.AccountID, e.Amount, e.Category, e.Note, toNanos(now),
	)
	if err != nil {
		return mapError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	e.CreatedAt = now
	return nil
}

func (s *Store) LedgerTotal(ctx context.Context, accountID int64, category string) (int64, error) {
	var total int64
	err := s.db.GetContext(ctx, &total,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions
		 WHERE account_id = ? AND category = ?`,
		accountID, category,
	)
	return total, mapError(err)
}

func (s *Store) LedgerEntries(ctx context.Context, accountID int64, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []ledgerRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, account_id, amount, category, note, created_at
		 FROM transactions WHERE account_id = ?
		 ORDER BY id DESC LIMIT ?`,
		accountID, limit,
	); err != nil {
		return nil, mapError(err)
	}
	res := make([]domain.LedgerEntry, 0, len(rows))
	for _, r := range rows {
		res = append(res, domain.LedgerEntry{
			ID:        r.ID,
			AccountID: r.AccountID,
			Amount:    r.Amount,
			Category:  r.Category,
			Note:      r.Note,
			CreatedAt: fromNanos(r.CreatedAt),
		})
	}
	return res, nil
}

func (t *txRepo) AddAssetInvestment(ctx context.Context, assetID string, units, invested int64) (*domain.AssetAggregate, error) {
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO asset_investments (asset_id, total_units, total_invested, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (asset_id) DO UPDATE
		 SET total_units = total_units + excluded.total_units,
		     total_invested = total_invested + excluded.total_invested,
		     updated_at = excluded.updated_at`,
		assetID, units, invested, toNanos(t.now()),
	); err != nil {
		return nil, mapError(err)
	}

	var row aggregateRow
	if err := t.tx.GetContext(ctx, &row,
		`SELECT asset_id, total_units, total_invested, updated_at FROM asset_investments WHERE asset_id = ?`,
		assetID,
	); err != nil {
		return nil, mapError(err)
	}
	agg := row.toDomain()
	return &agg, nil
}

func (s *Store) AssetAggregates(ctx context.Context) ([]domain.AssetAggregate, error) {
	var rows []aggregateRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT asset_id, total_units, total_invested, updated_at FROM asset_investments ORDER BY asset_id`,
	); err != nil {
		return nil, mapError(err)
	}
	res := make([]domain.AssetAggregate, 0, len(rows))
	for i := range rows {
		res = append(res, rows[i].toDomain())
	}
	return res, nil
}
