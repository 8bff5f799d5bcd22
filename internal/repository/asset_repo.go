package repository

import (
	"context"

	"tapminer/internal/domain"
)

// AddAssetInvestment maintains the aggregate incrementally; it never scans accounts.
func (t *txRepo) AddAssetInvestment(ctx context.Context, assetID string, units, invested int64) (*domain.AssetAggregate, error) {
	var agg domain.AssetAggregate
	err := t.tx.QueryRow(ctx,
		`INSERT INTO asset_investments (asset_id, total_units, total_invested, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (asset_id) DO UPDATE
		 SET total_units = asset_investments.total_units + EXCLUDED.total_units,
		     total_invested = asset_investments.total_invested + EXCLUDED.total_invested,
		     updated_at = NOW()
		 RETURNING asset_id, total_units, total_invested, updated_at`,
		assetID, units, invested,
	).Scan(&agg.AssetID, &agg.TotalUnits, &agg.TotalInvested, &agg.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &agg, nil
}

func (s *Store) AssetAggregates(ctx context.Context) ([]domain.AssetAggregate, error) {
	rows, err := s.db.Query(ctx,
		`SELECT asset_id, total_units, total_invested, updated_at
		 FROM asset_investments
		 ORDER BY asset_id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var res []domain.AssetAggregate
	for rows.Next() {
		var agg domain.AssetAggregate
		if err := rows.Scan(&agg.AssetID, &agg.TotalUnits, &agg.TotalInvested, &agg.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, agg)
	}
	return res, rows.Err()
}
