package domain

import "time"

// AssetType is one catalog entry.
type AssetType struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Cost   int64  `yaml:"cost" json:"cost"`
	Income int64  `yaml:"income" json:"income"` // per mine, per unit
}

// AssetAggregate is the network-wide running total for one asset type.
// Display only; maintained additively by the purchase engine.
type AssetAggregate struct {
	AssetID       string    `db:"asset_id" json:"asset_id"`
	TotalUnits    int64     `db:"total_units" json:"total_units"`
	TotalInvested int64     `db:"total_invested" json:"total_invested"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
