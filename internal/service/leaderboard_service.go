package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"tapminer/internal/catalog"
	"tapminer/internal/domain"
	"tapminer/internal/logger"
	"tapminer/internal/store"
)

// PageCache is a best-effort byte cache. A miss returns (nil, nil).
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type LeaderboardConfig struct {
	DefaultLimit int
	MaxLimit     int
	CacheTTL     time.Duration
}

type LeaderboardEntry struct {
	Rank     int           `json:"rank"`
	ID       int64         `json:"id"`
	Username string        `json:"username"`
	Balance  int64         `json:"balance"`
	Assets   domain.Assets `json:"assets"`
	Level    int           `json:"level"`
	Title    string        `json:"title"`
}

// AssetStat is a catalog entry joined with its network-wide totals.
type AssetStat struct {
	domain.AssetType
	TotalUnits    int64 `json:"total_units"`
	TotalInvested int64 `json:"total_invested"`
}

type LeaderboardService struct {
	store   store.Store
	catalog *catalog.Catalog
	cache   PageCache
	cfg     LeaderboardConfig
}

func NewLeaderboardService(st store.Store, cat *catalog.Catalog, cache PageCache, cfg LeaderboardConfig) *LeaderboardService {
	return &LeaderboardService{store: st, catalog: cat, cache: cache, cfg: cfg}
}

// clampLimit applies the default and the hard cap.
func (s *LeaderboardService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		return s.cfg.MaxLimit
	}
	return limit
}

// Top returns accounts by balance descending, ties broken by id.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	limit = s.clampLimit(limit)
	key := "leaderboard:top:" + strconv.Itoa(limit)

	if s.cache != nil && s.cfg.CacheTTL > 0 {
		if raw, err := s.cache.Get(ctx, key); err != nil {
			logger.WithContext(ctx).Warn("leaderboard cache read failed", "error", err)
		} else if raw != nil {
			var cached []LeaderboardEntry
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	accounts, err := s.store.TopAccounts(ctx, limit)
	if err != nil {
		return nil, fromStore(err)
	}
	entries := make([]LeaderboardEntry, 0, len(accounts))
	for i, a := range accounts {
		level := a.Level()
		entries = append(entries, LeaderboardEntry{
			Rank:     i + 1,
			ID:       a.ID,
			Username: a.Username,
			Balance:  a.Balance,
			Assets:   a.Assets,
			Level:    level,
			Title:    domain.RankFor(level),
		})
	}

	if s.cache != nil && s.cfg.CacheTTL > 0 {
		if raw, err := json.Marshal(entries); err == nil {
			if err := s.cache.Set(ctx, key, raw, s.cfg.CacheTTL); err != nil {
				logger.WithContext(ctx).Warn("leaderboard cache write failed", "error", err)
			}
		}
	}
	return entries, nil
}

// Assets lists the catalog with global totals. Aggregates for ids no
// longer in the catalog are appended after it.
func (s *LeaderboardService) Assets(ctx context.Context) ([]AssetStat, error) {
	aggs, err := s.store.AssetAggregates(ctx)
	if err != nil {
		return nil, fromStore(err)
	}
	byID := make(map[string]domain.AssetAggregate, len(aggs))
	for _, a := range aggs {
		byID[a.AssetID] = a
	}

	var out []AssetStat
	for _, it := range s.catalog.All() {
		agg := byID[it.ID]
		delete(byID, it.ID)
		out = append(out, AssetStat{AssetType: it, TotalUnits: agg.TotalUnits, TotalInvested: agg.TotalInvested})
	}
	for _, a := range aggs {
		if _, extra := byID[a.AssetID]; extra {
			out = append(out, AssetStat{
				AssetType:     domain.AssetType{ID: a.AssetID, Name: a.AssetID},
				TotalUnits:    a.TotalUnits,
				TotalInvested: a.TotalInvested,
			})
		}
	}
	return out, nil
}
