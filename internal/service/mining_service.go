package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"tapminer/internal/catalog"
	"tapminer/internal/domain"
	"tapminer/internal/logger"
	"tapminer/internal/store"
)

type MiningConfig struct {
	Cooldown  time.Duration
	RewardMin int64
	RewardMax int64
}

type MineResult struct {
	Earned        int64     `json:"earned"`
	PassiveIncome int64     `json:"passive_income"`
	NewBalance    int64     `json:"new_balance"`
	Timestamp     time.Time `json:"timestamp"`
	NextMineAt    time.Time `json:"next_mine_at"`
}

// MineStatus is the derived READY/COOLING state of an account.
type MineStatus struct {
	Ready         bool      `json:"ready"`
	RetryAfter    int64     `json:"retry_after"` // seconds
	LastRewardAt  time.Time `json:"last_reward_at,omitempty"`
	NextMineAt    time.Time `json:"next_mine_at"`
	PassiveIncome int64     `json:"passive_income"`
}

type MiningService struct {
	store     store.Store
	catalog   *catalog.Catalog
	cfg       MiningConfig
	publisher EventPublisher

	now   func() time.Time
	randN func(n int64) int64
}

func NewMiningService(st store.Store, cat *catalog.Catalog, cfg MiningConfig) *MiningService {
	return &MiningService{
		store:     st,
		catalog:   cat,
		cfg:       cfg,
		publisher: nopPublisher{},
		now:       time.Now,
		randN:     rand.Int63n,
	}
}

func (s *MiningService) SetPublisher(p EventPublisher) {
	if p == nil {
		p = nopPublisher{}
	}
	s.publisher = p
}

// draw returns a uniform integer in [RewardMin, RewardMax].
func (s *MiningService) draw() int64 {
	span := s.cfg.RewardMax - s.cfg.RewardMin
	if span <= 0 {
		return s.cfg.RewardMin
	}
	return s.cfg.RewardMin + s.randN(span+1)
}

// Mine issues one reward if the cooldown has elapsed. A second call inside
// the window returns *CooldownError and changes nothing.
func (s *MiningService) Mine(ctx context.Context, accountID int64) (*MineResult, error) {
	start := time.Now()
	res, err := s.mine(ctx, accountID)
	observe("mine", outcomeOf(err), start)

	log := logger.WithContext(ctx).With("account_id", accountID)
	if err != nil {
		if KindOf(err) == KindInfrastructure {
			log.Error("mine failed", "error", err)
		} else {
			log.Debug("mine rejected", "code", Code(err))
		}
		return nil, err
	}

	log.Debug("mined", "earned", res.Earned, "passive", res.PassiveIncome, "balance", res.NewBalance)
	CurrencyIssued.WithLabelValues(domain.LedgerMine).Add(float64(res.Earned + res.PassiveIncome))
	s.publisher.Publish(accountID, domain.Event{
		Type:      domain.EventMine,
		AccountID: accountID,
		Payload: map[string]any{
			"earned":         res.Earned,
			"passive_income": res.PassiveIncome,
			"balance":        res.NewBalance,
		},
		At: res.Timestamp,
	})
	return res, nil
}

func (s *MiningService) mine(ctx context.Context, accountID int64) (*MineResult, error) {
	if accountID <= 0 {
		return nil, ErrInvalidAccountID
	}

	var res *MineResult
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		locked, err := tx.LockAccounts(ctx, accountID)
		if err != nil {
			return err
		}
		acc, ok := locked[accountID]
		if !ok {
			return ErrUserNotFound
		}

		// postgres keeps microseconds
		now := s.now().UTC().Truncate(time.Microsecond)
		if wait := acc.CooldownRemaining(now, s.cfg.Cooldown); wait > 0 {
			return &CooldownError{RetryAfter: wait}
		}

		earned := s.draw()
		passive := s.catalog.PassiveIncome(acc.Assets)
		if passive > math.MaxInt64-earned {
			return ErrBalanceOverflow
		}
		total := earned + passive
		if total > math.MaxInt64-acc.Balance {
			return ErrBalanceOverflow
		}

		balance, err := tx.ApplyMiningReward(ctx, accountID, total, now)
		if err != nil {
			return err
		}
		if err := tx.AppendLedger(ctx, &domain.LedgerEntry{
			AccountID: accountID,
			Amount:    total,
			Category:  domain.LedgerMine,
			Note:      fmt.Sprintf("base %d + passive %d", earned, passive),
		}); err != nil {
			return err
		}

		res = &MineResult{
			Earned:        earned,
			PassiveIncome: passive,
			NewBalance:    balance,
			Timestamp:     now,
			NextMineAt:    now.Add(s.cfg.Cooldown),
		}
		return nil
	})
	if err != nil {
		return nil, fromStore(err)
	}
	return res, nil
}

// Status reports the cooldown state without mutating anything.
func (s *MiningService) Status(ctx context.Context, accountID int64) (*MineStatus, error) {
	if accountID <= 0 {
		return nil, ErrInvalidAccountID
	}
	acc, err := s.store.GetAccount(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fromStore(err)
	}

	now := s.now()
	wait := acc.CooldownRemaining(now, s.cfg.Cooldown)
	st := &MineStatus{
		Ready:         wait == 0,
		LastRewardAt:  acc.LastRewardAt,
		NextMineAt:    now.Add(wait),
		PassiveIncome: s.catalog.PassiveIncome(acc.Assets),
	}
	if wait > 0 {
		st.RetryAfter = (&CooldownError{RetryAfter: wait}).RetryAfterSeconds()
	}
	return st, nil
}
