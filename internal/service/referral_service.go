package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tapminer/internal/domain"
	"tapminer/internal/logger"
	"tapminer/internal/store"
)

// StartParamPrefix prefixes the referrer id in bot and web-app deep links.
const StartParamPrefix = "ref_"

type ReferralConfig struct {
	Bonus                int64
	NewAccountSubscribed bool
	BotUsername          string
	WebAppShortName      string
}

// ReferralResult is the success shape, also returned verbatim for
// already_applied replays.
type ReferralResult struct {
	Outcome         domain.ReferralOutcome `json:"outcome"`
	ReferrerID      int64                  `json:"referrer_id"`
	ReferredID      int64                  `json:"referred_id"`
	Bonus           int64                  `json:"bonus"`
	ReferrerBalance int64                  `json:"referrer_balance"`
	ReferralCount   int64                  `json:"referral_count"`
	ReferredCreated bool                   `json:"referred_created"`
}

type ReferralStats struct {
	ReferralCount int64                    `json:"referral_count"`
	BonusEarned   int64                    `json:"bonus_earned"`
	Recent        []domain.ReferralAttempt `json:"recent"`
}

type ReferralLink struct {
	Code   string `json:"code"`
	Bot    string `json:"bot_link"`
	WebApp string `json:"webapp_link"`
}

type ReferralService struct {
	store     store.Store
	cfg       ReferralConfig
	notifier  ReferralNotifier
	publisher EventPublisher
	now       func() time.Time
}

func NewReferralService(st store.Store, cfg ReferralConfig) *ReferralService {
	return &ReferralService{
		store:     st,
		cfg:       cfg,
		publisher: nopPublisher{},
		now:       time.Now,
	}
}

func (s *ReferralService) SetNotifier(n ReferralNotifier) { s.notifier = n }

func (s *ReferralService) SetPublisher(p EventPublisher) {
	if p == nil {
		p = nopPublisher{}
	}
	s.publisher = p
}

// ParseStartParam extracts the referrer id from "ref_<id>".
func ParseStartParam(param string) (int64, bool) {
	param = strings.TrimSpace(param)
	if !strings.HasPrefix(param, StartParamPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(param, StartParamPrefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Link builds the shareable deep links for accountID.
func (s *ReferralService) Link(accountID int64) ReferralLink {
	code := StartParamPrefix + strconv.FormatInt(accountID, 10)
	bot := strings.TrimPrefix(s.cfg.BotUsername, "@")
	return ReferralLink{
		Code:   code,
		Bot:    fmt.Sprintf("https://t.me/%s?start=%s", bot, code),
		WebApp: fmt.Sprintf("https://t.me/%s/%s?startapp=%s", bot, s.cfg.WebAppShortName, code),
	}
}

// Claim credits referrerID once for bringing in referredID. Replays of a
// pair that already succeeded return the stored result with outcome
// already_applied and touch nothing.
func (s *ReferralService) Claim(ctx context.Context, referrerID, referredID int64, referredUsername string) (*ReferralResult, error) {
	start := time.Now()
	res, username, err := s.claim(ctx, referrerID, referredID, referredUsername)

	outcome := outcomeOf(err)
	if res != nil {
		outcome = string(res.Outcome)
	}
	observe("referral", outcome, start)

	log := logger.WithContext(ctx).With("referrer_id", referrerID, "referred_id", referredID)
	if err != nil {
		if KindOf(err) == KindInfrastructure {
			log.Error("referral claim failed", "error", err)
		} else {
			log.Debug("referral claim rejected", "code", Code(err))
		}
		return nil, err
	}

	if res.Outcome == domain.ReferralSuccess {
		log.Info("referral credited", "bonus", res.Bonus, "referrer_balance", res.ReferrerBalance)
		CurrencyIssued.WithLabelValues(domain.LedgerReferralBonus).Add(float64(res.Bonus))
		s.afterCommit(ctx, res, username)
	}
	return res, nil
}

func (s *ReferralService) claim(ctx context.Context, referrerID, referredID int64, username string) (*ReferralResult, string, error) {
	if referrerID <= 0 || referredID <= 0 {
		return nil, "", ErrInvalidAccountID
	}
	if referrerID == referredID {
		return nil, "", ErrSelfReferral
	}
	username = normalizeUsername(username)
	if username == "" {
		username = domain.DefaultUsername(referredID)
	}

	var res *ReferralResult
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		attempt, fresh, err := tx.ClaimReferralAttempt(ctx, referrerID, referredID)
		if err != nil {
			return err
		}
		if !fresh {
			if !attempt.Outcome.Terminal() {
				return store.ErrConflict
			}
			res = resultOf(attempt, domain.ReferralAlreadyApplied)
			return nil
		}

		// failures return an error so the pending row rolls back with the rest
		locked, err := tx.LockAccounts(ctx, referrerID, referredID)
		if err != nil {
			return err
		}
		referrer, ok := locked[referrerID]
		if !ok {
			return ErrInviterNotFound
		}

		created, outcome, err := s.attach(ctx, tx, referrerID, referredID, locked[referredID], username)
		if err != nil {
			return err
		}
		switch outcome {
		case domain.ReferralAlreadyReferred:
			return ErrAlreadyReferred
		case domain.ReferralAlreadyApplied:
			// linked earlier without a ledger row: no second credit
			attempt.Outcome = outcome
			attempt.ReferrerBalance = referrer.Balance
			attempt.ReferralCount = referrer.ReferralCount
			if err := tx.ResolveReferralAttempt(ctx, attempt); err != nil {
				return err
			}
			res = resultOf(attempt, outcome)
			return nil
		}

		balance, count, err := tx.CreditReferrer(ctx, referrerID, s.cfg.Bonus)
		if err != nil {
			return err
		}
		if s.cfg.Bonus > 0 {
			if err := tx.AppendLedger(ctx, &domain.LedgerEntry{
				AccountID: referrerID,
				Amount:    s.cfg.Bonus,
				Category:  domain.LedgerReferralBonus,
				Note:      fmt.Sprintf("referral of %d", referredID),
			}); err != nil {
				return err
			}
		}

		attempt.Outcome = domain.ReferralSuccess
		attempt.Bonus = s.cfg.Bonus
		attempt.ReferrerBalance = balance
		attempt.ReferralCount = count
		if err := tx.ResolveReferralAttempt(ctx, attempt); err != nil {
			return err
		}
		res = resultOf(attempt, domain.ReferralSuccess)
		res.ReferredCreated = created
		return nil
	})
	if err != nil {
		return nil, "", fromStore(err)
	}
	return res, username, nil
}

// attach links the referred account to the referrer, creating it when absent.
func (s *ReferralService) attach(ctx context.Context, tx store.Tx, referrerID, referredID int64, referred *domain.Account, username string) (bool, domain.ReferralOutcome, error) {
	if referred == nil {
		created, err := tx.InsertAccount(ctx, &domain.Account{
			ID:         referredID,
			Username:   username,
			ReferredBy: &referrerID,
			Subscribed: s.cfg.NewAccountSubscribed,
		})
		if err != nil {
			return false, "", err
		}
		if created {
			return true, domain.ReferralSuccess, nil
		}
		// a concurrent fetch-or-create inserted the row after our lock read
		locked, err := tx.LockAccounts(ctx, referredID)
		if err != nil {
			return false, "", err
		}
		if referred = locked[referredID]; referred == nil {
			return false, "", store.ErrConflict
		}
	}

	if referred.ReferredBy != nil {
		if *referred.ReferredBy == referrerID {
			return false, domain.ReferralAlreadyApplied, nil
		}
		return false, domain.ReferralAlreadyReferred, nil
	}

	ok, err := tx.SetReferrer(ctx, referredID, referrerID)
	if err != nil {
		return false, "", err
	}
	if !ok {
		return false, "", store.ErrConflict
	}
	return false, domain.ReferralSuccess, nil
}

func resultOf(a *domain.ReferralAttempt, outcome domain.ReferralOutcome) *ReferralResult {
	return &ReferralResult{
		Outcome:         outcome,
		ReferrerID:      a.ReferrerID,
		ReferredID:      a.ReferredID,
		Bonus:           a.Bonus,
		ReferrerBalance: a.ReferrerBalance,
		ReferralCount:   a.ReferralCount,
	}
}

// afterCommit runs the best-effort side effects. Nothing here can undo the
// credit.
func (s *ReferralService) afterCommit(ctx context.Context, res *ReferralResult, username string) {
	at := s.now()
	s.publisher.Publish(res.ReferrerID, domain.Event{
		Type:      domain.EventReferralBonus,
		AccountID: res.ReferrerID,
		Payload: map[string]any{
			"referred_id":    res.ReferredID,
			"bonus":          res.Bonus,
			"balance":        res.ReferrerBalance,
			"referral_count": res.ReferralCount,
		},
		At: at,
	})
	s.publisher.Publish(res.ReferredID, domain.Event{
		Type:      domain.EventReferralJoined,
		AccountID: res.ReferredID,
		Payload:   map[string]any{"referrer_id": res.ReferrerID},
		At:        at,
	})

	if s.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.notifier.ReferralJoined(nctx, res.ReferrerID, username); err != nil {
		logger.WithContext(ctx).Warn("referral notification failed",
			"referrer_id", res.ReferrerID, "error", err)
	}
}

// Stats summarizes what referrerID earned from referrals.
func (s *ReferralService) Stats(ctx context.Context, referrerID int64) (*ReferralStats, error) {
	if referrerID <= 0 {
		return nil, ErrInvalidAccountID
	}
	acc, err := s.store.GetAccount(ctx, referrerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fromStore(err)
	}
	earned, err := s.store.LedgerTotal(ctx, referrerID, domain.LedgerReferralBonus)
	if err != nil {
		return nil, fromStore(err)
	}
	recent, err := s.store.ReferralAttempts(ctx, referrerID, 20)
	if err != nil {
		return nil, fromStore(err)
	}
	return &ReferralStats{
		ReferralCount: acc.ReferralCount,
		BonusEarned:   earned,
		Recent:        recent,
	}, nil
}
