package handlers

import (
	"time"

	"tapminer/internal/service"
)

// Services bundles the engines the HTTP layer drives.
type Services struct {
	Accounts    *service.AccountService
	Referrals   *service.ReferralService
	Mining      *service.MiningService
	Purchases   *service.PurchaseService
	Leaderboard *service.LeaderboardService
}

// HandlerConfig holds transport-level settings.
type HandlerConfig struct {
	BotToken       string
	InitDataMaxAge time.Duration
	WebhookSecret  string
}

type Handler struct {
	Services
	cfg HandlerConfig
	now func() time.Time
}

func NewHandler(svc Services, cfg HandlerConfig) *Handler {
	if cfg.InitDataMaxAge == 0 {
		cfg.InitDataMaxAge = 24 * time.Hour
	}
	return &Handler{Services: svc, cfg: cfg, now: time.Now}
}

// getUserID извлекает user_id из контекста Gin
func getUserID(c interface{ Get(string) (any, bool) }) (int64, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	switch v := uidVal.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
