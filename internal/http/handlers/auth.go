package handlers

import (
	"errors"
	"net/http"

	"tapminer/internal/domain"
	"tapminer/internal/logger"
	"tapminer/internal/service"
	"tapminer/internal/telegram"

	"github.com/gin-gonic/gin"
)

type AuthRequest struct {
	InitData string `json:"init_data"`
}

// Auth logs a Telegram Mini App user in. First contact creates the
// account; a ref_<id> start param claims the referral for it. A rejected
// referral never fails the login.
func (h *Handler) Auth(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.InitData == "" {
		badRequest(c, "init_data is required")
		return
	}

	data, err := telegram.Validate(req.InitData, h.cfg.BotToken, h.now(), h.cfg.InitDataMaxAge)
	if errors.Is(err, telegram.ErrNoBotToken) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auth_unavailable", "message": "login is not configured"})
		return
	}
	if err != nil {
		code := "invalid_init_data"
		if errors.Is(err, telegram.ErrExpired) {
			code = "init_data_expired"
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": code, "message": err.Error()})
		return
	}

	ctx := c.Request.Context()
	username := data.User.DisplayName()
	acc, created, err := h.Accounts.FetchOrCreate(ctx, data.User.ID, username)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"created": created}
	if referrerID, ok := service.ParseStartParam(data.StartParam); ok && referrerID != acc.ID {
		res, err := h.Referrals.Claim(ctx, referrerID, acc.ID, acc.Username)
		switch {
		case err == nil:
			resp["referral"] = res
		case service.KindOf(err) == service.KindInfrastructure:
			logger.WithContext(ctx).Error("referral on login failed", "account_id", acc.ID, "error", err)
			resp["referral_error"] = service.Code(err)
		default:
			resp["referral_error"] = service.Code(err)
		}
		// referred_by may have changed
		if err == nil {
			if fresh, err := h.Accounts.Get(ctx, acc.ID); err == nil {
				acc = fresh
			}
		}
	}

	token, err := service.GenerateJWT(acc.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	resp["token"] = token
	resp["account"] = accountView(acc)
	c.JSON(http.StatusOK, resp)
}

// accountView adds the derived level and title.
func accountView(a *domain.Account) gin.H {
	level := a.Level()
	v := gin.H{
		"id":             a.ID,
		"username":       a.Username,
		"balance":        a.Balance,
		"assets":         a.Assets,
		"referral_count": a.ReferralCount,
		"subscribed":     a.Subscribed,
		"level":          level,
		"title":          domain.RankFor(level),
		"created_at":     a.CreatedAt,
	}
	if a.Assets == nil {
		v["assets"] = domain.Assets{}
	}
	if !a.LastRewardAt.IsZero() {
		v["last_reward_at"] = a.LastRewardAt
	}
	if a.ReferredBy != nil {
		v["referred_by"] = *a.ReferredBy
	}
	return v
}
