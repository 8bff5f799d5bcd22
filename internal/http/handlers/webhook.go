package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ReferralWebhookRequest struct {
	ReferrerID       int64  `json:"referrer_id"`
	ReferredID       int64  `json:"referred_id"`
	ReferredUsername string `json:"referred_username"`
}

// ReferralWebhook accepts at-least-once referral claims from an upstream
// (e.g. a bot running elsewhere). Redeliveries of a credited pair answer
// 200 with outcome already_applied.
func (h *Handler) ReferralWebhook(c *gin.Context) {
	if h.cfg.WebhookSecret == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "webhook disabled"})
		return
	}
	got := c.GetHeader("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.cfg.WebhookSecret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "bad webhook secret"})
		return
	}

	var req ReferralWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}

	res, err := h.Referrals.Claim(c.Request.Context(), req.ReferrerID, req.ReferredID, req.ReferredUsername)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
