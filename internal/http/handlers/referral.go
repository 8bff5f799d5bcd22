package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ClaimReferralRequest struct {
	ReferrerID int64 `json:"referrer_id"`
}

// ClaimReferral credits referrer_id for bringing in the current user.
func (h *Handler) ClaimReferral(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req ClaimReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "referrer_id is required")
		return
	}

	res, err := h.Referrals.Claim(c.Request.Context(), req.ReferrerID, userID, "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetReferralLink returns the bot and web-app deep links for sharing
func (h *Handler) GetReferralLink(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	c.JSON(http.StatusOK, h.Referrals.Link(userID))
}

func (h *Handler) GetReferralStats(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	stats, err := h.Referrals.Stats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
