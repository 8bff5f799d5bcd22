package handlers

import (
	"net/http"
	"strconv"

	"tapminer/internal/service"

	"github.com/gin-gonic/gin"
)

// GetLeaderboard returns the top accounts by balance (?limit=).
func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "limit must be an integer")
			return
		}
		limit = n
	}

	entries, err := h.Leaderboard.Top(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []service.LeaderboardEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// GetAssets lists the catalog with network-wide totals.
func (h *Handler) GetAssets(c *gin.Context) {
	stats, err := h.Leaderboard.Assets(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assets": stats})
}
