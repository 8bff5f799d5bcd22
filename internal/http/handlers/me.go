package handlers

import (
	"net/http"
	"strconv"

	"tapminer/internal/domain"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Me(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	acc, err := h.Accounts.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, accountView(acc))
}

// UpdateMe applies a partial update of username and/or subscribed.
func (h *Handler) UpdateMe(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var patch domain.AccountPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid body")
		return
	}

	acc, err := h.Accounts.UpdateFields(c.Request.Context(), userID, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, accountView(acc))
}

// Ledger returns the caller's recent balance changes (?limit=, default 50).
func (h *Handler) Ledger(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.Accounts.Ledger(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
