package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type PurchaseRequest struct {
	AssetID  string `json:"asset_id"`
	Quantity int64  `json:"quantity"`
}

// Purchase buys catalog assets at catalog price.
func (h *Handler) Purchase(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}

	res, err := h.Purchases.BuyFromCatalog(c.Request.Context(), userID, req.AssetID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
