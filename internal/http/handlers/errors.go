package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"tapminer/internal/logger"
	"tapminer/internal/service"

	"github.com/gin-gonic/gin"
)

// statusFor maps a stable error code to an HTTP status.
func statusFor(err error) int {
	switch service.Code(err) {
	case service.ErrUserNotFound.Code, service.ErrInviterNotFound.Code:
		return http.StatusNotFound
	case service.ErrCooldownActive.Code:
		return http.StatusTooManyRequests
	case service.ErrInsufficientFunds.Code, service.ErrSelfReferral.Code:
		return http.StatusBadRequest
	case service.ErrAlreadyReferred.Code, service.ErrStoreConflict.Code, service.ErrBalanceOverflow.Code:
		return http.StatusConflict
	}
	if service.KindOf(err) == service.KindValidation {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": <code>, "message": <text>} plus any detail
// the typed error carries.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": service.Code(err), "message": err.Error()}

	var cd *service.CooldownError
	if errors.As(err, &cd) {
		secs := cd.RetryAfterSeconds()
		body["retry_after"] = secs
		c.Header("Retry-After", strconv.FormatInt(secs, 10))
	}

	var fe *service.InsufficientFundsError
	if errors.As(err, &fe) {
		body["balance"] = fe.Balance
		body["required"] = fe.Required
		body["shortfall"] = fe.Shortfall
	}

	if status == http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "error", err)
		body["message"] = "internal error"
		_ = c.Error(err)
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": msg})
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "missing session"})
}
