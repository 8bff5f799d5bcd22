package service

import (
	"errors"
	"fmt"
	"time"

	"tapminer/internal/store"
)

// Error is a failure with a stable machine-readable code.
type Error struct {
	Code    string
	Message string
	kind    Kind
}

func (e *Error) Error() string { return e.Message }

// Kind classifies a failure for the caller's retry decision.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindBusiness       Kind = "business"
	KindInfrastructure Kind = "infrastructure"
)

func validation(code, msg string) *Error {
	return &Error{Code: code, Message: msg, kind: KindValidation}
}

func business(code, msg string) *Error {
	return &Error{Code: code, Message: msg, kind: KindBusiness}
}

var (
	ErrInvalidAccountID = validation("invalid_account_id", "account id must be positive")
	ErrInvalidAsset     = validation("invalid_asset", "asset id is required")
	ErrInvalidQuantity  = validation("invalid_quantity", "quantity must be a positive integer")
	ErrInvalidCost      = validation("invalid_cost", "unit cost must not be negative")
	ErrInvalidUsername  = validation("invalid_username", "username must be 1-32 characters")
	ErrUnknownAsset     = validation("unknown_asset", "asset is not in the catalog")

	ErrUserNotFound      = business("user_not_found", "account not found")
	ErrInsufficientFunds = business("insufficient_funds", "insufficient funds")
	ErrCooldownActive    = business("cooldown_active", "mining cooldown is active")
	ErrSelfReferral      = business("self_referral", "an account cannot refer itself")
	ErrAlreadyReferred   = business("already_referred", "account was already referred by someone else")
	ErrInviterNotFound   = business("inviter_not_found", "inviter account not found")
	ErrBalanceOverflow   = business("balance_overflow", "reward would overflow the balance")

	ErrStoreConflict = &Error{Code: "store_conflict", Message: "concurrent update, try again", kind: KindInfrastructure}
)

// CooldownError carries how long the caller must wait.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("mining cooldown is active, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *CooldownError) Unwrap() error { return ErrCooldownActive }

// RetryAfterSeconds rounds up so a client waiting that long is never early.
func (e *CooldownError) RetryAfterSeconds() int64 {
	secs := int64(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}

// InsufficientFundsError reports how much currency is missing.
type InsufficientFundsError struct {
	Balance   int64
	Required  int64
	Shortfall int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: need %d, have %d", e.Required, e.Balance)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// Code returns the stable code for err, or "internal_error".
func Code(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	if errors.Is(err, store.ErrConflict) {
		return ErrStoreConflict.Code
	}
	return "internal_error"
}

// KindOf reports whether err is a validation, business or infrastructure failure.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.kind
	}
	return KindInfrastructure
}

// fromStore maps store sentinels that leak out of a transaction.
func fromStore(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %w", ErrStoreConflict, err)
	default:
		return err
	}
}
