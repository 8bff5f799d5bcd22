package domain

import (
	"strconv"
	"time"
)

// Account - экономическое состояние пользователя.
// ID совпадает с внешним идентификатором (Telegram user id).
type Account struct {
	ID            int64     `db:"id" json:"id"`
	Username      string    `db:"username" json:"username"`
	Balance       int64     `db:"balance" json:"balance"`
	Assets        Assets    `db:"assets" json:"assets"`
	LastRewardAt  time.Time `db:"last_reward_at" json:"last_reward_at,omitempty"`
	ReferredBy    *int64    `db:"referred_by" json:"referred_by,omitempty"`
	ReferralCount int64     `db:"referral_count" json:"referral_count"`
	Subscribed    bool      `db:"subscribed" json:"subscribed"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// AccountPatch lists the fields a caller may change directly.
// Balance, assets and the referral link are owned by the engines.
type AccountPatch struct {
	Username   *string `json:"username,omitempty"`
	Subscribed *bool   `json:"subscribed,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p AccountPatch) Empty() bool {
	return p.Username == nil && p.Subscribed == nil
}

// DefaultUsername is used when the external identity carries no name.
func DefaultUsername(id int64) string {
	return "miner_" + strconv.FormatInt(id, 10)
}

// Level is derived from the balance; it is never stored.
func (a *Account) Level() int {
	return LevelFor(a.Balance)
}

// CooldownRemaining returns how long the account must wait before the next
// mining reward. Zero means READY. A zero LastRewardAt is always READY.
func (a *Account) CooldownRemaining(now time.Time, window time.Duration) time.Duration {
	if a.LastRewardAt.IsZero() {
		return 0
	}
	elapsed := now.Sub(a.LastRewardAt)
	if elapsed >= window {
		return 0
	}
	return window - elapsed
}

// Assets maps asset-type id to owned quantity.
type Assets map[string]int64

// Quantity returns the owned quantity, 0 for a missing key.
func (a Assets) Quantity(id string) int64 {
	if a == nil {
		return 0
	}
	return a[id]
}

// With returns a copy with delta added to id.
func (a Assets) With(id string, delta int64) Assets {
	out := make(Assets, len(a)+1)
	for k, v := range a {
		out[k] = v
	}
	out[id] = out[id] + delta
	return out
}

// Total returns the number of owned units across all asset types.
func (a Assets) Total() int64 {
	var n int64
	for _, v := range a {
		n += v
	}
	return n
}
