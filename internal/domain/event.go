package domain

import "time"

// Event types pushed to the live feed after a commit.
const (
	EventMine           = "mine"
	EventPurchase       = "purchase"
	EventReferralBonus  = "referral_bonus"
	EventReferralJoined = "referral_joined"
)

// Event describes a committed change to one account.
type Event struct {
	Type      string         `json:"type"`
	AccountID int64          `json:"account_id"`
	Payload   map[string]any `json:"payload,omitempty"`
	At        time.Time      `json:"at"`
}
