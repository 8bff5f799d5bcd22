package domain

import "time"

// Ledger categories
const (
	LedgerMine          = "mine"
	LedgerPurchase      = "purchase"
	LedgerReferralBonus = "referral_bonus"
)

// LedgerEntry is one row of the append-only transaction log. Every
// balance-affecting event writes exactly one entry in the same transaction.
type LedgerEntry struct {
	ID        int64     `db:"id" json:"id"`
	AccountID int64     `db:"account_id" json:"account_id"`
	Amount    int64     `db:"amount" json:"amount"` // signed
	Category  string    `db:"category" json:"category"`
	Note      string    `db:"note" json:"note,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
