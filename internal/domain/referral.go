package domain

import "time"

// ReferralOutcome - результат попытки реферала (стабильный код для транспорта)
type ReferralOutcome string

const (
	ReferralPending         ReferralOutcome = "pending"
	ReferralSuccess         ReferralOutcome = "success"
	ReferralAlreadyApplied  ReferralOutcome = "already_applied"
	ReferralInviterNotFound ReferralOutcome = "inviter_not_found"
	ReferralSelf            ReferralOutcome = "self_referral"
	ReferralAlreadyReferred ReferralOutcome = "already_referred"
)

// Terminal reports whether an attempt with this outcome is committed to the
// ledger. Failed attempts roll back, so the pair stays open for a later claim.
func (o ReferralOutcome) Terminal() bool {
	return o == ReferralSuccess || o == ReferralAlreadyApplied
}

// ReferralAttempt is one Idempotency Ledger row, unique per
// (ReferrerID, ReferredID). The row is written once, in the transaction
// that decided its outcome.
type ReferralAttempt struct {
	ID              int64           `db:"id" json:"id"`
	ReferrerID      int64           `db:"referrer_id" json:"referrer_id"`
	ReferredID      int64           `db:"referred_id" json:"referred_id"`
	Outcome         ReferralOutcome `db:"outcome" json:"outcome"`
	Bonus           int64           `db:"bonus" json:"bonus"`
	ReferrerBalance int64           `db:"referrer_balance" json:"referrer_balance"`
	ReferralCount   int64           `db:"referral_count" json:"referral_count"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}
