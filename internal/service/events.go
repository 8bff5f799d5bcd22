package service

import (
	"context"

	"tapminer/internal/domain"
)

// ReferralNotifier delivers the out-of-band "someone joined" message.
type ReferralNotifier interface {
	ReferralJoined(ctx context.Context, referrerID int64, referredUsername string) error
}

// EventPublisher pushes committed changes to live subscribers. Publish must
// not block.
type EventPublisher interface {
	Publish(accountID int64, ev domain.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(int64, domain.Event) {}
