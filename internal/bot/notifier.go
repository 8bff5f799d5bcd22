package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier tells a referrer in a private chat that their invite joined.
// A private chat id equals the Telegram user id.
type Notifier struct {
	out sender
}

// Notifier shares the bot's connection.
func (b *Bot) Notifier() *Notifier {
	return &Notifier{out: b.out}
}

// ReferralJoined implements service.ReferralNotifier.
func (n *Notifier) ReferralJoined(ctx context.Context, referrerID int64, referredUsername string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(referrerID, fmt.Sprintf("🎉 %s joined with your invite link. Bonus credited!", referredUsername))
	if _, err := n.out.Send(msg); err != nil {
		return fmt.Errorf("notify referrer %d: %w", referrerID, err)
	}
	return nil
}
