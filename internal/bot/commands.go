package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tapminer/internal/domain"
	"tapminer/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `⛏ Tap Miner

/mine - dig for coins (once per cooldown)
/balance - your balance and assets
/top - leaderboard
/invite - your referral link`

// respond builds the plain-text reply for one command.
func (b *Bot) respond(ctx context.Context, msg *tgbotapi.Message) string {
	from := msg.From
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, from, msg.CommandArguments())
	case "help":
		return helpText
	case "mine":
		return b.handleMine(ctx, from.ID)
	case "balance":
		return b.handleBalance(ctx, from.ID)
	case "top":
		return b.handleTop(ctx)
	case "invite":
		return "Share this link: " + b.svc.Referrals.Link(from.ID).Bot
	default:
		return "Unknown command. Use /help."
	}
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// handleStart registers the player and, for "/start ref_<id>", claims the
// referral.
func (b *Bot) handleStart(ctx context.Context, from *tgbotapi.User, payload string) string {
	acc, created, err := b.svc.Accounts.FetchOrCreate(ctx, from.ID, displayName(from))
	if err != nil {
		b.log.Error("start: fetch account", "account_id", from.ID, "error", err)
		return "Something went wrong, try again later."
	}

	greeting := "Welcome back, " + acc.Username + "!"
	if created {
		greeting = "Welcome to Tap Miner, " + acc.Username + "!"
	}

	referrerID, ok := service.ParseStartParam(payload)
	if !ok || referrerID == from.ID {
		return greeting + "\n\n" + helpText
	}

	res, err := b.svc.Referrals.Claim(ctx, referrerID, from.ID, acc.Username)
	switch {
	case err == nil && res.Outcome == domain.ReferralSuccess:
		return greeting + "\nYour invite was counted. Happy digging!\n\n" + helpText
	case err == nil:
		return greeting + "\n\n" + helpText
	case service.KindOf(err) == service.KindInfrastructure:
		b.log.Error("start: referral claim", "referrer_id", referrerID, "referred_id", from.ID, "error", err)
	}
	return greeting + "\n\n" + helpText
}

func (b *Bot) handleMine(ctx context.Context, accountID int64) string {
	res, err := b.svc.Mining.Mine(ctx, accountID)
	var cd *service.CooldownError
	switch {
	case err == nil:
		return fmt.Sprintf("⛏ +%d coins (passive +%d). Balance: %d", res.Earned, res.PassiveIncome, res.NewBalance)
	case errors.As(err, &cd):
		return fmt.Sprintf("Your pickaxe is cooling down. Try again in %s.", formatWait(cd.RetryAfterSeconds()))
	case errors.Is(err, service.ErrUserNotFound):
		return "Send /start first."
	default:
		b.log.Error("mine failed", "account_id", accountID, "error", err)
		return "Something went wrong, try again later."
	}
}

func (b *Bot) handleBalance(ctx context.Context, accountID int64) string {
	acc, err := b.svc.Accounts.Get(ctx, accountID)
	if errors.Is(err, service.ErrUserNotFound) {
		return "Send /start first."
	}
	if err != nil {
		b.log.Error("balance failed", "account_id", accountID, "error", err)
		return "Something went wrong, try again later."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "💰 %d coins, level %d\nReferrals: %d", acc.Balance, acc.Level(), acc.ReferralCount)
	for id, qty := range acc.Assets {
		if qty > 0 {
			fmt.Fprintf(&sb, "\n%s × %d", id, qty)
		}
	}
	return sb.String()
}

func (b *Bot) handleTop(ctx context.Context) string {
	entries, err := b.svc.Leaderboard.Top(ctx, 10)
	if err != nil {
		b.log.Error("top failed", "error", err)
		return "Something went wrong, try again later."
	}
	if len(entries) == 0 {
		return "Nobody has mined anything yet."
	}

	var sb strings.Builder
	sb.WriteString("🏆 Top miners")
	for _, e := range entries {
		fmt.Fprintf(&sb, "\n%d. %s - %d", e.Rank, e.Username, e.Balance)
	}
	return sb.String()
}

func formatWait(secs int64) string {
	if secs >= 60 {
		return fmt.Sprintf("%dm %ds", secs/60, secs%60)
	}
	return fmt.Sprintf("%ds", secs)
}
