// Package bot runs the Telegram side of the game: deep-link referrals,
// chat commands and referral notifications.
package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tapminer/internal/logger"
	"tapminer/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the part of tgbotapi.BotAPI the handlers need.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Services struct {
	Accounts    *service.AccountService
	Referrals   *service.ReferralService
	Mining      *service.MiningService
	Leaderboard *service.LeaderboardService
}

// Bot handles player commands via Telegram
type Bot struct {
	api    *tgbotapi.BotAPI
	out    sender
	svc    Services
	stopCh chan struct{}
	wg     sync.WaitGroup
	log    *slog.Logger
}

// New authorizes the bot token against the Telegram API.
func New(token string, svc Services) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	b := newBot(api, svc)
	b.api = api
	b.log.Info("bot authorized", "username", api.Self.UserName)
	return b, nil
}

func newBot(out sender, svc Services) *Bot {
	return &Bot{
		out:    out,
		svc:    svc,
		stopCh: make(chan struct{}),
		log:    logger.With("component", "bot"),
	}
}

// Start runs the update loop until Stop is called.
func (b *Bot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.From == nil || !update.Message.IsCommand() {
				continue
			}

			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleCommand(msg)
			}(update.Message)
		}
	}
}

// Stop gracefully stops the bot
func (b *Bot) Stop() {
	b.log.Info("stopping bot...")
	close(b.stopCh)
	if b.api != nil {
		b.api.StopReceivingUpdates()
	}

	// Wait for pending handlers with timeout
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("bot shutdown timeout, some handlers may not have completed")
	}
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reply := tgbotapi.NewMessage(msg.Chat.ID, b.respond(ctx, msg))
	reply.ReplyToMessageID = msg.MessageID
	if _, err := b.out.Send(reply); err != nil {
		b.log.Error("error sending message", "error", err, "chat_id", msg.Chat.ID)
	}
}
