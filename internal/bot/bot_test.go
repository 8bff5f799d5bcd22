package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"tapminer/internal/catalog"
	"tapminer/internal/repository/sqlite"
	"tapminer/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func newTestBot(t *testing.T) (*Bot, *fakeSender, *sqlite.Store) {
	t.Helper()
	st, err := sqlite.Open(sqlite.MemoryPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(st.Close)

	cat := catalog.Default()
	out := &fakeSender{}
	b := newBot(out, Services{
		Accounts:  service.NewAccountService(st, false),
		Referrals: service.NewReferralService(st, service.ReferralConfig{Bonus: 100, BotUsername: "TapMinerBot"}),
		Mining: service.NewMiningService(st, cat, service.MiningConfig{
			Cooldown: time.Hour, RewardMin: 2, RewardMax: 2,
		}),
		Leaderboard: service.NewLeaderboardService(st, cat, nil, service.LeaderboardConfig{DefaultLimit: 10, MaxLimit: 100}),
	})
	return b, out, st
}

func command(from int64, username, text string) *tgbotapi.Message {
	name, _, _ := strings.Cut(text, " ")
	return &tgbotapi.Message{
		MessageID: 1,
		Text:      text,
		From:      &tgbotapi.User{ID: from, UserName: username},
		Chat:      &tgbotapi.Chat{ID: from},
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func TestStartWithReferralPayload(t *testing.T) {
	b, out, st := newTestBot(t)
	ctx := context.Background()

	b.handleCommand(command(1, "alice", "/start"))
	b.handleCommand(command(2, "bob", "/start ref_1"))

	if len(out.sent) != 2 {
		t.Fatalf("want 2 replies, got %d", len(out.sent))
	}
	if !strings.Contains(out.sent[1].Text, "invite was counted") {
		t.Fatalf("unexpected reply: %q", out.sent[1].Text)
	}

	alice, err := st.GetAccount(ctx, 1)
	if err != nil || alice.Balance != 100 || alice.ReferralCount != 1 {
		t.Fatalf("referrer not credited: %+v %v", alice, err)
	}
	bob, err := st.GetAccount(ctx, 2)
	if err != nil || bob.ReferredBy == nil || *bob.ReferredBy != 1 || bob.Username != "bob" {
		t.Fatalf("referred account: %+v %v", bob, err)
	}

	// same deep link again: no second bonus
	b.handleCommand(command(2, "bob", "/start ref_1"))
	alice, _ = st.GetAccount(ctx, 1)
	if alice.Balance != 100 {
		t.Fatalf("bonus paid twice: %d", alice.Balance)
	}
}

func TestMineAndBalanceCommands(t *testing.T) {
	b, _, _ := newTestBot(t)
	ctx := context.Background()

	if got := b.respond(ctx, command(5, "miner", "/mine")); got != "Send /start first." {
		t.Fatalf("mine before start: %q", got)
	}

	b.respond(ctx, command(5, "miner", "/start"))
	if got := b.respond(ctx, command(5, "miner", "/mine")); !strings.Contains(got, "+2 coins") {
		t.Fatalf("mine: %q", got)
	}
	if got := b.respond(ctx, command(5, "miner", "/mine")); !strings.Contains(got, "cooling down") {
		t.Fatalf("second mine: %q", got)
	}
	if got := b.respond(ctx, command(5, "miner", "/balance")); !strings.HasPrefix(got, "💰 2 coins") {
		t.Fatalf("balance: %q", got)
	}
	if got := b.respond(ctx, command(5, "miner", "/top")); !strings.Contains(got, "1. miner - 2") {
		t.Fatalf("top: %q", got)
	}
	if got := b.respond(ctx, command(5, "miner", "/invite")); !strings.Contains(got, "https://t.me/TapMinerBot?start=ref_5") {
		t.Fatalf("invite: %q", got)
	}
	if got := b.respond(ctx, command(5, "miner", "/dance")); !strings.HasPrefix(got, "Unknown command") {
		t.Fatalf("unknown: %q", got)
	}
}

func TestNotifierReferralJoined(t *testing.T) {
	out := &fakeSender{}
	n := &Notifier{out: out}

	if err := n.ReferralJoined(context.Background(), 77, "bob"); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(out.sent) != 1 || out.sent[0].ChatID != 77 || !strings.Contains(out.sent[0].Text, "bob") {
		t.Fatalf("unexpected message: %+v", out.sent)
	}

	out.err = errors.New("telegram down")
	if err := n.ReferralJoined(context.Background(), 77, "bob"); err == nil {
		t.Fatalf("send failure must be returned")
	}
}

func TestFormatWait(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{5, "5s"},
		{60, "1m 0s"},
		{3599, "59m 59s"},
	}
	for _, tt := range tests {
		if got := formatWait(tt.secs); got != tt.want {
			t.Fatalf("formatWait(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}
