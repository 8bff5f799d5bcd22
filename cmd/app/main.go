package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tapminer/internal/bot"
	"tapminer/internal/cache"
	"tapminer/internal/catalog"
	"tapminer/internal/config"
	"tapminer/internal/db"
	httpServer "tapminer/internal/http"
	"tapminer/internal/http/handlers"
	"tapminer/internal/http/middleware"
	"tapminer/internal/logger"
	"tapminer/internal/service"
	"tapminer/internal/ws"

	"github.com/gin-gonic/gin"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	st, err := db.OpenStore(ctx, cfg, true)
	cancel()
	if err != nil {
		logger.Fatal("failed to open store", "driver", cfg.StoreDriver, "error", err)
	}
	defer st.Close()

	cat, err := catalog.Load(cfg.AssetsFile)
	if err != nil {
		logger.Fatal("failed to load asset catalog", "file", cfg.AssetsFile, "error", err)
	}

	// Redis is optional: limiters fail open and the leaderboard reads through.
	var pageCache service.PageCache
	var redisPing handlers.Pinger
	rdb, err := cache.Connect(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, running without it", "error", err)
	}
	if rdb != nil {
		defer rdb.Close()
		rc := cache.NewRedisCache(rdb, "tapminer:")
		pageCache, redisPing = rc, rc
		middleware.UseRedis(rdb)
		logger.Info("redis connected", "addr", cfg.RedisAddr)
	}

	hub := ws.NewHub()

	accounts := service.NewAccountService(st, cfg.NewAccountSubscribed)
	referrals := service.NewReferralService(st, service.ReferralConfig{
		Bonus:                cfg.ReferralBonus,
		NewAccountSubscribed: cfg.NewAccountSubscribed,
		BotUsername:          cfg.BotUsername,
		WebAppShortName:      cfg.WebAppShortName,
	})
	referrals.SetPublisher(hub)
	mining := service.NewMiningService(st, cat, service.MiningConfig{
		Cooldown:  cfg.MineCooldown,
		RewardMin: cfg.MineRewardMin,
		RewardMax: cfg.MineRewardMax,
	})
	mining.SetPublisher(hub)
	purchases := service.NewPurchaseService(st, cat)
	purchases.SetPublisher(hub)
	leaderboard := service.NewLeaderboardService(st, cat, pageCache, service.LeaderboardConfig{
		DefaultLimit: cfg.LeaderboardDefaultLimit,
		MaxLimit:     cfg.LeaderboardMaxLimit,
		CacheTTL:     cfg.LeaderboardCacheTTL,
	})

	if cfg.BotToken == "" {
		logger.Warn("BOT_TOKEN is not set, /auth will answer 503")
	}

	var tgBot *bot.Bot
	if cfg.BotEnabled && cfg.BotToken != "" {
		tgBot, err = bot.New(cfg.BotToken, bot.Services{
			Accounts:    accounts,
			Referrals:   referrals,
			Mining:      mining,
			Leaderboard: leaderboard,
		})
		if err != nil {
			logger.Error("failed to start bot, continuing without it", "error", err)
		} else {
			referrals.SetNotifier(tgBot.Notifier())
			go tgBot.Start()
		}
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := httpServer.NewRouter(httpServer.Deps{
		Handler: handlers.NewHandler(handlers.Services{
			Accounts:    accounts,
			Referrals:   referrals,
			Mining:      mining,
			Purchases:   purchases,
			Leaderboard: leaderboard,
		}, handlers.HandlerConfig{
			BotToken:      cfg.BotToken,
			WebhookSecret: cfg.WebhookSecret,
		}),
		Health: handlers.NewHealthHandler(st, redisPing, version),
		Hub:    hub,
		Limits: httpServer.Limits{
			API:        cfg.RateLimit,
			APIWindow:  cfg.RateWindow,
			Mine:       cfg.MineRateLimit,
			MineWindow: cfg.MineRateWindow,
		},
		AllowedOrigin: cfg.AllowedOrigin,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	if tgBot != nil {
		tgBot.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
