package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tapminer/internal/logger"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	AppPort  string
	LogLevel string
	LogJSON  bool

	StoreDriver string
	DatabaseURL string
	SQLitePath  string
	DBMaxConns  int32
	DBMinConns  int32

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret       string
	BotToken        string
	BotUsername     string
	WebAppShortName string
	BotEnabled      bool
	WebhookSecret   string
	AllowedOrigin   string

	// Rate limits (fixed window)
	RateLimit      int
	RateWindow     time.Duration
	MineRateLimit  int
	MineRateWindow time.Duration

	// Economy
	MineCooldown         time.Duration
	MineRewardMin        int64
	MineRewardMax        int64
	ReferralBonus        int64
	NewAccountSubscribed bool
	AssetsFile           string

	LeaderboardDefaultLimit int
	LeaderboardMaxLimit     int
	LeaderboardCacheTTL     time.Duration
}

// Load читает .env (если есть) и env, при ошибке завершает процесс
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := Parse()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	return cfg
}

// Parse builds a Config from the process environment.
func Parse() (*Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg := &Config{
		AppPort:         getEnv("APP_PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		StoreDriver:     strings.ToLower(getEnv("STORE_DRIVER", DriverPostgres)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SQLitePath:      getEnv("SQLITE_PATH", "tapminer.db"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		BotToken:        os.Getenv("BOT_TOKEN"),
		BotUsername:     getEnv("BOT_USERNAME", "TapMinerBot"), // ! если не установлено в env !
		WebAppShortName: getEnv("WEBAPP_SHORT_NAME", "app"),
		WebhookSecret:   os.Getenv("WEBHOOK_SECRET"),
		AllowedOrigin:   getEnv("ALLOWED_ORIGIN", "*"),
		AssetsFile:      os.Getenv("ASSETS_FILE"),
	}

	var err error
	cfg.LogJSON, err = getEnvBool("LOG_JSON", false)
	collect(err)
	cfg.BotEnabled, err = getEnvBool("BOT_ENABLED", false)
	collect(err)
	cfg.NewAccountSubscribed, err = getEnvBool("NEW_ACCOUNT_SUBSCRIBED", false)
	collect(err)

	var n int64
	n, err = getEnvInt("DB_MAX_CONNS", 20)
	collect(err)
	cfg.DBMaxConns = int32(n)
	n, err = getEnvInt("DB_MIN_CONNS", 2)
	collect(err)
	cfg.DBMinConns = int32(n)
	n, err = getEnvInt("REDIS_DB", 0)
	collect(err)
	cfg.RedisDB = int(n)

	// лимиты запросов: N запросов за окно
	n, err = getEnvInt("RATE_LIMIT", 120)
	collect(err)
	cfg.RateLimit = int(n)
	cfg.RateWindow, err = getEnvDuration("RATE_WINDOW", time.Minute)
	collect(err)
	n, err = getEnvInt("MINE_RATE_LIMIT", 30)
	collect(err)
	cfg.MineRateLimit = int(n)
	cfg.MineRateWindow, err = getEnvDuration("MINE_RATE_WINDOW", time.Minute)
	collect(err)

	cfg.MineCooldown, err = getEnvDuration("MINE_COOLDOWN", time.Hour)
	collect(err)
	cfg.MineRewardMin, err = getEnvInt("MINE_REWARD_MIN", 1)
	collect(err)
	cfg.MineRewardMax, err = getEnvInt("MINE_REWARD_MAX", 3)
	collect(err)
	cfg.ReferralBonus, err = getEnvInt("REFERRAL_BONUS", 100)
	collect(err)

	n, err = getEnvInt("LEADERBOARD_DEFAULT_LIMIT", 10)
	collect(err)
	cfg.LeaderboardDefaultLimit = int(n)
	n, err = getEnvInt("LEADERBOARD_MAX_LIMIT", 100)
	collect(err)
	cfg.LeaderboardMaxLimit = int(n)
	cfg.LeaderboardCacheTTL, err = getEnvDuration("LEADERBOARD_CACHE_TTL", 5*time.Second)
	collect(err)

	collect(cfg.validate())
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	}
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is not set"))
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not supported", c.StoreDriver))
	}
	if c.BotEnabled && c.BotToken == "" {
		errs = append(errs, errors.New("BOT_TOKEN is not set but BOT_ENABLED=true"))
	}

	if c.MineCooldown < 0 {
		errs = append(errs, errors.New("MINE_COOLDOWN must not be negative"))
	}
	if c.MineRewardMin < 0 || c.MineRewardMax < c.MineRewardMin {
		errs = append(errs, fmt.Errorf("mining reward range [%d, %d] is invalid", c.MineRewardMin, c.MineRewardMax))
	}
	if c.ReferralBonus < 0 {
		errs = append(errs, errors.New("REFERRAL_BONUS must not be negative"))
	}
	if c.LeaderboardMaxLimit <= 0 || c.LeaderboardDefaultLimit <= 0 || c.LeaderboardDefaultLimit > c.LeaderboardMaxLimit {
		errs = append(errs, fmt.Errorf("leaderboard limits default=%d max=%d are invalid",
			c.LeaderboardDefaultLimit, c.LeaderboardMaxLimit))
	}
	if c.RateLimit <= 0 || c.MineRateLimit <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// getEnvDuration accepts Go durations ("90s", "1h") or plain seconds.
func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
