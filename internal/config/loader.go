package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CRYPFINDER_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known CRYPFINDER_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Coinbase ──
	setStr(&cfg.Coinbase.BaseURL, "CRYPFINDER_COINBASE_BASE_URL")
	setStr(&cfg.Coinbase.Key, "CRYPFINDER_COINBASE_KEY")
	setStr(&cfg.Coinbase.Secret, "CRYPFINDER_COINBASE_SECRET")
	setStr(&cfg.Coinbase.Passphrase, "CRYPFINDER_COINBASE_PASSPHRASE")
	setStr(&cfg.Coinbase.EncryptedSecretPath, "CRYPFINDER_COINBASE_ENCRYPTED_SECRET_PATH")
	setStr(&cfg.Coinbase.SecretPassword, "CRYPFINDER_COINBASE_SECRET_PASSWORD")

	// ── Trading ──
	setStr(&cfg.Trading.ProductID, "CRYPFINDER_TRADING_PRODUCT_ID")
	setFloat64(&cfg.Trading.TakerFeeRate, "CRYPFINDER_TRADING_TAKER_FEE_RATE")
	setFloat64(&cfg.Trading.PriceDelta, "CRYPFINDER_TRADING_PRICE_DELTA")
	setFloat64(&cfg.Trading.ProfitSplit, "CRYPFINDER_TRADING_PROFIT_SPLIT")
	setStr(&cfg.Trading.SplitCurrency, "CRYPFINDER_TRADING_SPLIT_CURRENCY")
	setStr(&cfg.Trading.TradeProfileID, "CRYPFINDER_TRADING_TRADE_PROFILE_ID")
	setStr(&cfg.Trading.DepositProfileID, "CRYPFINDER_TRADING_DEPOSIT_PROFILE_ID")
	setInt(&cfg.Trading.PollAttempts, "CRYPFINDER_TRADING_POLL_ATTEMPTS")
	setDuration(&cfg.Trading.PollInterval, "CRYPFINDER_TRADING_POLL_INTERVAL")
	setDuration(&cfg.Trading.CycleInterval, "CRYPFINDER_TRADING_CYCLE_INTERVAL")
	setInt(&cfg.Trading.OrderRateLimit, "CRYPFINDER_TRADING_ORDER_RATE_LIMIT")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "CRYPFINDER_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "CRYPFINDER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "CRYPFINDER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "CRYPFINDER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "CRYPFINDER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "CRYPFINDER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "CRYPFINDER_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "CRYPFINDER_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "CRYPFINDER_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "CRYPFINDER_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "CRYPFINDER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CRYPFINDER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CRYPFINDER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CRYPFINDER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CRYPFINDER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CRYPFINDER_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "CRYPFINDER_REDIS_KEY_PREFIX")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "CRYPFINDER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CRYPFINDER_S3_REGION")
	setStr(&cfg.S3.Bucket, "CRYPFINDER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CRYPFINDER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CRYPFINDER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CRYPFINDER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "CRYPFINDER_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "CRYPFINDER_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "CRYPFINDER_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "CRYPFINDER_ARCHIVE_INTERVAL")
	setBool(&cfg.Archive.Prune, "CRYPFINDER_ARCHIVE_PRUNE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "CRYPFINDER_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CRYPFINDER_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "CRYPFINDER_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "CRYPFINDER_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "CRYPFINDER_MODE")
	setStr(&cfg.LogLevel, "CRYPFINDER_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
