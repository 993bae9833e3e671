// Package config defines the top-level configuration for the trading bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by CRYPFINDER_* environment variables.
type Config struct {
	Coinbase Coinbase      `toml:"coinbase"`
	Trading  TradingConfig `toml:"trading"`
	Postgres Postgres      `toml:"postgres"`
	Redis    RedisConfig   `toml:"redis"`
	S3       S3Config      `toml:"s3"`
	Archive  ArchiveConfig `toml:"archive"`
	Notify   NotifyConfig  `toml:"notify"`
	Mode     string        `toml:"mode"`
	LogLevel string        `toml:"log_level"`
}

// Coinbase holds the exchange API credentials and endpoint.
type Coinbase struct {
	BaseURL    string `toml:"base_url"`
	Key        string `toml:"key"`
	Secret     string `toml:"secret"`
	Passphrase string `toml:"passphrase"`
	// EncryptedSecretPath points to a secret encrypted with the encryptkey
	// tool. When set, SecretPassword is required and Secret may stay empty.
	EncryptedSecretPath string `toml:"encrypted_secret_path"`
	SecretPassword      string `toml:"secret_password"`
}

// TradingConfig holds the cycle strategy parameters.
type TradingConfig struct {
	ProductID        string   `toml:"product_id"`
	TakerFeeRate     float64  `toml:"taker_fee_rate"`
	PriceDelta       float64  `toml:"price_delta"`
	ProfitSplit      float64  `toml:"profit_split"`
	SplitCurrency    string   `toml:"split_currency"`
	TradeProfileID   string   `toml:"trade_profile_id"`
	DepositProfileID string   `toml:"deposit_profile_id"`
	PollAttempts     int      `toml:"poll_attempts"`
	PollInterval     duration `toml:"poll_interval"`
	// CycleInterval is the pause between the end of one cycle and the start
	// of the next.
	CycleInterval duration `toml:"cycle_interval"`
	// OrderRateLimit caps order submissions per second across the process.
	OrderRateLimit int `toml:"order_rate_limit"`
}

// Postgres holds PostgreSQL connection parameters for the trade journal.
type Postgres struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	// KeyPrefix namespaces every key this instance writes.
	KeyPrefix string `toml:"key_prefix"`
}

// S3Config holds S3-compatible object storage parameters for archives.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls journal archiving to object storage.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
	// Prune deletes journal rows after they have been archived. Off by
	// default so the first runs can be verified against the uploaded files.
	Prune bool `toml:"prune"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Coinbase: Coinbase{
			BaseURL: "https://api.exchange.coinbase.com",
		},
		Trading: TradingConfig{
			ProductID:      "BTC-USD",
			TakerFeeRate:   0.005,
			PriceDelta:     0.001,
			ProfitSplit:    0.4,
			PollAttempts:   10,
			PollInterval:   duration{6 * time.Second},
			CycleInterval:  duration{30 * time.Second},
			OrderRateLimit: 5,
		},
		Postgres: Postgres{
			Host:          "localhost",
			Port:          5432,
			Database:      "crypfinder",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
			KeyPrefix:  "crypfinder",
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "crypfinder-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		Notify: NotifyConfig{
			Events: []string{"cycle_completed", "cycle_failed", "profit_split"},
		},
		Mode:     "trade",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":   true,
	"monitor": true,
	"archive": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, monitor, archive)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Coinbase
	if c.Coinbase.BaseURL == "" {
		errs = append(errs, "coinbase: base_url must not be empty")
	}
	if c.Coinbase.Key == "" {
		errs = append(errs, "coinbase: key must not be empty")
	}
	if c.Coinbase.Passphrase == "" {
		errs = append(errs, "coinbase: passphrase must not be empty")
	}
	if c.Coinbase.Secret == "" && c.Coinbase.EncryptedSecretPath == "" {
		errs = append(errs, "coinbase: either secret or encrypted_secret_path must be set")
	}
	if c.Coinbase.EncryptedSecretPath != "" && c.Coinbase.SecretPassword == "" {
		errs = append(errs, "coinbase: secret_password is required when encrypted_secret_path is set")
	}

	// Trading
	if c.Trading.ProductID == "" {
		errs = append(errs, "trading: product_id must not be empty")
	} else if !strings.Contains(c.Trading.ProductID, "-") {
		errs = append(errs, fmt.Sprintf("trading: product_id %q must be a pair like BTC-USD", c.Trading.ProductID))
	}
	if c.Trading.TakerFeeRate < 0 || c.Trading.TakerFeeRate >= 1 {
		errs = append(errs, fmt.Sprintf("trading: taker_fee_rate must be in [0, 1), got %v", c.Trading.TakerFeeRate))
	}
	if c.Trading.PriceDelta <= 0 || c.Trading.PriceDelta >= 1 {
		errs = append(errs, fmt.Sprintf("trading: price_delta must be in (0, 1), got %v", c.Trading.PriceDelta))
	}
	if c.Trading.ProfitSplit <= 0 || c.Trading.ProfitSplit > 1 {
		errs = append(errs, fmt.Sprintf("trading: profit_split must be in (0, 1], got %v", c.Trading.ProfitSplit))
	}
	if c.Mode == "trade" {
		if c.Trading.TradeProfileID == "" {
			errs = append(errs, "trading: trade_profile_id is required for trade mode")
		}
		if c.Trading.DepositProfileID == "" {
			errs = append(errs, "trading: deposit_profile_id is required for trade mode")
		}
	}
	if c.Trading.PollAttempts < 1 {
		errs = append(errs, "trading: poll_attempts must be >= 1")
	}
	if c.Trading.PollInterval.Duration <= 0 {
		errs = append(errs, "trading: poll_interval must be positive")
	}
	if c.Trading.OrderRateLimit < 1 {
		errs = append(errs, "trading: order_rate_limit must be >= 1")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 checks apply only when archiving is on.
	if c.Archive.Enabled || c.Mode == "archive" {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archiving is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archiving is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
