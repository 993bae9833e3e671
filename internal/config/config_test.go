package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// validConfig returns a Defaults-based config with the required credentials
// filled in so Validate passes.
func validConfig() Config {
	cfg := Defaults()
	cfg.Coinbase.Key = "key"
	cfg.Coinbase.Secret = "c2VjcmV0"
	cfg.Coinbase.Passphrase = "phrase"
	cfg.Trading.TradeProfileID = "trade-profile"
	cfg.Trading.DepositProfileID = "deposit-profile"
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Coinbase.Key = ""
	cfg.Trading.ProductID = "BTCUSD"
	cfg.Trading.PriceDelta = 1.5
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	msg := err.Error()
	for _, want := range []string{
		"coinbase: key must not be empty",
		`product_id "BTCUSD"`,
		"price_delta must be in (0, 1)",
		"redis: addr must not be empty",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("Validate() error missing %q in:\n%s", want, msg)
		}
	}
}

func TestValidateTradeModeRequiresProfiles(t *testing.T) {
	cfg := validConfig()
	cfg.Trading.TradeProfileID = ""
	cfg.Trading.DepositProfileID = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	if !strings.Contains(err.Error(), "trade_profile_id is required") {
		t.Errorf("Validate() error missing profile check: %v", err)
	}

	// Monitor mode places no orders so profiles are optional.
	cfg.Mode = "monitor"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() monitor mode = %v, want nil", err)
	}
}

func TestValidateSecretAlternatives(t *testing.T) {
	cfg := validConfig()
	cfg.Coinbase.Secret = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() with no secret = nil, want error")
	}

	cfg.Coinbase.EncryptedSecretPath = "secret.enc.json"
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() with encrypted path but no password = nil, want error")
	}

	cfg.Coinbase.SecretPassword = "pw"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() with encrypted path and password = %v, want nil", err)
	}
}

func TestValidateArchiveRequiresS3(t *testing.T) {
	cfg := validConfig()
	cfg.Archive.Enabled = true
	cfg.S3.Endpoint = ""
	cfg.S3.Bucket = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, want := range []string{"s3: endpoint", "s3: bucket"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error missing %q: %v", want, err)
		}
	}
}

func TestLoadParsesTOMLAndDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
mode = "monitor"
log_level = "debug"

[coinbase]
key = "key"
secret = "c2VjcmV0"
passphrase = "phrase"

[trading]
product_id = "ETH-USD"
poll_interval = "2s"
cycle_interval = "1m"
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}

	if cfg.Mode != "monitor" {
		t.Errorf("Mode = %q, want %q", cfg.Mode, "monitor")
	}
	if cfg.Trading.ProductID != "ETH-USD" {
		t.Errorf("ProductID = %q, want %q", cfg.Trading.ProductID, "ETH-USD")
	}
	if got := cfg.Trading.PollInterval.Duration; got != 2*time.Second {
		t.Errorf("PollInterval = %v, want 2s", got)
	}
	if got := cfg.Trading.CycleInterval.Duration; got != time.Minute {
		t.Errorf("CycleInterval = %v, want 1m", got)
	}

	// Fields absent from the file keep their defaults.
	if cfg.Trading.PollAttempts != Defaults().Trading.PollAttempts {
		t.Errorf("PollAttempts = %d, want default %d", cfg.Trading.PollAttempts, Defaults().Trading.PollAttempts)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[trading]
product_id = "BTC-USD"
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CRYPFINDER_TRADING_PRODUCT_ID", "SOL-USD")
	t.Setenv("CRYPFINDER_TRADING_POLL_ATTEMPTS", "3")
	t.Setenv("CRYPFINDER_TRADING_POLL_INTERVAL", "500ms")
	t.Setenv("CRYPFINDER_POSTGRES_RUN_MIGRATIONS", "true")
	t.Setenv("CRYPFINDER_NOTIFY_EVENTS", "cycle_completed,cycle_failed")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}

	if cfg.Trading.ProductID != "SOL-USD" {
		t.Errorf("ProductID = %q, want env override %q", cfg.Trading.ProductID, "SOL-USD")
	}
	if cfg.Trading.PollAttempts != 3 {
		t.Errorf("PollAttempts = %d, want 3", cfg.Trading.PollAttempts)
	}
	if got := cfg.Trading.PollInterval.Duration; got != 500*time.Millisecond {
		t.Errorf("PollInterval = %v, want 500ms", got)
	}
	if !cfg.Postgres.RunMigrations {
		t.Error("RunMigrations = false, want true")
	}
	want := []string{"cycle_completed", "cycle_failed"}
	if len(cfg.Notify.Events) != len(want) {
		t.Fatalf("Events = %v, want %v", cfg.Notify.Events, want)
	}
	for i := range want {
		if cfg.Notify.Events[i] != want[i] {
			t.Errorf("Events[%d] = %q, want %q", i, cfg.Notify.Events[i], want[i])
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("Load() = nil, want error for missing file")
	}
}

func TestRedactedConfigHidesCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.Password = "pgpass"
	cfg.Redis.Password = "redispass"
	cfg.S3.SecretKey = "s3secret"
	cfg.Notify.TelegramToken = "tok"

	red := RedactedConfig(&cfg)

	for name, got := range map[string]string{
		"coinbase key":        red.Coinbase.Key,
		"coinbase secret":     red.Coinbase.Secret,
		"coinbase passphrase": red.Coinbase.Passphrase,
		"postgres password":   red.Postgres.Password,
		"redis password":      red.Redis.Password,
		"s3 secret key":       red.S3.SecretKey,
		"telegram token":      red.Notify.TelegramToken,
	} {
		if got != "***" {
			t.Errorf("%s = %q, want redacted", name, got)
		}
	}

	// The original is untouched.
	if cfg.Coinbase.Secret != "c2VjcmV0" {
		t.Errorf("original secret mutated to %q", cfg.Coinbase.Secret)
	}
}
