package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/Mikesteam1234/crypfinder/internal/blob/s3"
	"github.com/Mikesteam1234/crypfinder/internal/cache/redis"
	"github.com/Mikesteam1234/crypfinder/internal/config"
	"github.com/Mikesteam1234/crypfinder/internal/crypto"
	"github.com/Mikesteam1234/crypfinder/internal/domain"
	"github.com/Mikesteam1234/crypfinder/internal/notify"
	"github.com/Mikesteam1234/crypfinder/internal/platform/coinbase"
	"github.com/Mikesteam1234/crypfinder/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Exchange access
	Exchange *coinbase.Client

	// Journal stores
	CycleStore    *postgres.CycleStore
	OrderStore    *postgres.OrderStore
	TransferStore *postgres.TransferStore

	// Caches
	PriceCache  domain.PriceCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// needsPostgres returns true for modes that require the journal database.
func needsPostgres(mode string) bool {
	switch mode {
	case "trade", "archive":
		return true
	default:
		return false
	}
}

// needsS3 reports whether object storage must be wired for the given config.
func needsS3(cfg *config.Config) bool {
	return cfg.Mode == "archive" || cfg.Archive.Enabled
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Exchange client ---
	secret, err := crypto.LoadSecret(crypto.SecretConfig{
		RawSecret:           cfg.Coinbase.Secret,
		EncryptedSecretPath: cfg.Coinbase.EncryptedSecretPath,
		SecretPassword:      cfg.Coinbase.SecretPassword,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: api secret: %w", err)
	}
	signer := &crypto.Signer{
		Key:        cfg.Coinbase.Key,
		Secret:     secret,
		Passphrase: cfg.Coinbase.Passphrase,
	}
	deps.Exchange = coinbase.NewClient(cfg.Coinbase.BaseURL, signer)

	// --- PostgreSQL (only for modes that journal) ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.CycleStore = postgres.NewCycleStore(pool)
		deps.OrderStore = postgres.NewOrderStore(pool)
		deps.TransferStore = postgres.NewTransferStore(pool)
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
		KeyPrefix:  cfg.Redis.KeyPrefix,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)

	// --- S3 blob storage (only when archiving) ---
	if needsS3(cfg) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		if deps.CycleStore != nil {
			deps.Archiver = s3blob.NewArchiver(
				deps.BlobWriter,
				deps.BlobReader,
				deps.CycleStore,
				deps.OrderStore,
				deps.TransferStore,
			)
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		).WithLabel(cfg.Trading.ProductID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders,
			notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL).WithLabel(cfg.Trading.ProductID))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
