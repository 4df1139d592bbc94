package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/rfyang/arbscan/internal/blob/s3"
	"github.com/rfyang/arbscan/internal/cache/redis"
	"github.com/rfyang/arbscan/internal/config"
	"github.com/rfyang/arbscan/internal/crypto"
	"github.com/rfyang/arbscan/internal/domain"
	"github.com/rfyang/arbscan/internal/notify"
	"github.com/rfyang/arbscan/internal/store/postgres"
	"github.com/rfyang/arbscan/internal/venue"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
// Optional members (stores, cache, bus, archiver, notifier) are nil when
// their backing service is not configured; the consuming components treat nil
// as "feature off".
type Dependencies struct {
	Registry *venue.Registry
	Fees     domain.FeeTable

	OppStore   domain.OpportunityStore
	OrderStore domain.OrderStore

	QuoteCache domain.QuoteCache
	SignalBus  domain.SignalBus

	Archiver *s3blob.Archiver
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function to be
// called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Fees: cfg.FeeTable()}

	// --- Venue clients ---
	registry, err := buildRegistry(cfg)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: venues: %w", err)
	}
	deps.Registry = registry

	// --- PostgreSQL history stores ---
	if cfg.Postgres.Enabled {
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
		deps.OppStore = postgres.NewOpportunityStore(pool)
		deps.OrderStore = postgres.NewOrderStore(pool)
	}

	// --- Redis quote cache and signal bus ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.QuoteCache = redis.NewQuoteCache(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	// --- S3 archiver ---
	if cfg.Archive.Enabled {
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

		retention := time.Duration(cfg.Archive.RetentionDays) * 24 * time.Hour
		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			deps.OppStore, deps.OrderStore,
			retention, logger,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	}

	return deps, cleanup, nil
}

// buildRegistry constructs one client per enabled venue, resolving API
// secrets from plaintext config or encrypted secret files.
func buildRegistry(cfg *config.Config) (*venue.Registry, error) {
	var clients []venue.Client

	for _, name := range cfg.EnabledVenues() {
		vc := cfg.Venues[name]

		secret := ""
		if vc.Authenticated() {
			var err error
			secret, err = crypto.LoadSecret(crypto.SecretConfig{
				RawSecret:           vc.ApiSecret,
				EncryptedSecretPath: vc.EncryptedSecretPath,
				Password:            vc.SecretPassword,
			})
			if err != nil {
				return nil, fmt.Errorf("%s: load secret: %w", name, err)
			}
		}

		switch name {
		case "binance":
			clients = append(clients, venue.NewBinance(venue.BinanceConfig{
				BaseURL: vc.BaseURL,
				ApiKey:  vc.ApiKey,
				Secret:  secret,
			}))
		case "okx":
			clients = append(clients, venue.NewOKX(venue.OKXConfig{
				BaseURL:    vc.BaseURL,
				ApiKey:     vc.ApiKey,
				Secret:     secret,
				Passphrase: vc.ApiPassphrase,
			}))
		case "coinbase":
			clients = append(clients, venue.NewCoinbase(venue.CoinbaseConfig{
				BaseURL:    vc.BaseURL,
				ApiKey:     vc.ApiKey,
				Secret:     secret,
				Passphrase: vc.ApiPassphrase,
			}))
		default:
			return nil, fmt.Errorf("no client implementation for venue %q", name)
		}
	}

	return venue.NewRegistry(clients...), nil
}
