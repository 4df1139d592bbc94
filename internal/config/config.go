// Package config defines the top-level configuration for arbscan and provides
// validation helpers.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rfyang/arbscan/internal/domain"
)

// knownVenues is the closed set of venue identifiers the process can dispatch
// to. Venue-role lookups (authenticated or not) go through configuration, not
// string checks scattered through the trading logic.
var knownVenues = map[string]bool{
	"binance":  true,
	"okx":      true,
	"coinbase": true,
}

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBSCAN_* environment variables.
type Config struct {
	Instruments []string               `toml:"instruments"`
	Venues      map[string]VenueConfig `toml:"venues"`
	Fees        FeesConfig             `toml:"fees"`
	Detector    DetectorConfig         `toml:"detector"`
	Executor    ExecutorConfig         `toml:"executor"`
	Scheduler   SchedulerConfig        `toml:"scheduler"`
	Postgres    PostgresConfig         `toml:"postgres"`
	Redis       RedisConfig            `toml:"redis"`
	S3          S3Config               `toml:"s3"`
	Archive     ArchiveConfig          `toml:"archive"`
	Notify      NotifyConfig           `toml:"notify"`
	Mode        string                 `toml:"mode"`
	LogLevel    string                 `toml:"log_level"`
}

// VenueConfig holds per-venue connectivity and credentials. A venue is
// authenticated when it has both an API key and a resolvable secret.
type VenueConfig struct {
	Enabled             bool   `toml:"enabled"`
	BaseURL             string `toml:"base_url"`
	ApiKey              string `toml:"api_key"`
	ApiSecret           string `toml:"api_secret"`
	ApiPassphrase       string `toml:"api_passphrase"`
	EncryptedSecretPath string `toml:"encrypted_secret_path"`
	SecretPassword      string `toml:"secret_password"`
}

// Authenticated reports whether the venue carries trading credentials.
func (v VenueConfig) Authenticated() bool {
	return v.ApiKey != "" && (v.ApiSecret != "" || v.EncryptedSecretPath != "")
}

// FeesConfig holds the static fee tables, keyed by venue name. Both tables
// must carry an entry for every enabled venue; a missing entry is a startup
// validation failure, never an implicit zero.
type FeesConfig struct {
	Taker    map[string]float64 `toml:"taker"`
	Transfer map[string]float64 `toml:"transfer"`
}

// DetectorConfig holds opportunity-detection thresholds.
type DetectorConfig struct {
	// MinProfit is the minimum net profit fraction for an opportunity to be
	// emitted, e.g. 0.005 for 0.5%.
	MinProfit float64 `toml:"min_profit"`
	// SlippageBuffer is a fixed profit deduction reserving against quote
	// staleness between detection and execution.
	SlippageBuffer float64 `toml:"slippage_buffer"`
}

// ExecutorConfig holds trade-sizing and safety parameters.
type ExecutorConfig struct {
	// NotionalCap is the per-trade ceiling in quote currency for buy legs.
	NotionalCap float64 `toml:"notional_cap"`
	// MaxSellBase is the conservative ceiling in base currency for sell legs.
	MaxSellBase float64 `toml:"max_sell_base"`
	// DryRun logs sizing decisions without placing orders.
	DryRun bool `toml:"dry_run"`
}

// SchedulerConfig holds the polling loop parameters.
type SchedulerConfig struct {
	Interval duration `toml:"interval"`
}

// PostgresConfig holds PostgreSQL connection parameters for history stores.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
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

// RedisConfig holds Redis connection parameters for the quote cache and bus.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for cold archival.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls cold-storage archival of old history rows.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5s", "1m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values. These
// match the values in config.example.toml and the fee tiers the original
// deployment used.
func Defaults() Config {
	return Config{
		Instruments: []string{"BTC/USDT", "ETH/USDT"},
		Venues: map[string]VenueConfig{
			"binance":  {Enabled: true, BaseURL: "https://api.binance.com"},
			"okx":      {Enabled: true, BaseURL: "https://www.okx.com"},
			"coinbase": {Enabled: true, BaseURL: "https://api.exchange.coinbase.com"},
		},
		Fees: FeesConfig{
			Taker: map[string]float64{
				"binance":  0.001,
				"okx":      0.0035,
				"coinbase": 0.012,
			},
			Transfer: map[string]float64{
				"binance":  0.0002,
				"okx":      0.0005,
				"coinbase": 0.001,
			},
		},
		Detector: DetectorConfig{
			MinProfit:      0.005,
			SlippageBuffer: 0.001,
		},
		Executor: ExecutorConfig{
			NotionalCap: 100.0,
			MaxSellBase: 0.001,
			DryRun:      false,
		},
		Scheduler: SchedulerConfig{
			Interval: duration{5 * time.Second},
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "arbscan",
			User:          "arbscan",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "",
			Region:         "us-east-1",
			Bucket:         "arbscan-history",
			UseSSL:         true,
			ForcePathStyle: false,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		Notify: NotifyConfig{
			Events: []string{"opportunity", "order_placed", "order_failed"},
		},
		Mode:     "monitor",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"monitor": true,
	"trade":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for invalid or missing values and returns a combined
// error describing every problem found. A venue enabled for trading without
// entries in both fee tables is rejected here rather than silently treated as
// fee-free, which would misdetect profitability.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: monitor, trade)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Instruments
	if len(c.Instruments) == 0 {
		errs = append(errs, "instruments: at least one BASE/QUOTE pair is required")
	}
	for _, s := range c.Instruments {
		if _, err := domain.ParseInstrument(s); err != nil {
			errs = append(errs, fmt.Sprintf("instruments: %v", err))
		}
	}

	// Venues
	enabled := c.EnabledVenues()
	if len(enabled) < 2 {
		errs = append(errs, fmt.Sprintf("venues: at least two enabled venues are required for arbitrage, got %d", len(enabled)))
	}
	for name, vc := range c.Venues {
		if !knownVenues[name] {
			errs = append(errs, fmt.Sprintf("venues: unknown venue %q (valid: binance, okx, coinbase)", name))
			continue
		}
		if !vc.Enabled {
			continue
		}
		if vc.BaseURL == "" {
			errs = append(errs, fmt.Sprintf("venues: %s: base_url must not be empty", name))
		}
		if vc.EncryptedSecretPath != "" && vc.SecretPassword == "" {
			errs = append(errs, fmt.Sprintf("venues: %s: secret_password is required when encrypted_secret_path is set", name))
		}
		if vc.ApiSecret != "" && vc.EncryptedSecretPath != "" {
			errs = append(errs, fmt.Sprintf("venues: %s: api_secret and encrypted_secret_path are mutually exclusive", name))
		}
		// Fee-table completeness is a hard failure: a missing entry must
		// never be defaulted to zero.
		if _, ok := c.Fees.Taker[name]; !ok {
			errs = append(errs, fmt.Sprintf("fees: taker fee for enabled venue %q is missing", name))
		}
		if _, ok := c.Fees.Transfer[name]; !ok {
			errs = append(errs, fmt.Sprintf("fees: transfer fee for enabled venue %q is missing", name))
		}
	}
	for name, fee := range c.Fees.Taker {
		if fee < 0 || fee >= 1 {
			errs = append(errs, fmt.Sprintf("fees: taker fee for %q must be in [0, 1), got %v", name, fee))
		}
	}
	for name, fee := range c.Fees.Transfer {
		if fee < 0 || fee >= 1 {
			errs = append(errs, fmt.Sprintf("fees: transfer fee for %q must be in [0, 1), got %v", name, fee))
		}
	}

	// Trade mode needs at least one authenticated venue to act on.
	if strings.ToLower(c.Mode) == "trade" {
		anyAuth := false
		for _, vc := range c.Venues {
			if vc.Enabled && vc.Authenticated() {
				anyAuth = true
				break
			}
		}
		if !anyAuth {
			errs = append(errs, "venues: trade mode requires at least one venue with api_key and api_secret")
		}
	}

	// Detector
	if c.Detector.MinProfit <= 0 {
		errs = append(errs, "detector: min_profit must be > 0")
	}
	if c.Detector.SlippageBuffer < 0 {
		errs = append(errs, "detector: slippage_buffer must be >= 0")
	}

	// Executor
	if c.Executor.NotionalCap <= 0 {
		errs = append(errs, "executor: notional_cap must be > 0")
	}
	if c.Executor.MaxSellBase <= 0 {
		errs = append(errs, "executor: max_sell_base must be > 0")
	}

	// Scheduler
	if c.Scheduler.Interval.Duration <= 0 {
		errs = append(errs, "scheduler: interval must be > 0")
	}

	// Postgres
	if c.Postgres.Enabled {
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
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Archive
	if c.Archive.Enabled {
		if !c.Postgres.Enabled {
			errs = append(errs, "archive: postgres must be enabled to archive history")
		}
		if c.S3.Endpoint == "" && c.S3.Region == "" {
			errs = append(errs, "archive: s3 endpoint or region must be set")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "archive: s3 bucket must not be empty")
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

// EnabledVenues returns the sorted names of enabled venues.
func (c *Config) EnabledVenues() []string {
	names := make([]string, 0, len(c.Venues))
	for name, vc := range c.Venues {
		if vc.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// FeeTable assembles the immutable domain fee table from the validated
// configuration. Call only after Validate has succeeded.
func (c *Config) FeeTable() domain.FeeTable {
	table := make(domain.FeeTable, len(c.Venues))
	for name, vc := range c.Venues {
		if !vc.Enabled {
			continue
		}
		table[name] = domain.VenueConfig{
			Name:          name,
			TakerFee:      c.Fees.Taker[name],
			TransferFee:   c.Fees.Transfer[name],
			Authenticated: vc.Authenticated(),
		}
	}
	return table
}

// ParsedInstruments returns the instrument list as domain values. Call only
// after Validate has succeeded.
func (c *Config) ParsedInstruments() []domain.Instrument {
	out := make([]domain.Instrument, 0, len(c.Instruments))
	for _, s := range c.Instruments {
		inst, err := domain.ParseInstrument(s)
		if err != nil {
			continue
		}
		out = append(out, inst)
	}
	return out
}
