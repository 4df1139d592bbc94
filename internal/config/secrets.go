package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so credentials are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	// Venues
	if cfg.Venues != nil {
		out.Venues = make(map[string]VenueConfig, len(cfg.Venues))
		for name, vc := range cfg.Venues {
			redact(&vc.ApiKey)
			redact(&vc.ApiSecret)
			redact(&vc.ApiPassphrase)
			redact(&vc.SecretPassword)
			out.Venues[name] = vc
		}
	}

	// Postgres
	out.Postgres = cfg.Postgres
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	// Redis
	out.Redis = cfg.Redis
	redact(&out.Redis.Password)

	// S3
	out.S3 = cfg.S3
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	// Notify
	out.Notify = cfg.Notify
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices and maps so callers cannot mutate the original through the
	// redacted copy.
	if cfg.Instruments != nil {
		out.Instruments = make([]string, len(cfg.Instruments))
		copy(out.Instruments, cfg.Instruments)
	}
	if cfg.Notify.Events != nil {
		out.Notify.Events = make([]string, len(cfg.Notify.Events))
		copy(out.Notify.Events, cfg.Notify.Events)
	}
	if cfg.Fees.Taker != nil {
		out.Fees.Taker = make(map[string]float64, len(cfg.Fees.Taker))
		for k, v := range cfg.Fees.Taker {
			out.Fees.Taker[k] = v
		}
	}
	if cfg.Fees.Transfer != nil {
		out.Fees.Transfer = make(map[string]float64, len(cfg.Fees.Transfer))
		for k, v := range cfg.Fees.Transfer {
			out.Fees.Transfer[k] = v
		}
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
