package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DriverMongo    = "mongo"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverNone     = "none"
)

// Normalize fills derived values. It is idempotent.
func Normalize(cfg *Config) {
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if cfg.Storage.Driver == "" {
		if strings.TrimSpace(cfg.Storage.URL) != "" {
			cfg.Storage.Driver = DriverMongo
		} else {
			cfg.Storage.Driver = DriverNone
		}
	}
	if cfg.Storage.Database == "" {
		cfg.Storage.Database = DefaultDatabase
	}
	if cfg.Health.Port <= 0 {
		cfg.Health.Port = DefaultPort
	}
}

// Validate rejects configs the bot cannot start with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvBotToken))
	}
	switch cfg.Storage.Driver {
	case DriverMongo, DriverPostgres:
		if strings.TrimSpace(cfg.Storage.URL) == "" {
			errs = append(errs, fmt.Errorf("storage.driver=%s needs a url", cfg.Storage.Driver))
		}
	case DriverSQLite, DriverMemory, DriverNone:
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver))
	}
	if cfg.RateLimit.AskPerMinute < 0 {
		errs = append(errs, errors.New("ratelimit.ask_per_minute must be >= 0"))
	}

	durations := map[string]string{
		"telegram.poll_timeout":   cfg.Telegram.PollTimeout,
		"assistant.timeout":       cfg.Assistant.Timeout,
		"speech.timeout":          cfg.Speech.Timeout,
		"translate.timeout":       cfg.Translate.Timeout,
		"storage.busy_timeout":    cfg.Storage.BusyTimeout,
		"storage.connect_timeout": cfg.Storage.ConnectTimeout,
		"broadcast.pause":         cfg.Broadcast.Pause,
	}
	for path, raw := range durations {
		if _, err := ParseDurationField(path, raw); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
