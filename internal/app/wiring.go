package app

import (
	"fmt"
	"strings"
	"time"

	"evara/internal/config"
	"evara/internal/services/assistant"
	"evara/internal/services/broadcast"
	"evara/internal/services/digest"
	"evara/internal/services/health"
	"evara/internal/services/ratelimit"
	"evara/internal/services/speech"
	"evara/internal/services/translate"
	"evara/internal/storage"
	logx "evara/pkg/logx"
	"evara/plugins/home"
	"evara/plugins/media"
	"evara/plugins/owner"
)

// Durations below were checked by config.Validate, so parse errors fall
// back to the defaults.

func mapLogging(cfg *config.Config) logx.Config {
	lc := cfg.Logging
	out := logx.Config{
		Level:   lc.Level,
		Console: lc.Console,
		File:    logx.FileConfig{Enabled: lc.File.Enabled, Path: lc.File.Path},
		Alerts: logx.AlertConfig{
			Enabled:    lc.Alerts.Enabled,
			MinLevel:   lc.Alerts.MinLevel,
			RatePerSec: lc.Alerts.RatePerSec,
		},
	}
	if len(cfg.Telegram.OwnerUserIDs) > 0 {
		out.Alerts.ChatID = cfg.Telegram.OwnerUserIDs[0]
	}
	return out
}

func mapStorage(cfg *config.Config) storage.Config {
	sc := cfg.Storage
	return storage.Config{
		Driver:         sc.Driver,
		URL:            sc.URL,
		Database:       sc.Database,
		Path:           sc.Path,
		BusyTimeout:    config.DurationOr(sc.BusyTimeout, 5*time.Second),
		ConnectTimeout: config.DurationOr(sc.ConnectTimeout, 10*time.Second),
	}
}

func mapAssistant(cfg *config.Config) assistant.Config {
	ac := cfg.Assistant
	return assistant.Config{
		BaseURL:      ac.BaseURL,
		APIKey:       ac.APIKey,
		Model:        ac.Model,
		SystemPrompt: ac.SystemPrompt,
		Timeout:      config.DurationOr(ac.Timeout, 60*time.Second),
	}
}

func mapSpeech(cfg *config.Config) speech.Config {
	return speech.Config{
		Endpoint: cfg.Speech.Endpoint,
		Language: cfg.Speech.Language,
		Timeout:  config.DurationOr(cfg.Speech.Timeout, 30*time.Second),
	}
}

func mapTranslate(cfg *config.Config) translate.Config {
	tc := cfg.Translate
	return translate.Config{
		Endpoint: tc.Endpoint,
		Source:   tc.Source,
		Target:   tc.Target,
		Timeout:  config.DurationOr(tc.Timeout, 20*time.Second),
	}
}

func mapMedia(cfg *config.Config) media.Config {
	// Handler budgets leave room for the status edits around the call.
	return media.Config{
		TempDir:    cfg.Speech.TempDir,
		Target:     cfg.Translate.Target,
		TTSTimeout: config.DurationOr(cfg.Speech.Timeout, 30*time.Second) + 30*time.Second,
		TRTimeout:  config.DurationOr(cfg.Translate.Timeout, 20*time.Second) + 20*time.Second,
	}
}

func mapBroadcast(cfg *config.Config) broadcast.Config {
	return broadcast.Config{Pause: config.DurationOr(cfg.Broadcast.Pause, 500*time.Millisecond)}
}

func mapRateLimit(cfg *config.Config) ratelimit.Config {
	return ratelimit.Config{PerMinute: cfg.RateLimit.AskPerMinute, RedisURL: cfg.RateLimit.RedisURL}
}

func mapHealth(cfg *config.Config) health.Config {
	return health.Config{
		Addr:       fmt.Sprintf(":%d", cfg.Health.Port),
		Pprof:      cfg.Health.Pprof,
		PprofToken: cfg.Health.PprofToken,
	}
}

func mapDigest(cfg *config.Config) digest.Config {
	return digest.Config{
		Schedule: strings.TrimSpace(cfg.Digest.Schedule),
		Timezone: strings.TrimSpace(cfg.Digest.Timezone),
		Timeout:  time.Minute,
	}
}

func mapHome(cfg *config.Config) home.Config {
	tc := cfg.Telegram
	cfgOut := home.Config{IntroImage: tc.IntroImage, SupportURL: tc.SupportURL, UpdatesURL: tc.UpdatesURL}
	if len(tc.OwnerUserIDs) > 0 {
		cfgOut.DeveloperID = tc.OwnerUserIDs[0]
	}
	return cfgOut
}

func mapOwner(cfg *config.Config) owner.Config {
	oc := owner.Config{UpdatesURL: cfg.Telegram.UpdatesURL}
	if tz := strings.TrimSpace(cfg.Digest.Timezone); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			oc.Location = loc
		}
	}
	return oc
}
