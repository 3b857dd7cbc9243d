package config

import (
	"reflect"

	logx "evara/pkg/logx"
)

// Change describes what a reload touched.
type Change struct {
	// Sections that changed and apply live.
	Live []string
	// Sections that changed but only take effect after a restart.
	Restart []string
	// Fields is a safe summary for logging (no secrets).
	Fields []logx.Field
}

func (c Change) Empty() bool { return len(c.Live) == 0 && len(c.Restart) == 0 }

// SummarizeChange compares two configs section by section.
func SummarizeChange(oldCfg, newCfg *Config) Change {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var ch Change
	live := func(name string, a, b any, fields ...logx.Field) {
		if !reflect.DeepEqual(a, b) {
			ch.Live = append(ch.Live, name)
			ch.Fields = append(ch.Fields, fields...)
		}
	}
	restart := func(name string, a, b any) {
		if !reflect.DeepEqual(a, b) {
			ch.Restart = append(ch.Restart, name)
		}
	}

	live("logging", oldCfg.Logging, newCfg.Logging,
		logx.String("logging.level", newCfg.Logging.Level),
		logx.Bool("logging.alerts", newCfg.Logging.Alerts.Enabled))
	live("broadcast", oldCfg.Broadcast, newCfg.Broadcast,
		logx.String("broadcast.pause", newCfg.Broadcast.Pause))
	live("ratelimit", oldCfg.RateLimit.AskPerMinute, newCfg.RateLimit.AskPerMinute,
		logx.Int("ratelimit.ask_per_minute", newCfg.RateLimit.AskPerMinute))
	live("digest", oldCfg.Digest, newCfg.Digest,
		logx.String("digest.schedule", newCfg.Digest.Schedule))
	live("telegram.owners", oldCfg.Telegram.OwnerUserIDs, newCfg.Telegram.OwnerUserIDs,
		logx.Int("telegram.owner_count", len(newCfg.Telegram.OwnerUserIDs)))

	live("telegram.links", telegramLinks(oldCfg.Telegram), telegramLinks(newCfg.Telegram))
	live("health.pprof", pprofOf(oldCfg.Health), pprofOf(newCfg.Health),
		logx.Bool("health.pprof", newCfg.Health.Pprof))

	restart("telegram", telegramConn(oldCfg.Telegram), telegramConn(newCfg.Telegram))
	restart("assistant", oldCfg.Assistant, newCfg.Assistant)
	restart("speech", oldCfg.Speech, newCfg.Speech)
	restart("translate", oldCfg.Translate, newCfg.Translate)
	restart("storage", oldCfg.Storage, newCfg.Storage)
	restart("health", oldCfg.Health.Port, newCfg.Health.Port)
	return ch
}

// telegramConn is the part of the telegram section baked into the bot
// client.
func telegramConn(t TelegramConfig) [4]string {
	return [4]string{t.Token, t.APIID, t.APIHash, t.PollTimeout}
}

func telegramLinks(t TelegramConfig) [3]string {
	return [3]string{t.IntroImage, t.SupportURL, t.UpdatesURL}
}

func pprofOf(h HealthConfig) HealthConfig {
	h.Port = 0
	return h
}
