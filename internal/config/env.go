package config

import (
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// Environment variable names.
const (
	EnvBotToken   = "BOT_TOKEN"
	EnvAPIID      = "API_ID"
	EnvAPIHash    = "API_HASH"
	EnvGroqKey    = "GROQ_API_KEY"
	EnvMongoURL   = "MONGO_URL"
	EnvOwnerID    = "OWNER_ID"
	EnvPort       = "PORT"
	EnvRedisURL   = "REDIS_URL"
	EnvLogLevel   = "LOG_LEVEL"
	EnvConfigPath = "EVARA_CONFIG"
)

// NewEnv returns a viper instance reading the process environment with the
// literal fallbacks the bot has always used.
func NewEnv() *viper.Viper {
	v := viper.New()
	v.SetDefault(EnvOwnerID, DefaultOwnerID)
	v.SetDefault(EnvPort, DefaultPort)
	v.AutomaticEnv()
	return v
}

// ApplyEnv overlays environment values onto cfg. Non-empty environment
// values always win over the settings file.
func ApplyEnv(cfg *Config, v *viper.Viper) {
	if v == nil {
		return
	}
	setStr := func(dst *string, key string) {
		if s := strings.TrimSpace(v.GetString(key)); s != "" {
			*dst = s
		}
	}

	setStr(&cfg.Telegram.Token, EnvBotToken)
	setStr(&cfg.Telegram.APIID, EnvAPIID)
	setStr(&cfg.Telegram.APIHash, EnvAPIHash)
	setStr(&cfg.Assistant.APIKey, EnvGroqKey)
	setStr(&cfg.Storage.URL, EnvMongoURL)
	setStr(&cfg.RateLimit.RedisURL, EnvRedisURL)
	setStr(&cfg.Logging.Level, EnvLogLevel)

	if v.GetString(EnvMongoURL) != "" && cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverMongo
	}

	if port := v.GetInt(EnvPort); port > 0 {
		cfg.Health.Port = port
	}

	// The env owner (or its default) is always the primary owner.
	if owner := v.GetInt64(EnvOwnerID); owner != 0 {
		rest := slices.DeleteFunc(slices.Clone(cfg.Telegram.OwnerUserIDs), func(id int64) bool { return id == owner })
		cfg.Telegram.OwnerUserIDs = append([]int64{owner}, rest...)
	}
}
