package config

// Config is the full runtime configuration.
//
// Values come from Defaults, then the optional settings file, then the
// process environment. Fields tagged json:"-" are environment-only.
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Assistant AssistantConfig `json:"assistant"`
	Speech    SpeechConfig    `json:"speech"`
	Translate TranslateConfig `json:"translate"`
	Storage   StorageConfig   `json:"storage"`
	Broadcast BroadcastConfig `json:"broadcast"`
	RateLimit RateLimitConfig `json:"ratelimit"`
	Health    HealthConfig    `json:"health"`
	Digest    DigestConfig    `json:"digest"`
	Logging   LoggingConfig   `json:"logging"`
}

type TelegramConfig struct {
	Token string `json:"-"`
	// APIID and APIHash are accepted for compatibility with MTProto
	// deployments. The Bot API transport does not use them.
	APIID   string `json:"-"`
	APIHash string `json:"-"`

	OwnerUserIDs []int64 `json:"owner_user_ids,omitempty"`
	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`
	IntroImage  string `json:"intro_image,omitempty"`
	SupportURL  string `json:"support_url,omitempty"`
	UpdatesURL  string `json:"updates_url,omitempty"`
}

type AssistantConfig struct {
	APIKey       string `json:"-"`
	BaseURL      string `json:"base_url,omitempty"`
	Model        string `json:"model,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Timeout      string `json:"timeout,omitempty"`
}

type SpeechConfig struct {
	Endpoint string `json:"endpoint,omitempty"`
	Language string `json:"language,omitempty"`
	TempDir  string `json:"temp_dir,omitempty"`
	Timeout  string `json:"timeout,omitempty"`
}

type TranslateConfig struct {
	Endpoint string `json:"endpoint,omitempty"`
	Source   string `json:"source,omitempty"`
	Target   string `json:"target,omitempty"`
	Timeout  string `json:"timeout,omitempty"`
}

// StorageConfig selects the membership backend.
//
// Example:
//
//	storage:
//	  driver: sqlite
//	  path: ./evara.db
type StorageConfig struct {
	// Driver is one of mongo, sqlite, postgres, memory, none. Empty picks
	// mongo when a URL is present, otherwise none.
	Driver string `json:"driver,omitempty"`
	// URL is the mongo or postgres connection string. MONGO_URL wins.
	URL         string `json:"url,omitempty"`
	Database    string `json:"database,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
	// ConnectTimeout bounds the startup connection check.
	ConnectTimeout string `json:"connect_timeout,omitempty"`
}

type BroadcastConfig struct {
	// Pause between successful deliveries.
	Pause string `json:"pause,omitempty"`
}

// RateLimitConfig throttles /ask per user. AskPerMinute 0 disables it.
type RateLimitConfig struct {
	AskPerMinute int    `json:"ask_per_minute,omitempty"`
	RedisURL     string `json:"-"`
}

type HealthConfig struct {
	Port int `json:"-"`
	// Pprof mounts net/http/pprof under /debug/pprof/. Set PprofToken when
	// the port is reachable from outside.
	Pprof      bool   `json:"pprof,omitempty"`
	PprofToken string `json:"pprof_token,omitempty"`
}

// DigestConfig schedules a stats message to the owners. An empty schedule
// disables it.
type DigestConfig struct {
	Schedule string `json:"schedule,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console bool          `json:"console"`
	File    LoggingFile   `json:"file"`
	Alerts  LoggingAlerts `json:"alerts"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// LoggingAlerts mirrors warnings to the first owner's private chat.
type LoggingAlerts struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}
