package config

const (
	DefaultOwnerID      int64 = 8071471652
	DefaultPort               = 8080
	DefaultModel              = "llama-3.3-70b-versatile"
	DefaultAssistantURL       = "https://api.groq.com/openai/v1"
	DefaultSystemPrompt       = "You are Evara, a helpful AI assistant. Keep answers concise and friendly."
	DefaultIntroImage         = "https://iili.io/KLcFyrP.jpg"
	DefaultDatabase           = "EvaraBotDB"
)

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Telegram: TelegramConfig{
			PollTimeout: "10s",
			IntroImage:  DefaultIntroImage,
			SupportURL:  "https://t.me/EvaraSupportChat",
			UpdatesURL:  "https://t.me/Evara_Updates",
		},
		Assistant: AssistantConfig{
			BaseURL:      DefaultAssistantURL,
			Model:        DefaultModel,
			SystemPrompt: DefaultSystemPrompt,
			Timeout:      "60s",
		},
		Speech: SpeechConfig{
			Endpoint: "https://translate.google.com/translate_tts",
			Language: "en",
			Timeout:  "30s",
		},
		Translate: TranslateConfig{
			Endpoint: "https://translate.google.com/m",
			Source:   "auto",
			Target:   "en",
			Timeout:  "20s",
		},
		Storage: StorageConfig{
			Database:       DefaultDatabase,
			Path:           "./evara.db",
			BusyTimeout:    "5s",
			ConnectTimeout: "10s",
		},
		Broadcast: BroadcastConfig{Pause: "500ms"},
		Health:    HealthConfig{Port: DefaultPort},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Alerts:  LoggingAlerts{MinLevel: "error", RatePerSec: 1},
		},
	}
}
