// Package media serves /tts and /tr. Each handler posts a status message,
// makes one service call and then replaces or removes the status.
package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"evara/internal/services/speech"
	"evara/internal/services/translate"
	kit "evara/internal/transport"
	"evara/internal/transport/telegram/router"
	logx "evara/pkg/logx"
)

type Config struct {
	// TempDir holds synthesized audio until it is uploaded. Empty means
	// os.TempDir().
	TempDir string
	// Target is the translation output language code, shown in replies.
	Target     string
	TTSTimeout time.Duration
	TRTimeout  time.Duration
}

type Plugin struct {
	cfg   Config
	voice speech.Synthesizer
	tr    translate.Translator
	log   logx.Logger
}

func New(cfg Config, voice speech.Synthesizer, tr translate.Translator, log logx.Logger) *Plugin {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Target == "" {
		cfg.Target = "en"
	}
	if cfg.TTSTimeout <= 0 {
		cfg.TTSTimeout = 2 * time.Minute
	}
	if cfg.TRTimeout <= 0 {
		cfg.TRTimeout = time.Minute
	}
	return &Plugin{cfg: cfg, voice: voice, tr: tr, log: log.With(logx.String("plugin", "media"))}
}

func (p *Plugin) Name() string { return "media" }

// staleAge is how old a leftover audio file must be before Start removes it.
const staleAge = time.Hour

// Start removes audio files a previous process left behind.
func (p *Plugin) Start(context.Context) error {
	dir := p.cfg.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	matches, err := filepath.Glob(filepath.Join(dir, "tts_*.mp3"))
	if err != nil {
		return err
	}
	removed := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || time.Since(info.ModTime()) < staleAge {
			continue
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
	}
	if removed > 0 {
		p.log.Info("removed stale audio files", logx.Int("count", removed), logx.String("dir", dir))
	}
	return nil
}

func (p *Plugin) Stop(context.Context) error { return nil }

func (p *Plugin) Commands() []router.Command {
	return []router.Command{
		{
			Name:        "tts",
			Description: "Convert text to speech",
			Usage:       "/tts <text> (or reply to a message)",
			Menu:        true,
			Timeout:     p.cfg.TTSTimeout,
			Handle:      p.handleTTS,
		},
		{
			Name:        "tr",
			Description: "Translate a replied message to English",
			Usage:       "/tr (reply to a message)",
			Menu:        true,
			Timeout:     p.cfg.TRTimeout,
			Handle:      p.handleTranslate,
		},
	}
}

// failStatus replaces the status message with the error.
func failStatus(ctx context.Context, req *router.Request, status kit.MessageRef, err error) error {
	req.Logger.Warn("media call failed", logx.Err(err))
	if eerr := req.Adapter.EditText(ctx, status, "Error: "+err.Error(), nil); eerr != nil {
		req.Logger.Debug("status edit failed", logx.Err(eerr))
	}
	return nil
}

// tempFile creates the audio file in dir, falling back to the system
// default when dir cannot be used.
func tempFile(dir string) (*os.File, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o700); err == nil {
			return os.CreateTemp(dir, "tts_*.mp3")
		}
	}
	return os.CreateTemp("", "tts_*.mp3")
}

func trimmed(s string) string { return strings.TrimSpace(s) }
