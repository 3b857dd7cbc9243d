package config

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func envFrom(kv map[string]string) *viper.Viper {
	v := viper.New()
	v.SetDefault(EnvOwnerID, DefaultOwnerID)
	v.SetDefault(EnvPort, DefaultPort)
	for k, val := range kv {
		v.Set(k, val)
	}
	return v
}

func TestParseDefaultsOnly(t *testing.T) {
	t.Parallel()

	m := NewConfigManager("", envFrom(map[string]string{EnvBotToken: "123:abc"}))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token=%q", cfg.Telegram.Token)
	}
	if !slices.Equal(cfg.Telegram.OwnerUserIDs, []int64{DefaultOwnerID}) {
		t.Fatalf("owners=%v", cfg.Telegram.OwnerUserIDs)
	}
	if cfg.Health.Port != DefaultPort {
		t.Fatalf("port=%d", cfg.Health.Port)
	}
	if cfg.Assistant.Model != "llama-3.3-70b-versatile" {
		t.Fatalf("model=%q", cfg.Assistant.Model)
	}
	if cfg.Storage.Driver != DriverNone {
		t.Fatalf("driver=%q want none without a url", cfg.Storage.Driver)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "evara.yaml")
	yml := `
telegram:
  owner_user_ids: [1, 2]
storage:
  driver: sqlite
  path: ` + filepath.Join(dir, "x.db") + `
broadcast:
  pause: 1s
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewConfigManager(path, envFrom(map[string]string{
		EnvBotToken: "t",
		EnvOwnerID:  "2",
		EnvPort:     "9090",
	}))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !slices.Equal(cfg.Telegram.OwnerUserIDs, []int64{2, 1}) {
		t.Fatalf("owners=%v want env owner first", cfg.Telegram.OwnerUserIDs)
	}
	if cfg.Health.Port != 9090 {
		t.Fatalf("port=%d", cfg.Health.Port)
	}
	if cfg.Storage.Driver != DriverSQLite {
		t.Fatalf("driver=%q", cfg.Storage.Driver)
	}
	if got := DurationOr(cfg.Broadcast.Pause, 0); got != time.Second {
		t.Fatalf("pause=%v", got)
	}
	if m.Get() != cfg {
		t.Fatalf("Load should commit")
	}
}

func TestMongoURLSelectsMongo(t *testing.T) {
	t.Parallel()

	m := NewConfigManager("", envFrom(map[string]string{EnvBotToken: "t", EnvMongoURL: "mongodb://localhost:27017"}))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.Driver != DriverMongo || cfg.Storage.Database != "EvaraBotDB" {
		t.Fatalf("storage=%+v", cfg.Storage)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "evara.json")
	if err := os.WriteFile(path, []byte(`{"telegram":{"token":"nope"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewConfigManager(path, nil).Parse(); err == nil {
		t.Fatalf("token in the settings file must be rejected")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.Storage.Driver = "cassandra"
	cfg.Broadcast.Pause = "soon"
	err := Validate(cfg)
	if err == nil {
		t.Fatalf("expected errors")
	}
	for _, want := range []string{"BOT_TOKEN", "cassandra", "broadcast.pause"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %q", err, want)
		}
	}
}

func TestSummarizeChange(t *testing.T) {
	t.Parallel()

	a := Defaults()
	b := Defaults()
	b.Broadcast.Pause = "1s"
	b.Storage.Path = "/tmp/other.db"

	ch := SummarizeChange(a, b)
	if !slices.Equal(ch.Live, []string{"broadcast"}) {
		t.Fatalf("live=%v", ch.Live)
	}
	if !slices.Equal(ch.Restart, []string{"storage"}) {
		t.Fatalf("restart=%v", ch.Restart)
	}
	if SummarizeChange(a, Defaults()).Empty() != true {
		t.Fatalf("identical configs should be empty")
	}
}

func TestSummarizeChangeSplitsTelegramAndHealth(t *testing.T) {
	t.Parallel()

	a := Defaults()
	b := Defaults()
	b.Telegram.UpdatesURL = "https://t.me/other"
	b.Telegram.PollTimeout = "30s"
	b.Health.Pprof = true

	ch := SummarizeChange(a, b)
	if !slices.Equal(ch.Live, []string{"telegram.links", "health.pprof"}) {
		t.Fatalf("live=%v", ch.Live)
	}
	if !slices.Equal(ch.Restart, []string{"telegram"}) {
		t.Fatalf("restart=%v", ch.Restart)
	}
}

func TestReloadPublishesToSubscribers(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "evara.yaml")
	if err := os.WriteFile(path, []byte("broadcast:\n  pause: 1s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := NewConfigManager(path, envFrom(map[string]string{EnvBotToken: "t"}))
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	sub := m.Subscribe(1)

	if err := os.WriteFile(path, []byte("broadcast:\n  pause: 2s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m.reload(context.Background())

	select {
	case cfg := <-sub:
		if cfg.Broadcast.Pause != "2s" {
			t.Fatalf("pause=%q", cfg.Broadcast.Pause)
		}
	default:
		t.Fatalf("no config published")
	}

	// same content: nothing new
	m.reload(context.Background())
	select {
	case <-sub:
		t.Fatalf("unchanged config should not publish")
	default:
	}
}
