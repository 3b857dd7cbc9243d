package logx

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestFormatAlertSortsFields(t *testing.T) {
	t.Parallel()

	got := formatAlert([]byte(`{"level":"warn","message":"store down","zeta":1,"comp":"membership","time":"x"}` + "\n"))
	want := "[WARN] store down\n- comp=membership\n- zeta=1"
	if got != want {
		t.Fatalf("formatAlert=%q want %q", got, want)
	}
}

func TestFormatAlertNonJSON(t *testing.T) {
	t.Parallel()

	got := formatAlert([]byte("  plain line \n"))
	if got != "plain line" {
		t.Fatalf("got %q", got)
	}
}

func TestClip(t *testing.T) {
	t.Parallel()

	if got := clip("abcdefghij", 6); got != "abc..." {
		t.Fatalf("clip=%q", got)
	}
	if got := clip("abc", 6); got != "abc" {
		t.Fatalf("clip=%q", got)
	}
}

type recordingSender struct {
	mu    sync.Mutex
	chats []int64
	texts []string
}

func (r *recordingSender) SendAlert(_ context.Context, chatID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats = append(r.chats, chatID)
	r.texts = append(r.texts, text)
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.texts)
}

func TestServiceAlertsRespectMinLevel(t *testing.T) {
	sender := &recordingSender{}
	svc, log := NewService(Config{
		Level:  "debug",
		Alerts: AlertConfig{Enabled: true, ChatID: 42, MinLevel: "warn", RatePerSec: 10},
	}, sender)
	defer svc.Close()

	log.Info("routine")
	log.Warn("broadcast partially failed", String("comp", "broadcast"))

	deadline := time.Now().Add(2 * time.Second)
	for sender.count() < 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.texts) != 1 {
		t.Fatalf("alerts=%d want 1: %v", len(sender.texts), sender.texts)
	}
	if sender.chats[0] != 42 || !strings.Contains(sender.texts[0], "broadcast partially failed") {
		t.Fatalf("unexpected alert %d %q", sender.chats[0], sender.texts[0])
	}
}

func TestZeroLoggerIsSafe(t *testing.T) {
	t.Parallel()

	var l Logger
	if !l.IsZero() {
		t.Fatalf("zero logger should report IsZero")
	}
	l.Info("dropped", Int("n", 1))
	l.With(String("k", "v")).Error("dropped too")
}
