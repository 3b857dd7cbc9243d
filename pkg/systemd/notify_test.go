package systemd

import (
	"context"
	"testing"
	"time"
)

func TestNoopOutsideSystemd(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	t.Setenv("WATCHDOG_USEC", "")

	if sent, err := Ready(); sent || err != nil {
		t.Fatalf("Ready sent=%v err=%v", sent, err)
	}
	if d := WatchdogInterval(); d != 0 {
		t.Fatalf("watchdog interval=%v", d)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		Watchdog(ctx, nil)
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatalf("Watchdog should return when disabled")
	}
}
