package digest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	logx "evara/pkg/logx"
)

func TestNormalizeSchedule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "", want: ""},
		{raw: "0 9 * * *", want: "0 9 * * *"},
		{raw: " @daily ", want: "@daily"},
		{raw: "@every 6h", want: "@every 6h"},
		{raw: "21:30", want: "30 21 * * *"},
		{raw: "25:00", wantErr: true},
		{raw: "soon", wantErr: true},
	}
	for _, tt := range tests {
		got, err := normalizeSchedule(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Fatalf("normalizeSchedule(%q) err=%v", tt.raw, err)
		}
		if !tt.wantErr && got != tt.want {
			t.Fatalf("normalizeSchedule(%q)=%q want %q", tt.raw, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	s := New(Config{}, func(context.Context) error { return nil }, logx.Nop())
	for _, ok := range []string{"", "*/5 * * * *", "0 */5 * * * *", "@hourly", "08:00"} {
		if err := s.Validate(ok); err != nil {
			t.Fatalf("Validate(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"* * *", "@fortnightly", "8am"} {
		if err := s.Validate(bad); err == nil {
			t.Fatalf("Validate(%q) should fail", bad)
		}
	}
}

func TestStartDisabledAndApply(t *testing.T) {
	t.Parallel()

	s := New(Config{}, func(context.Context) error { return nil }, logx.Nop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop(context.Background())
	if !s.Next().IsZero() {
		t.Fatalf("disabled digest has a next run")
	}

	if err := s.Apply(Config{Schedule: "@every 1h", Timezone: "UTC"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	next := s.Next()
	if next.IsZero() || time.Until(next) > time.Hour+time.Second {
		t.Fatalf("next=%s", next)
	}

	if err := s.Apply(Config{Schedule: "nope"}); err == nil {
		t.Fatalf("Apply with a bad schedule should fail")
	}
}

func TestFireSkipsOverlap(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	release := make(chan struct{})
	entered := make(chan struct{})
	s := New(Config{}, func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		return nil
	}, logx.Nop())

	go s.fire(context.Background(), 0)
	<-entered
	s.fire(context.Background(), 0)
	close(release)
	s.Stop(context.Background())

	if got := calls.Load(); got != 1 {
		t.Fatalf("calls=%d want 1", got)
	}
}

func TestFireAppliesTimeoutAndRecovers(t *testing.T) {
	t.Parallel()

	s := New(Config{}, func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("no deadline")
		}
		panic("boom")
	}, logx.Nop())
	s.fire(context.Background(), time.Second)
	if s.running.Load() {
		t.Fatalf("running flag left set after panic")
	}
}
