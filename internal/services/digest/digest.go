// Package digest runs a periodic job (the owner statistics report) on a cron
// schedule.
package digest

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	logx "evara/pkg/logx"
)

type Config struct {
	// Schedule is a cron spec (5 or 6 fields), a descriptor such as
	// "@daily" or "@every 6h", or "HH:MM" for once a day. Empty disables.
	Schedule string
	Timezone string
	Timeout  time.Duration
}

type Job func(ctx context.Context) error

type Service struct {
	mu sync.Mutex

	cfg    Config
	job    Job
	log    logx.Logger
	parser cron.Parser

	c       *cron.Cron
	loc     *time.Location
	entry   cron.EntryID
	runCtx  context.Context
	started bool

	running atomic.Bool
	wg      sync.WaitGroup
}

func New(cfg Config, job Job, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg: cfg,
		job: job,
		log: log.With(logx.String("comp", "digest")),
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom |
			cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Validate checks a schedule without registering it.
func (s *Service) Validate(schedule string) error {
	spec, err := normalizeSchedule(schedule)
	if err != nil || spec == "" {
		return err
	}
	_, err = s.parser.Parse(spec)
	return err
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.runCtx = ctx
	s.started = true
	return s.restartLocked()
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.started = false
	s.mu.Unlock()
	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
		}
	}
	done := make(chan struct{})
	go func() { s.wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("digest run still in progress at shutdown")
	}
}

// Apply swaps the schedule. A running service re-registers with the new
// schedule and timezone.
func (s *Service) Apply(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == cfg {
		return nil
	}
	s.cfg = cfg
	if !s.started {
		return nil
	}
	return s.restartLocked()
}

// Next returns the next scheduled run, or zero when disabled.
func (s *Service) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil || s.entry == 0 {
		return time.Time{}
	}
	return s.c.Entry(s.entry).Next
}

func (s *Service) restartLocked() error {
	if s.c != nil {
		<-s.c.Stop().Done()
		s.c = nil
		s.entry = 0
	}
	spec, err := normalizeSchedule(s.cfg.Schedule)
	if err != nil {
		return err
	}
	if spec == "" {
		s.log.Debug("digest disabled")
		return nil
	}

	s.loc = s.loadLocationLocked()
	c := cron.New(cron.WithParser(s.parser), cron.WithLocation(s.loc))
	ctx := s.runCtx
	timeout := s.cfg.Timeout
	id, err := c.AddFunc(spec, func() { s.fire(ctx, timeout) })
	if err != nil {
		return fmt.Errorf("digest schedule %q: %w", s.cfg.Schedule, err)
	}
	s.c, s.entry = c, id
	c.Start()
	s.log.Info("digest scheduled", logx.String("spec", spec), logx.String("tz", s.loc.String()),
		logx.Time("next", c.Entry(id).Next))
	return nil
}

// fire runs the job unless the previous run is still going.
func (s *Service) fire(ctx context.Context, timeout time.Duration) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Debug("digest skipped, previous run still running")
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()
	defer s.running.Store(false)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in digest job", logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	if err := s.job(ctx); err != nil {
		s.log.Warn("digest failed", logx.Err(err), logx.Duration("took", time.Since(start)))
		return
	}
	s.log.Info("digest sent", logx.Duration("took", time.Since(start)))
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

// normalizeSchedule turns "HH:MM" into a daily cron spec and trims the rest.
func normalizeSchedule(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "@") || strings.Contains(raw, " ") {
		return raw, nil
	}
	if strings.Contains(raw, ":") {
		h, m, err := parseHHMM(raw)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d %d * * *", m, h), nil
	}
	return "", fmt.Errorf("invalid schedule %q", raw)
}

func parseHHMM(s string) (hour int, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
