package broadcast

import (
	"context"
	"sync"
	"time"

	"evara/internal/transport"
	logx "evara/pkg/logx"
)

type Controller struct {
	mu sync.Mutex

	cfg     Config
	fwd     Forwarder
	members Members
	runs    RunLog
	log     logx.Logger

	state    State
	progress Report

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a controller. runs may be nil.
func New(cfg Config, fwd Forwarder, members Members, runs RunLog, log logx.Logger) *Controller {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Controller{
		cfg:     cfg,
		fwd:     fwd,
		members: members,
		runs:    runs,
		log:     log.With(logx.String("comp", "broadcast")),
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// Apply swaps the config. A running broadcast keeps the pause it started with.
func (c *Controller) Apply(cfg Config) {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{State: c.state, Progress: c.progress}
}

func (c *Controller) begin(src transport.MessageRef) (Config, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Running {
		return Config{}, false
	}
	c.state = Running
	c.progress = Report{Source: src, StartedAt: c.now()}
	return c.cfg, true
}

func (c *Controller) finish(rep Report) {
	c.mu.Lock()
	c.state = Completed
	c.progress = rep
	c.mu.Unlock()
}

func (c *Controller) update(fn func(r *Report)) {
	c.mu.Lock()
	fn(&c.progress)
	c.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
