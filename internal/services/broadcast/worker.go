package broadcast

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"evara/internal/transport"
	logx "evara/pkg/logx"
)

type outcome int

const (
	sent outcome = iota
	removed
	skipped
)

type pass struct {
	name   string
	ids    func(ctx context.Context) iter.Seq2[int64, error]
	forget func(ctx context.Context, id int64) error
	// dropOnFailure forgets members on any final failure, not only when
	// unreachable.
	dropOnFailure bool
	tally         func(r *Report) *Tally
}

// Run forwards src to every user and then every group. It blocks until the
// run ends and returns ErrBusy without doing anything when a run is already
// in progress. The report is returned even when the run stopped early.
func (c *Controller) Run(ctx context.Context, src transport.MessageRef) (Report, error) {
	cfg, ok := c.begin(src)
	if !ok {
		return Report{}, ErrBusy
	}
	log := c.log.With(logx.Int64("src_chat", src.ChatID), logx.Int("src_msg", src.MessageID))
	log.Info("broadcast started")

	passes := []pass{
		{name: "users", ids: c.members.AllUsers, forget: c.members.ForgetUser, tally: func(r *Report) *Tally { return &r.Users }},
		{name: "groups", ids: c.members.AllGroups, forget: c.members.ForgetGroup, dropOnFailure: true, tally: func(r *Report) *Tally { return &r.Groups }},
	}

	var runErr error
	for _, p := range passes {
		if err := c.runPass(ctx, cfg, src, p, log); err != nil {
			runErr = err
			break
		}
	}

	c.update(func(r *Report) {
		r.FinishedAt = c.now()
		r.Err = runErr
	})
	rep := c.Status().Progress
	c.finish(rep)

	if runErr != nil {
		log.Warn("broadcast stopped early", logx.Err(runErr),
			logx.Int("users_sent", rep.Users.Sent), logx.Int("groups_sent", rep.Groups.Sent))
	} else {
		log.Info("broadcast completed",
			logx.Int("users_sent", rep.Users.Sent), logx.Int("users_removed", rep.Users.Removed),
			logx.Int("users_skipped", rep.Users.Skipped), logx.Int("groups_sent", rep.Groups.Sent),
			logx.Int("groups_removed", rep.Groups.Removed),
			logx.Duration("took", rep.FinishedAt.Sub(rep.StartedAt)))
	}

	if c.runs != nil {
		// Shutdown may have cancelled ctx; the audit record is still written.
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := c.runs.AppendRun(wctx, rep.record()); err != nil {
			log.Warn("broadcast run not recorded", logx.Err(err))
		}
		cancel()
	}
	return rep, runErr
}

func (c *Controller) runPass(ctx context.Context, cfg Config, src transport.MessageRef, p pass, log logx.Logger) error {
	for id, err := range p.ids(ctx) {
		if err != nil {
			return fmt.Errorf("read %s: %w", p.name, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		res := c.deliver(ctx, cfg, src, id, p.dropOnFailure)
		if res == removed {
			if err := p.forget(ctx, id); err != nil {
				log.Warn("forget failed", logx.String("set", p.name), logx.Int64("id", id), logx.Err(err))
			}
		}
		c.update(func(r *Report) {
			t := p.tally(r)
			switch res {
			case sent:
				t.Sent++
			case removed:
				t.Removed++
			default:
				t.Skipped++
			}
		})
	}
	return nil
}

// deliver forwards src to id with at most one retry after a mandated wait.
func (c *Controller) deliver(ctx context.Context, cfg Config, src transport.MessageRef, id int64, dropOnFailure bool) outcome {
	to := transport.ChatTarget{ChatID: id}

	err := c.fwd.Forward(ctx, to, src)
	if err == nil {
		_ = c.sleep(ctx, cfg.Pause)
		return sent
	}

	kind, wait := transport.ClassifyDelivery(err)
	if kind == transport.DeliveryRateLimited {
		c.log.Debug("rate limited, waiting", logx.Int64("id", id), logx.Duration("wait", wait))
		if serr := c.sleep(ctx, wait); serr != nil {
			return skipped
		}
		err = c.fwd.Forward(ctx, to, src)
		if err == nil {
			return sent
		}
		kind, _ = transport.ClassifyDelivery(err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return skipped
	}
	if kind == transport.DeliveryUnreachable || dropOnFailure {
		c.log.Debug("dropping member", logx.Int64("id", id), logx.String("reason", kind.String()), logx.Err(err))
		return removed
	}
	c.log.Debug("delivery skipped", logx.Int64("id", id), logx.String("reason", kind.String()), logx.Err(err))
	return skipped
}
