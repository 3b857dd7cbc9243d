package router

import (
	"context"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"evara/internal/runtime/supervisor"
	kit "evara/internal/transport"
	logx "evara/pkg/logx"
)

// Spawner runs background work owned by the app. *supervisor.Supervisor
// satisfies it.
type Spawner interface {
	Go0(name string, fn func(ctx context.Context))
}

type Dispatcher struct {
	mu        sync.RWMutex
	commands  map[string]Command
	callbacks map[string]CallbackRoute
	join      HandlerFunc
	fallback  HandlerFunc
	eventTO   time.Duration
	owners    []int64

	log     logx.Logger
	adapter kit.Adapter
	spawn   Spawner
	workers int

	runMu   sync.Mutex
	running bool

	jobs chan func()
}

type Option func(*Dispatcher)

// WithWorkers sets the size of the handler pool.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithSpawner runs the menu publication on the app supervisor.
func WithSpawner(s Spawner) Option {
	return func(d *Dispatcher) { d.spawn = s }
}

func NewDispatcher(log logx.Logger, adapter kit.Adapter, owners []int64, opts ...Option) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	workers := runtime.NumCPU()
	if workers < 4 {
		workers = 4
	}
	d := &Dispatcher{
		commands:  map[string]Command{},
		callbacks: map[string]CallbackRoute{},
		owners:    append([]int64(nil), owners...),
		log:       log.With(logx.String("comp", "telegram.router")),
		adapter:   adapter,
		workers:   workers,
		jobs:      make(chan func(), 256),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// SetOwners updates the owner list. Safe during hot reload.
func (d *Dispatcher) SetOwners(owners []int64) {
	cp := append([]int64(nil), owners...)
	d.mu.Lock()
	d.owners = cp
	d.mu.Unlock()
}

func (d *Dispatcher) ownersSnapshot() []int64 {
	d.mu.RLock()
	cp := append([]int64(nil), d.owners...)
	d.mu.RUnlock()
	return cp
}

// SetRegistry replaces every route and publishes the command menu in the
// background.
func (d *Dispatcher) SetRegistry(reg Registry) {
	cmds := map[string]Command{}
	for _, c := range reg.Commands {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" || c.Handle == nil {
			continue
		}
		if _, dup := cmds[name]; dup {
			d.log.Warn("duplicate command ignored", logx.String("cmd", name))
			continue
		}
		c.Name = name
		cmds[name] = c
	}
	cbs := map[string]CallbackRoute{}
	for _, r := range reg.Callbacks {
		id := strings.TrimSpace(r.ID)
		if id == "" || r.Handle == nil {
			continue
		}
		cbs[id] = r
	}

	d.mu.Lock()
	d.commands = cmds
	d.callbacks = cbs
	d.join = reg.Join
	d.fallback = reg.Fallback
	d.eventTO = reg.EventTimeout
	d.mu.Unlock()

	up, ok := d.adapter.(kit.CommandMenuUpdater)
	if !ok {
		return
	}
	menu := menuCommands(reg.Commands)
	run := func(parent context.Context) {
		ctx, cancel := context.WithTimeout(parent, 10*time.Second)
		defer cancel()
		if err := up.UpdateMenuCommands(ctx, menu); err != nil {
			d.log.Warn("command menu not published", logx.Err(err))
			return
		}
		d.log.Debug("command menu published", logx.Int("commands", len(menu)))
	}
	if d.spawn != nil {
		d.spawn.Go0("telegram.menu.update", run)
	} else {
		go run(context.Background())
	}
}

// DispatchLoop routes updates until ctx ends or updates is closed. Handlers
// already queued are given a short grace period to finish.
func (d *Dispatcher) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	sup := supervisor.NewSupervisor(ctx,
		supervisor.WithLogger(d.log),
		supervisor.WithCancelOnError(false),
	)
	jobs := d.jobs
	d.setRunning(true)
	d.log.Info("command dispatcher started", logx.Int("workers", d.workers), logx.Int("job_queue_cap", cap(jobs)))

	for i := 0; i < d.workers; i++ {
		idx := i
		sup.GoRestart("command.worker."+strconv.Itoa(idx), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job, ok := <-jobs:
					if !ok {
						return nil
					}
					d.runJob(idx, job)
				}
			}
		},
			supervisor.WithRestartBackoff(200*time.Millisecond, 5*time.Second),
			supervisor.WithStopOnCleanExit(true),
		)
	}

	defer func() {
		d.setRunning(false)
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		sup.Cancel()
		_ = sup.Wait(wctx)
		cancel()
		d.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			d.Route(ctx, up)
		}
	}
}

func (d *Dispatcher) setRunning(v bool) {
	d.runMu.Lock()
	d.running = v
	d.runMu.Unlock()
}

func (d *Dispatcher) runJob(worker int, job func()) {
	if job == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("panic in command job", logx.Int("worker", worker), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
		}
	}()
	job()
}

func (d *Dispatcher) tryEnqueue(fn func()) bool {
	d.runMu.Lock()
	running := d.running
	d.runMu.Unlock()
	if !running {
		return false
	}
	select {
	case d.jobs <- fn:
		return true
	default:
		return false
	}
}

// Route classifies one update and queues the matching handler.
func (d *Dispatcher) Route(ctx context.Context, up kit.Update) {
	switch up.Kind {
	case kit.UpdateMessage:
		d.routeMessage(ctx, up)
	case kit.UpdateCallback:
		d.routeCallback(ctx, up)
	}
}

func (d *Dispatcher) routeMessage(ctx context.Context, up kit.Update) {
	msg := up.Message
	if msg == nil {
		return
	}

	d.mu.RLock()
	join, fallback, eventTO := d.join, d.fallback, d.eventTO
	d.mu.RUnlock()

	if len(msg.NewMembers) > 0 {
		if join != nil {
			d.enqueue(ctx, up, "join", "", join, eventTO)
		}
		return
	}

	self := d.adapter.Self()
	name, args, addressed, isCmd := parseCommand(msg.Body(), self.Username)
	if !isCmd {
		if fallback != nil && msg.IsPrivate() && strings.TrimSpace(msg.Text) != "" && !strings.HasPrefix(msg.Text, "/") {
			d.enqueue(ctx, up, "fallback", "", fallback, eventTO)
		}
		return
	}
	if !addressed {
		return
	}

	d.mu.RLock()
	cmd, ok := d.commands[name]
	d.mu.RUnlock()
	if !ok {
		d.log.Debug("unknown command ignored", logx.String("cmd", name), logx.Int64("chat_id", msg.ChatID))
		return
	}
	if cmd.Access == AccessOwnerOnly && !isOwner(msg.From.ID, d.ownersSnapshot()) {
		d.log.Debug("owner command ignored", logx.String("cmd", name), logx.Int64("user_id", msg.From.ID))
		return
	}
	d.enqueue(ctx, up, name, args, cmd.Handle, cmd.Timeout)
}

func (d *Dispatcher) routeCallback(ctx context.Context, up kit.Update) {
	cb := up.Callback
	if cb == nil {
		return
	}
	d.mu.RLock()
	route, ok := d.callbacks[strings.TrimSpace(cb.Data)]
	d.mu.RUnlock()
	if !ok {
		_ = d.adapter.AnswerCallback(ctx, cb.ID, "")
		return
	}

	req := d.newRequest(up, "cb:"+route.ID, "")
	final := Chain(route.Handle,
		MWPanicRecover(d.log),
		MWRequestLog(d.log),
		MWTimeout(route.Timeout),
	)
	if !d.tryEnqueue(func() {
		_ = final(ctx, req)
		_ = d.adapter.AnswerCallback(ctx, cb.ID, "")
	}) {
		_ = d.adapter.AnswerCallback(ctx, cb.ID, "busy")
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, up kit.Update, command, args string, h HandlerFunc, timeout time.Duration) {
	req := d.newRequest(up, command, args)
	final := Chain(h,
		MWPanicRecover(d.log),
		MWRequestLog(d.log),
		MWTimeout(timeout),
	)
	if !d.tryEnqueue(func() { _ = final(ctx, req) }) {
		req.Logger.Warn("dispatcher busy, update dropped")
	}
}

func (d *Dispatcher) newRequest(up kit.Update, command, args string) *Request {
	req := &Request{
		Update:  up,
		Command: command,
		Args:    args,
		Fields:  strings.Fields(args),
		ReqID:   newReqID(),
		Self:    d.adapter.Self(),
		Adapter: d.adapter,
		Owners:  d.ownersSnapshot(),
	}
	switch {
	case up.Message != nil:
		req.Message = up.Message
		req.Chat = kit.ChatTarget{ChatID: up.Message.ChatID, ThreadID: up.Message.ThreadID}
		req.From = up.Message.From
	case up.Callback != nil:
		req.Callback = up.Callback
		req.Chat = kit.ChatTarget{ChatID: up.Callback.ChatID, ThreadID: up.Callback.ThreadID}
		req.From = up.Callback.From
	}
	req.Logger = d.log.With(
		logx.String("rid", req.ReqID),
		logx.String("cmd", command),
		logx.Int64("chat_id", req.Chat.ChatID),
		logx.Int64("user_id", req.From.ID),
	)
	return req
}

// newReqID is the first group of a random UUID: short enough for log lines.
func newReqID() string {
	id := uuid.NewString()
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
