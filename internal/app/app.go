// Package app wires the bot together and owns its lifecycle.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"

	"evara/internal/config"
	"evara/internal/membership"
	"evara/internal/plugin"
	"evara/internal/runtime/supervisor"
	"evara/internal/services/assistant"
	"evara/internal/services/broadcast"
	"evara/internal/services/digest"
	"evara/internal/services/health"
	"evara/internal/services/ratelimit"
	"evara/internal/services/speech"
	"evara/internal/services/translate"
	"evara/internal/storage"
	kit "evara/internal/transport"
	telegram "evara/internal/transport/telegram/adapter"
	"evara/internal/transport/telegram/router"
	logx "evara/pkg/logx"
	"evara/pkg/systemd"
	"evara/plugins/ask"
	"evara/plugins/home"
	"evara/plugins/identity"
	"evara/plugins/media"
	"evara/plugins/owner"
)

// Options are the process-level inputs.
type Options struct {
	// ConfigPath is the optional settings file.
	ConfigPath string
	// Env is the environment overlay. Nil reads the process environment.
	Env     *viper.Viper
	Version string
}

type App struct {
	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	adapter *telegram.Adapter
	store   storage.Store
	members *membership.Service

	limiter *ratelimit.Service
	bc      *broadcast.Controller
	health  *health.Service
	digest  *digest.Service

	pm       *plugin.PluginManager
	disp     *router.Dispatcher
	homeP    *home.Plugin
	ownerP   *owner.Plugin
	registry router.Registry

	ownersMu sync.RWMutex
	owners   []int64

	updates chan kit.Update
	version string
}

// New loads the config and builds every component. Nothing talks to the
// network except the bot identity check and the store connection. A store
// that cannot be opened leaves the bot running without persistence.
func New(ctx context.Context, opt Options) (*App, error) {
	env := opt.Env
	if env == nil {
		env = config.NewEnv()
	}
	cfgm := config.NewConfigManager(opt.ConfigPath, env)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	bootLog := logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "telegram"))
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: config.DurationOr(cfg.Telegram.PollTimeout, 10*time.Second),
	}, bootLog)
	if err != nil {
		return nil, err
	}

	logSvc, root := logx.NewService(mapLogging(cfg), ad)
	log := root.With(logx.String("comp", "app"))
	if cfg.Telegram.APIID != "" || cfg.Telegram.APIHash != "" {
		log.Debug("API_ID/API_HASH set; the Bot API transport does not use them")
	}

	sup := supervisor.NewSupervisor(ctx, supervisor.WithLogger(root.With(logx.String("comp", "supervisor"))), supervisor.WithCancelOnError(true))

	store, err := storage.Open(ctx, mapStorage(cfg), root.With(logx.String("comp", "storage")))
	if err != nil {
		log.Error("store not connected; membership features disabled", logx.String("driver", cfg.Storage.Driver), logx.Err(err))
		store = nil
	} else if store != nil {
		log.Info("store connected", logx.String("driver", cfg.Storage.Driver))
	} else {
		log.Warn("storage disabled; membership features off")
	}
	members := membership.New(store, sup, root)

	var runs broadcast.RunLog
	if store != nil {
		runs = store
	}
	bc := broadcast.New(mapBroadcast(cfg), ad, members, runs, root)
	limiter := ratelimit.New(ctx, mapRateLimit(cfg), root)

	a := &App{
		cfgm:    cfgm,
		sup:     sup,
		log:     log,
		logs:    logSvc,
		adapter: ad,
		store:   store,
		members: members,
		limiter: limiter,
		bc:      bc,
		owners:  cfg.Telegram.OwnerUserIDs,
		updates: make(chan kit.Update, 256),
		version: opt.Version,
	}

	a.homeP = home.New(mapHome(cfg), members, root)
	var history owner.History
	if store != nil {
		history = store
	}
	a.ownerP = owner.New(mapOwner(cfg), members, history, bc, root)

	a.pm = plugin.NewPluginManager(root.With(logx.String("comp", "plugins")))
	a.pm.Register(
		a.homeP,
		ask.New(assistant.New(mapAssistant(cfg)), members, limiter,
			config.DurationOr(cfg.Assistant.Timeout, 60*time.Second)+30*time.Second, root),
		media.New(mapMedia(cfg), speech.New(mapSpeech(cfg)), translate.New(mapTranslate(cfg)), root),
		identity.New(root),
		a.ownerP,
	)
	a.registry, err = a.pm.Registry(30 * time.Second)
	if err != nil {
		return nil, err
	}

	a.disp = router.NewDispatcher(root.With(logx.String("comp", "router")), ad, cfg.Telegram.OwnerUserIDs, router.WithSpawner(sup))
	a.health = health.New(mapHealth(cfg), a.storeAlive, root)
	a.digest = digest.New(mapDigest(cfg), a.ownerP.DigestJob(ad, a.ownerIDs), root)
	return a, nil
}

func (a *App) ownerIDs() []int64 {
	a.ownersMu.RLock()
	defer a.ownersMu.RUnlock()
	return append([]int64(nil), a.owners...)
}

func (a *App) setOwners(ids []int64) {
	a.ownersMu.Lock()
	a.owners = append([]int64(nil), ids...)
	a.ownersMu.Unlock()
	a.disp.SetOwners(ids)
}

func (a *App) storeAlive(ctx context.Context) bool {
	if a.store == nil {
		return false
	}
	return a.store.Ping(ctx) == nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} { return a.sup.Context().Done() }

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error { return a.sup.Err() }

func (a *App) Start(ctx context.Context) error {
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if err := config.Validate(cfg); err != nil {
			return err
		}
		if tz := cfg.Digest.Timezone; tz != "" {
			if _, err := time.LoadLocation(tz); err != nil {
				return fmt.Errorf("digest.timezone: invalid %q: %w", tz, err)
			}
		}
		return a.digest.Validate(cfg.Digest.Schedule)
	})

	runCtx := a.sup.Context()

	if err := a.health.Start(runCtx); err != nil {
		return err
	}
	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		return err
	}

	a.pm.StartAll(runCtx)
	a.disp.SetRegistry(a.registry)
	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.disp.DispatchLoop(c, a.updates)
	})

	if err := a.digest.Start(runCtx); err != nil {
		a.log.Warn("digest not scheduled", logx.Err(err))
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.sup.Go0("systemd.watchdog", func(c context.Context) {
		systemd.Watchdog(c, func() bool { return c.Err() == nil })
	})
	if sent, err := systemd.Ready(); err != nil {
		a.log.Warn("sd_notify ready failed", logx.Err(err))
	} else if sent {
		a.log.Debug("sd_notify ready sent")
	}

	self := a.adapter.Self()
	a.log.Info("app started",
		logx.String("bot", self.Username),
		logx.String("version", a.version),
		logx.Bool("store_connected", a.members.Connected()),
		logx.String("health_addr", a.health.Addr()))
	return nil
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	a.log.Info("stopping", logx.String("reason", string(reason)))
	_, _ = systemd.Stopping()

	// First, cancel the app run context so background loops start unwinding immediately.
	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx := ctx
		if max > 0 {
			// respect the caller's deadline; never extend it
			if dl, ok := ctx.Deadline(); ok {
				if rem := time.Until(dl); rem < max {
					max = rem
				}
			}
			if max <= 0 {
				a.log.Warn("stop step skipped; deadline passed", logx.String("name", name))
				return
			}
			var cancel context.CancelFunc
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	step("plugins", 4*time.Second, func(c context.Context) error { a.pm.StopAll(c); return nil })
	step("digest", 2*time.Second, func(c context.Context) error { a.digest.Stop(c); return nil })
	step("adapter", 2*time.Second, func(c context.Context) error { return a.adapter.Stop(c) })
	step("health", 2*time.Second, func(c context.Context) error { a.health.Stop(c); return nil })
	step("supervisor", 5*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	step("ratelimit", time.Second, func(context.Context) error { return a.limiter.Close() })
	step("storage", 2*time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped")
	return a.logs.Close()
}
