package plugin

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"evara/internal/transport/telegram/router"
	logx "evara/pkg/logx"
)

type PluginManager struct {
	mu      sync.Mutex
	log     logx.Logger
	plugins []Plugin
	started []Lifecycle
}

func NewPluginManager(log logx.Logger) *PluginManager {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &PluginManager{log: log.With(logx.String("comp", "plugins"))}
}

// Register adds plugins in order. Command order is menu order.
func (m *PluginManager) Register(ps ...Plugin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range ps {
		if p != nil {
			m.plugins = append(m.plugins, p)
		}
	}
}

// Registry merges every plugin's routes. Duplicate command names, callback
// ids and event claims are errors.
func (m *PluginManager) Registry(eventTimeout time.Duration) (router.Registry, error) {
	m.mu.Lock()
	ps := append([]Plugin(nil), m.plugins...)
	m.mu.Unlock()

	reg := router.Registry{EventTimeout: eventTimeout}
	cmdOwner := map[string]string{}
	cbOwner := map[string]string{}
	var joinOwner, fallbackOwner string

	for _, p := range ps {
		name := p.Name()
		for _, c := range p.Commands() {
			if prev, dup := cmdOwner[c.Name]; dup {
				return router.Registry{}, fmt.Errorf("command /%s registered by %s and %s", c.Name, prev, name)
			}
			cmdOwner[c.Name] = name
			reg.Commands = append(reg.Commands, c)
		}
		if cp, ok := p.(CallbackProvider); ok {
			for _, r := range cp.Callbacks() {
				if prev, dup := cbOwner[r.ID]; dup {
					return router.Registry{}, fmt.Errorf("callback %q registered by %s and %s", r.ID, prev, name)
				}
				cbOwner[r.ID] = name
				reg.Callbacks = append(reg.Callbacks, r)
			}
		}
		if ep, ok := p.(EventProvider); ok {
			ev := ep.Events()
			if ev.Join != nil {
				if joinOwner != "" {
					return router.Registry{}, fmt.Errorf("join handler claimed by %s and %s", joinOwner, name)
				}
				joinOwner, reg.Join = name, ev.Join
			}
			if ev.Fallback != nil {
				if fallbackOwner != "" {
					return router.Registry{}, fmt.Errorf("fallback handler claimed by %s and %s", fallbackOwner, name)
				}
				fallbackOwner, reg.Fallback = name, ev.Fallback
			}
		}
	}
	m.log.Info("plugins registered", logx.Int("plugins", len(ps)), logx.Int("commands", len(reg.Commands)), logx.Int("callbacks", len(reg.Callbacks)))
	return reg, nil
}

// StartAll starts plugins with a lifecycle. A failing plugin is logged and
// skipped; the others still start.
func (m *PluginManager) StartAll(ctx context.Context) {
	m.mu.Lock()
	ps := append([]Plugin(nil), m.plugins...)
	m.mu.Unlock()

	for _, p := range ps {
		lc, ok := p.(Lifecycle)
		if !ok {
			continue
		}
		start := time.Now()
		if err := guard(func() error { return lc.Start(ctx) }); err != nil {
			m.log.Error("plugin start failed", logx.String("plugin", p.Name()), logx.Err(err))
			continue
		}
		m.mu.Lock()
		m.started = append(m.started, lc)
		m.mu.Unlock()
		m.log.Debug("plugin started", logx.String("plugin", p.Name()), logx.Duration("took", time.Since(start)))
	}
}

// StopAll stops started plugins in reverse order.
func (m *PluginManager) StopAll(ctx context.Context) {
	m.mu.Lock()
	started := m.started
	m.started = nil
	m.mu.Unlock()

	for i := len(started) - 1; i >= 0; i-- {
		lc := started[i]
		if err := guard(func() error { return lc.Stop(ctx) }); err != nil {
			m.log.Warn("plugin stop failed", logx.Err(err))
		}
	}
}

func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn()
}
