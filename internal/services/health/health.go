// Package health serves the liveness endpoint hosting platforms poll, and
// optionally the pprof handlers.
package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	logx "evara/pkg/logx"
)

const Banner = "Evara AI Bot is Alive and Running!"

type Config struct {
	Addr       string
	Pprof      bool
	PprofToken string
}

// Probe reports the state of a dependency for /healthz.
type Probe func(ctx context.Context) bool

type Service struct {
	mu sync.Mutex

	cfg     Config
	log     logx.Logger
	started time.Time
	store   Probe

	ln       net.Listener
	srv      *http.Server
	stopDone chan struct{}
}

// New builds the server. store may be nil.
func New(cfg Config, store Probe, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	gin.SetMode(gin.ReleaseMode)
	return &Service{cfg: cfg, store: store, log: log.With(logx.String("comp", "health")), started: time.Now()}
}

// Addr is the bound address once started.
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Start listens and serves in the background. It returns once the listener
// is bound.
func (s *Service) Start(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.srv != nil {
			s.mu.Unlock()
			return nil
		}
		if s.stopDone != nil {
			done := s.stopDone
			s.mu.Unlock()
			select {
			case <-done:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		cur := s.cfg
		s.mu.Unlock()

		addr := cur.Addr
		if addr == "" {
			addr = ":8080"
		}
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("health listen %s: %w", addr, err)
		}

		srv := &http.Server{
			Handler:           s.Routes(),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		s.mu.Lock()
		s.ln, s.srv = ln, srv
		s.mu.Unlock()

		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("health server stopped with error", logx.Err(err))
			}
		}()
		s.log.Info("health server started", logx.String("addr", ln.Addr().String()), logx.Bool("pprof", cur.Pprof))
		return nil
	}
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.srv == nil {
		s.mu.Unlock()
		return
	}
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return
	}
	done := make(chan struct{})
	s.stopDone = done
	srv := s.srv
	s.srv, s.ln = nil, nil
	s.mu.Unlock()

	go func() {
		defer close(done)
		_ = srv.Shutdown(ctx)
		_ = srv.Close()
		s.mu.Lock()
		s.stopDone = nil
		s.mu.Unlock()
		s.log.Info("health server stopped")
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Reconfigure restarts the server when the listen address or pprof settings
// change.
func (s *Service) Reconfigure(ctx context.Context, cfg Config) error {
	s.mu.Lock()
	prev := s.cfg
	running := s.srv != nil
	s.cfg = cfg
	s.mu.Unlock()
	if !running || prev == cfg {
		return nil
	}
	s.Stop(ctx)
	return s.Start(ctx)
}
