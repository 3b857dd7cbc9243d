// Package ratelimit throttles /ask per user. Counters live in Redis when
// REDIS_URL is set so several bot replicas share them; otherwise they are
// kept in process.
package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	logx "evara/pkg/logx"
)

// Limiter answers whether key may proceed now.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

type Config struct {
	// PerMinute is the allowed calls per user per minute. Zero disables.
	PerMinute int
	RedisURL  string
}

// Service is the live-reconfigurable limiter handed to handlers.
type Service struct {
	mu     sync.RWMutex
	cfg    Config
	lim    Limiter
	redis  *redis.Client
	log    logx.Logger
	newRdb func(url string) (*redis.Client, error)
	prefix string
}

func New(ctx context.Context, cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{log: log.With(logx.String("comp", "ratelimit")), newRdb: dialRedis, prefix: "evara:ask"}
	s.apply(ctx, cfg)
	return s
}

// AllowUser reports whether userID may call /ask now. Always true when
// disabled.
func (s *Service) AllowUser(ctx context.Context, userID int64) bool {
	if s == nil {
		return true
	}
	s.mu.RLock()
	lim := s.lim
	s.mu.RUnlock()
	if lim == nil {
		return true
	}
	return lim.Allow(ctx, strconv.FormatInt(userID, 10))
}

func (s *Service) Apply(ctx context.Context, cfg Config) {
	s.mu.RLock()
	same := s.cfg == cfg
	s.mu.RUnlock()
	if same {
		return
	}
	s.apply(ctx, cfg)
}

func (s *Service) apply(ctx context.Context, cfg Config) {
	var (
		lim Limiter
		rdb *redis.Client
	)
	switch {
	case cfg.PerMinute <= 0:
	case cfg.RedisURL != "":
		c, err := s.newRdb(cfg.RedisURL)
		if err != nil {
			s.log.Warn("redis unavailable, using in-process limiter", logx.Err(err))
			lim = NewLocal(cfg.PerMinute, time.Minute)
			break
		}
		if err := pingRedis(ctx, c); err != nil {
			s.log.Warn("redis ping failed, using in-process limiter", logx.Err(err))
			_ = c.Close()
			lim = NewLocal(cfg.PerMinute, time.Minute)
			break
		}
		rdb = c
		lim = NewRedis(c, cfg.PerMinute, time.Minute, s.prefix)
	default:
		lim = NewLocal(cfg.PerMinute, time.Minute)
	}

	s.mu.Lock()
	old := s.redis
	s.cfg, s.lim, s.redis = cfg, lim, rdb
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	s.log.Info("ask cooldown configured", logx.Int("per_minute", cfg.PerMinute), logx.Bool("redis", rdb != nil))
}

func (s *Service) Close() error {
	s.mu.Lock()
	c := s.redis
	s.redis = nil
	s.lim = nil
	s.mu.Unlock()
	if c != nil {
		return c.Close()
	}
	return nil
}

func dialRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}

func pingRedis(ctx context.Context, c *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.Ping(ctx).Err()
}
