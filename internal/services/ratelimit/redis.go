package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const windowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

// Redis is a fixed-window counter shared by every process using the same
// server. Redis errors fail open.
type Redis struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	script *redis.Script
}

func NewRedis(client *redis.Client, limit int, window time.Duration, prefix string) *Redis {
	return &Redis{
		client: client,
		limit:  limit,
		window: window,
		prefix: prefix,
		script: redis.NewScript(windowScript),
	}
}

func (l *Redis) Allow(ctx context.Context, key string) bool {
	if l == nil || l.client == nil || l.limit <= 0 || l.window <= 0 || key == "" {
		return true
	}
	if l.prefix != "" {
		key = l.prefix + ":" + key
	}
	ttl := l.window.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}
	ctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	allowed, err := l.script.Run(ctx, l.client, []string{key}, ttl, l.limit).Int64()
	if err != nil {
		return true
	}
	return allowed == 1
}
