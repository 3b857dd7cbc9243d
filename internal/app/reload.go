package app

import (
	"context"
	"slices"
	"strings"

	"evara/internal/config"
	logx "evara/pkg/logx"
)

// reloadLoop applies published configs to the live services. Bursts are
// coalesced to the latest config.
func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	last := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-sub:
			if !ok {
				return
			}
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						next = newer
					}
				default:
					break drain
				}
			}
			a.applyConfig(ctx, last, next)
			last = next
		}
	}
}

func (a *App) applyConfig(ctx context.Context, prev, next *config.Config) {
	ch := config.SummarizeChange(prev, next)
	if ch.Empty() {
		a.log.Info("config reloaded (no changes)")
		return
	}
	has := func(name string) bool { return slices.Contains(ch.Live, name) }

	if has("logging") || has("telegram.owners") {
		a.logs.Apply(mapLogging(next))
	}
	if has("telegram.owners") {
		a.setOwners(next.Telegram.OwnerUserIDs)
	}
	if has("telegram.owners") || has("telegram.links") {
		a.homeP.Apply(mapHome(next))
	}
	if has("telegram.links") || has("digest") {
		a.ownerP.Apply(mapOwner(next))
	}
	if has("broadcast") {
		a.bc.Apply(mapBroadcast(next))
	}
	if has("ratelimit") {
		a.limiter.Apply(ctx, mapRateLimit(next))
	}
	if has("digest") {
		if err := a.digest.Apply(mapDigest(next)); err != nil {
			a.log.Warn("digest config rejected; keeping previous", logx.Err(err))
		}
	}
	if has("health.pprof") {
		if err := a.health.Reconfigure(ctx, mapHealth(next)); err != nil {
			a.log.Warn("health reconfigure failed", logx.Err(err))
		}
	}
	if len(ch.Restart) > 0 {
		a.log.Warn("config changes need a restart", logx.String("sections", strings.Join(ch.Restart, ",")))
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(ch.Live, ","))}, ch.Fields...)
	a.log.Info("config reloaded", fields...)
}
