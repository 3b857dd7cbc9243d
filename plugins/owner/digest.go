package owner

import (
	"context"
	"errors"
	"fmt"

	kit "evara/internal/transport"
)

// Sender is the part of the transport the digest needs.
type Sender interface {
	SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error)
}

// DigestJob returns a job that sends the stats text to every owner. owners
// is read on each run so reloaded settings apply.
func (p *Plugin) DigestJob(send Sender, owners func() []int64) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if !p.stats.Connected() {
			return nil
		}
		text, err := p.StatsText(ctx)
		if err != nil {
			return err
		}
		var errs []error
		for _, id := range owners() {
			if _, err := send.SendText(ctx, kit.ChatTarget{ChatID: id}, text, &kit.SendOptions{ParseMode: "HTML", DisablePreview: true}); err != nil {
				errs = append(errs, fmt.Errorf("owner %d: %w", id, err))
			}
		}
		return errors.Join(errs...)
	}
}
