// Package ask answers /ask questions with the hosted language model.
package ask

import (
	"context"
	"errors"
	"time"

	"evara/internal/membership"
	"evara/internal/services/assistant"
	"evara/internal/services/callout"
	kit "evara/internal/transport"
	"evara/internal/transport/telegram/router"
	logx "evara/pkg/logx"
	"evara/pkg/tgui"
)

// MaxMessageRunes is the longest reply sent as one message.
const MaxMessageRunes = tgui.TextLimit

const replyTimeout = 10 * time.Second

const (
	usageText    = "ᴘʟᴇᴀsᴇ ᴜsᴇ /ask [ʏᴏᴜʀ ǫᴜᴇʀʏ ʜᴇʀᴇ]"
	cooldownText = "sʟᴏᴡ ᴅᴏᴡɴ ᴀ ʟɪᴛᴛʟᴇ, ᴛʀʏ ᴀɢᴀɪɴ ɪɴ ᴀ ᴍᴏᴍᴇɴᴛ."
)

type Recorder interface {
	RecordUserAsync(id int64) <-chan membership.Outcome
}

// Limiter gates questions per user. A nil Limiter allows everything.
type Limiter interface {
	AllowUser(ctx context.Context, userID int64) bool
}

type Plugin struct {
	llm     assistant.Completer
	members Recorder
	limit   Limiter
	timeout time.Duration
	log     logx.Logger
}

func New(llm assistant.Completer, members Recorder, limit Limiter, timeout time.Duration, log logx.Logger) *Plugin {
	if log.IsZero() {
		log = logx.Nop()
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Plugin{llm: llm, members: members, limit: limit, timeout: timeout, log: log.With(logx.String("plugin", "ask"))}
}

func (p *Plugin) Name() string { return "ask" }

func (p *Plugin) Commands() []router.Command {
	return []router.Command{
		{
			Name:        "ask",
			Description: "Ask the AI anything",
			Usage:       "/ask <question>",
			Menu:        true,
			Timeout:     p.timeout,
			Handle:      p.handle,
		},
	}
}

func (p *Plugin) handle(ctx context.Context, req *router.Request) error {
	if req.Args == "" {
		_, err := req.Reply(ctx, usageText, nil)
		return err
	}
	if req.Message.IsPrivate() {
		p.members.RecordUserAsync(req.From.ID)
	}
	if p.limit != nil && !p.limit.AllowUser(ctx, req.From.ID) {
		req.Logger.Debug("ask cooldown hit")
		_, err := req.Reply(ctx, cooldownText, nil)
		return err
	}

	if err := req.Adapter.Notify(ctx, req.Chat, kit.ActionTyping); err != nil {
		req.Logger.Debug("typing action failed", logx.Err(err))
	}

	answer, err := p.llm.Ask(ctx, req.Args)
	if err != nil {
		return p.fail(ctx, req, err)
	}
	for _, part := range tgui.ChunkRunes(answer, MaxMessageRunes) {
		if _, err := req.Reply(ctx, part, nil); err != nil {
			return err
		}
	}
	return nil
}

func (p *Plugin) fail(ctx context.Context, req *router.Request, err error) error {
	kind := callout.KindOf(err)
	req.Logger.Warn("ask failed", logx.String("kind", string(kind)), logx.Err(err))
	if kind == callout.Canceled && errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	// The command deadline may already have passed; the user still hears
	// about the failure.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), replyTimeout)
	defer cancel()
	text := tgui.Esc("ᴇʀʀᴏʀ: "+err.Error()).String() + "\n\n" + tgui.I("Try again later.").String()
	if _, rerr := req.Reply(rctx, text, &kit.SendOptions{ParseMode: "HTML", DisablePreview: true}); rerr != nil {
		return errors.Join(err, rerr)
	}
	return nil
}
