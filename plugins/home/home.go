// Package home serves /start, the inline help menu, the group welcome and
// the private-chat reminder.
package home

import (
	"context"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"evara/internal/membership"
	"evara/internal/plugin"
	kit "evara/internal/transport"
	"evara/internal/transport/telegram/router"
	logx "evara/pkg/logx"
	"evara/pkg/tgui"
)

// Recorder stores members without blocking the reply.
type Recorder interface {
	RecordUserAsync(id int64) <-chan membership.Outcome
	RecordGroupAsync(id int64) <-chan membership.Outcome
}

type Config struct {
	IntroImage string
	SupportURL string
	UpdatesURL string
	// DeveloperID is linked from the developer button.
	DeveloperID int64
}

type Plugin struct {
	mu      sync.RWMutex
	cfg     Config
	members Recorder
	log     logx.Logger
}

func New(cfg Config, members Recorder, log logx.Logger) *Plugin {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Plugin{cfg: cfg, members: members, log: log.With(logx.String("plugin", "home"))}
}

func (p *Plugin) Name() string { return "home" }

func (p *Plugin) Apply(cfg Config) {
	p.mu.Lock()
	p.cfg = cfg
	p.mu.Unlock()
}

func (p *Plugin) config() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

func (p *Plugin) Commands() []router.Command {
	return []router.Command{
		{
			Name:        "start",
			Description: "Start the bot",
			Usage:       "/start",
			Menu:        true,
			Timeout:     30 * time.Second,
			Handle:      p.handleStart,
		},
	}
}

func (p *Plugin) Callbacks() []router.CallbackRoute {
	info := func(text string) router.HandlerFunc {
		return func(ctx context.Context, req *router.Request) error {
			back := tgui.NewInline().Row(tgui.Btn("ʙᴀᴄᴋ", cbHelp)).Markup()
			return editMenu(ctx, req, text, back)
		}
	}
	return []router.CallbackRoute{
		{ID: cbHelp, Timeout: 15 * time.Second, Handle: p.handleHelp},
		{ID: cbTTS, Timeout: 15 * time.Second, Handle: info(infoTTSText)},
		{ID: cbTr, Timeout: 15 * time.Second, Handle: info(infoTrText)},
		{ID: cbID, Timeout: 15 * time.Second, Handle: info(infoIDText)},
		{ID: cbGoHome, Timeout: 15 * time.Second, Handle: p.handleGoHome},
	}
}

func (p *Plugin) Events() plugin.Events {
	return plugin.Events{Join: p.handleJoin, Fallback: p.handleFallback}
}

func (p *Plugin) homeMarkup(botUsername string) *tele.ReplyMarkup {
	cfg := p.config()
	return tgui.NewInline().
		Row(tgui.URLBtn("ᴀᴅᴅ ᴍᴇ ɪɴ ɢʀᴏᴜᴘ +", "https://t.me/"+botUsername+"?startgroup=true")).
		Row(tgui.UserBtn("ᴅᴇᴠᴇʟᴏᴘᴇʀ", cfg.DeveloperID), tgui.URLBtn("sᴜᴘᴘᴏʀᴛ", cfg.SupportURL)).
		Row(tgui.Btn("ʜᴇʟᴘ ᴀɴᴅ ᴄᴏᴍᴍᴀɴᴅs", cbHelp)).
		Markup()
}

func (p *Plugin) handleStart(ctx context.Context, req *router.Request) error {
	if req.Message.IsPrivate() {
		p.members.RecordUserAsync(req.From.ID)
	}
	cfg := p.config()
	caption := startCaption(req.From.FirstName, req.From.ID, cfg.UpdatesURL)
	opt := &kit.SendOptions{ParseMode: "HTML", ReplyTo: req.Message.ID, ReplyMarkupAdapter: p.homeMarkup(req.Self.Username)}

	if _, err := req.Adapter.SendPhoto(ctx, req.Chat, cfg.IntroImage, caption, opt); err != nil {
		req.Logger.Debug("intro photo failed, sending text", logx.Err(err))
		opt.DisablePreview = true
		_, err = req.Adapter.SendText(ctx, req.Chat, caption, opt)
		return err
	}
	return nil
}

func (p *Plugin) handleHelp(ctx context.Context, req *router.Request) error {
	rm := tgui.NewInline().
		Row(tgui.Btn("ᴛᴛs🎙️", cbTTS), tgui.Btn("ᴛʀᴀɴsʟᴀᴛᴇ📟", cbTr)).
		Row(tgui.Btn("ᴜsᴇʀs ɪᴅ🆔", cbID), tgui.Btn("ʙᴀᴄᴋ ᴛᴏ ʜᴏᴍᴇ🥀", cbGoHome)).
		Markup()
	return editMenu(ctx, req, helpMenuText, rm)
}

func (p *Plugin) handleGoHome(ctx context.Context, req *router.Request) error {
	caption := startCaption(req.From.FirstName, req.From.ID, p.config().UpdatesURL)
	return editMenu(ctx, req, caption, p.homeMarkup(req.Self.Username))
}

// editMenu rewrites the menu message in place. The menu is a photo caption
// unless /start fell back to plain text.
func editMenu(ctx context.Context, req *router.Request, text string, rm *tele.ReplyMarkup) error {
	opt := &kit.SendOptions{ParseMode: "HTML", DisablePreview: true, ReplyMarkupAdapter: rm}
	ref := req.Target()
	if err := req.Adapter.EditCaption(ctx, ref, text, opt); err != nil {
		req.Logger.Debug("caption edit failed, editing text", logx.Err(err))
		return req.Adapter.EditText(ctx, ref, text, opt)
	}
	return nil
}

func (p *Plugin) handleJoin(ctx context.Context, req *router.Request) error {
	for _, m := range req.Message.NewMembers {
		if m.ID != req.Self.ID {
			continue
		}
		p.members.RecordGroupAsync(req.Chat.ChatID)
		p.log.Info("added to group", logx.Int64("chat_id", req.Chat.ChatID))
		_, err := req.Reply(ctx, welcomeText, nil)
		return err
	}
	return nil
}

func (p *Plugin) handleFallback(ctx context.Context, req *router.Request) error {
	_, err := req.Reply(ctx, fallbackText, nil)
	return err
}
