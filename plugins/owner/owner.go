// Package owner serves the owner-only /stats and /gcast commands and builds
// the scheduled stats digest.
package owner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"evara/internal/services/broadcast"
	"evara/internal/storage"
	kit "evara/internal/transport"
	"evara/internal/transport/telegram/router"
	logx "evara/pkg/logx"
	"evara/pkg/tgui"
)

const (
	notConnectedText = "Database not connected or collection missing."
	statsStatus      = "Fᴇᴛᴄʜɪɴɢ sᴛᴀᴛs◉‿◉..."
	gcastUsage       = "Rᴇᴘʟʏ ᴛᴏ ᴀ ᴍᴇssᴀɢᴇ ғᴏʀ ʙʀᴏᴀᴅᴄᴀsᴛ!!."
	gcastStatus      = "Bʀᴏᴀᴅᴄᴀsᴛ sᴛᴀʀᴛᴇᴅ..."
	gcastBusy        = "ᴀ ʙʀᴏᴀᴅᴄᴀsᴛ ɪs ᴀʟʀᴇᴀᴅʏ ʀᴜɴɴɪɴɢ."
)

// Stats is the membership view the owner commands read.
type Stats interface {
	Connected() bool
	CountUsers(ctx context.Context) (int64, error)
	CountGroups(ctx context.Context) (int64, error)
}

// History returns the latest broadcast run. It may be nil.
type History interface {
	LastRun(ctx context.Context) (storage.BroadcastRun, bool, error)
}

type Broadcaster interface {
	Run(ctx context.Context, src kit.MessageRef) (broadcast.Report, error)
}

type Config struct {
	UpdatesURL string
	// Location formats the last broadcast time. Nil means time.Local.
	Location *time.Location
}

type Plugin struct {
	mu      sync.RWMutex
	cfg     Config
	stats   Stats
	history History
	bc      Broadcaster
	log     logx.Logger
}

func New(cfg Config, stats Stats, history History, bc Broadcaster, log logx.Logger) *Plugin {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Plugin{cfg: cfg, stats: stats, history: history, bc: bc, log: log.With(logx.String("plugin", "owner"))}
}

func (p *Plugin) Name() string { return "owner" }

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
			Name:        "stats",
			Description: "Show user and group counts",
			Usage:       "/stats",
			Access:      router.AccessOwnerOnly,
			Timeout:     30 * time.Second,
			Handle:      p.handleStats,
		},
		{
			// No timeout: a run visits every stored member.
			Name:        "gcast",
			Description: "Forward the replied message to every user and group",
			Usage:       "/gcast (reply to a message)",
			Access:      router.AccessOwnerOnly,
			Handle:      p.handleGcast,
		},
	}
}

func (p *Plugin) handleStats(ctx context.Context, req *router.Request) error {
	if !p.stats.Connected() {
		_, err := req.Reply(ctx, notConnectedText, nil)
		return err
	}
	status, err := req.Reply(ctx, statsStatus, nil)
	if err != nil {
		return err
	}
	text, err := p.StatsText(ctx)
	if err != nil {
		req.Logger.Warn("stats failed", logx.Err(err))
		return req.Adapter.EditText(ctx, status, "Error fetching stats: "+err.Error(), nil)
	}
	return req.Adapter.EditText(ctx, status, text, &kit.SendOptions{ParseMode: "HTML", DisablePreview: true})
}

// StatsText renders the current counts and the latest broadcast as HTML.
func (p *Plugin) StatsText(ctx context.Context) (string, error) {
	if !p.stats.Connected() {
		return "", errors.New("store not connected")
	}
	users, err := p.stats.CountUsers(ctx)
	if err != nil {
		return "", fmt.Errorf("count users: %w", err)
	}
	groups, err := p.stats.CountGroups(ctx)
	if err != nil {
		return "", fmt.Errorf("count groups: %w", err)
	}
	cfg := p.config()

	text := "📊 " + tgui.B("ʙᴏᴛ sᴛᴀᴛɪsᴛɪᴄs").String() + "\n\n" +
		"        ✦ ᴛᴏᴛᴀʟ ᴜsᴇʀs (ᴘʀɪᴠᴀᴛᴇ): " + tgui.Code(strconv.FormatInt(users, 10)).String() + "\n" +
		"        ✦ ᴛᴏᴛᴀʟ ɢʀᴏᴜᴘs: " + tgui.Code(strconv.FormatInt(groups, 10)).String() + "\n"
	if line := p.lastRunLine(ctx, cfg.Location); line != "" {
		text += "        ✦ ʟᴀsᴛ ʙʀᴏᴀᴅᴄᴀsᴛ: " + line + "\n"
	}
	text += "\n        ❖ ᴘᴏᴡᴇʀᴇᴅ ʙʏ :- " + tgui.Link("ᴇᴠᴀʀᴀ ʙᴏᴛs", cfg.UpdatesURL).String()
	return text, nil
}

func (p *Plugin) lastRunLine(ctx context.Context, loc *time.Location) string {
	if p.history == nil {
		return ""
	}
	run, ok, err := p.history.LastRun(ctx)
	if err != nil {
		p.log.Debug("last broadcast unavailable", logx.Err(err))
		return ""
	}
	if !ok {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return tgui.Esc(fmt.Sprintf("%s, %d users, %d groups",
		run.FinishedAt.In(loc).Format("2006-01-02 15:04"), run.UsersSent, run.GroupsSent)).String()
}
