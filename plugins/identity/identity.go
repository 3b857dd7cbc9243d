// Package identity serves /id.
package identity

import (
	"context"
	"errors"
	"strconv"
	"time"

	kit "evara/internal/transport"
	"evara/internal/transport/telegram/router"
	logx "evara/pkg/logx"
	"evara/pkg/tgui"
)

const notFoundText = "❌ Usᴇʀ ɴᴏᴛ ғᴏᴜɴᴅ ᴏʀ ɪɴᴠᴀɪʟᴇᴅ ᴜsᴇʀɴᴀᴍᴇ."

type Plugin struct {
	log logx.Logger
}

func New(log logx.Logger) *Plugin {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Plugin{log: log.With(logx.String("plugin", "identity"))}
}

func (p *Plugin) Name() string { return "identity" }

func (p *Plugin) Commands() []router.Command {
	return []router.Command{
		{
			Name:        "id",
			Description: "Show a user or chat ID",
			Usage:       "/id [@username | id] (or reply to a message)",
			Menu:        true,
			Timeout:     20 * time.Second,
			Handle:      p.handle,
		},
	}
}

func idLine(label string, id int64) string {
	return tgui.B(label).String() + " " + tgui.Code(strconv.FormatInt(id, 10)).String()
}

func nameLine(label, name string) string {
	return tgui.B(label).String() + " " + tgui.Esc(name).String()
}

// author is who posted m: the sender chat for channel posts and anonymous
// admins, the user otherwise.
func author(m *kit.Message) (string, int64) {
	if m.SenderChat != nil && m.SenderChat.ID != 0 {
		return m.SenderChat.Title, m.SenderChat.ID
	}
	return m.From.FirstName, m.From.ID
}

func (p *Plugin) handle(ctx context.Context, req *router.Request) error {
	var text string
	switch {
	case req.ReplyTo() != nil:
		name, id := author(req.ReplyTo())
		if id == 0 {
			_, err := req.Reply(ctx, notFoundText, nil)
			return err
		}
		text = "👤 " + nameLine("✰ Usᴇʀ:", name) + "\n🆔 " + idLine("✰ Iᴅ:", id)
	case len(req.Fields) > 0:
		u, err := req.Adapter.LookupUser(ctx, req.Fields[0])
		if err != nil {
			if !errors.Is(err, kit.ErrNotFound) {
				req.Logger.Warn("user lookup failed", logx.String("query", req.Fields[0]), logx.Err(err))
			}
			_, err = req.Reply(ctx, notFoundText, nil)
			return err
		}
		text = "👤 " + nameLine("Usᴇʀ:", u.FirstName) + "\n🆔 " + idLine("Iᴅ:", u.ID)
	default:
		text = "👤 " + nameLine("Usᴇʀ:", req.From.FirstName) +
			"\n🆔 " + idLine("Yᴏᴜʀ ɪᴅ:", req.From.ID) +
			"\n💬 " + idLine("Cʜᴀᴛ ɪᴅ:", req.Chat.ChatID)
	}
	_, err := req.ReplyHTML(ctx, text)
	return err
}
