package owner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"evara/internal/services/broadcast"
	kit "evara/internal/transport"
	"evara/internal/transport/telegram/router"
	logx "evara/pkg/logx"
	"evara/pkg/tgui"
)

func (p *Plugin) handleGcast(ctx context.Context, req *router.Request) error {
	if !p.stats.Connected() {
		_, err := req.Reply(ctx, notConnectedText, nil)
		return err
	}
	src := req.ReplyTo()
	if src == nil {
		_, err := req.Reply(ctx, gcastUsage, nil)
		return err
	}
	ref := src.Ref()
	if ref.ChatID == 0 {
		ref.ChatID = req.Chat.ChatID
	}

	status, err := req.Reply(ctx, gcastStatus, nil)
	if err != nil {
		return err
	}
	rep, err := p.bc.Run(ctx, ref)

	// The run may have ended because ctx was cancelled; the final edit still
	// goes out.
	ectx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	opt := &kit.SendOptions{ParseMode: "HTML"}
	switch {
	case errors.Is(err, broadcast.ErrBusy):
		return req.Adapter.EditText(ectx, status, gcastBusy, nil)
	case err != nil:
		req.Logger.Warn("broadcast stopped", logx.Err(err))
		return req.Adapter.EditText(ectx, status, stoppedText(rep, err), opt)
	default:
		return req.Adapter.EditText(ectx, status, completedText(rep), opt)
	}
}

func completedText(rep broadcast.Report) string {
	return fmt.Sprintf("✅ <b>◉ Bʀᴏᴀᴅᴄᴀsᴛ Cᴏᴍᴘʟᴇᴛᴇᴅ.</b>\n\n✦ Sᴇɴᴛ ᴛᴏ <b>%d</b> users.\n✦ Sᴇɴᴛ ᴛᴏ <b>%d</b> groups.",
		rep.Users.Sent, rep.Groups.Sent)
}

func stoppedText(rep broadcast.Report, err error) string {
	return fmt.Sprintf("⚠️ <b>◉ Bʀᴏᴀᴅᴄᴀsᴛ Sᴛᴏᴘᴘᴇᴅ.</b>\n\n✦ Sᴇɴᴛ ᴛᴏ <b>%d</b> users.\n✦ Sᴇɴᴛ ᴛᴏ <b>%d</b> groups.\n\n%s",
		rep.Users.Sent, rep.Groups.Sent, tgui.Esc(err.Error()))
}
