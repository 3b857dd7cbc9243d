package media

import (
	"context"
	"fmt"
	"os"

	kit "evara/internal/transport"
	"evara/internal/transport/telegram/router"
	logx "evara/pkg/logx"
	"evara/pkg/tgui"
)

const (
	ttsUsage    = "Pʟᴇᴀsᴇ ᴘʀᴏᴠɪᴅᴇ ᴛᴇxᴛ ᴏʀ ʀᴇᴘʟʏ ᴛᴏ ᴀ ᴍᴇssᴀɢᴇ. Usᴀɢᴇ: /tts ʜᴇʟʟᴏ"
	ttsStatus   = "ᴘʀᴏᴄᴇssɪɴɢ ᴀᴜᴅɪᴏ..."
	captionRune = 50
)

// speechText picks what to speak: the argument, else the replied message.
func speechText(req *router.Request) string {
	if t := trimmed(req.Args); t != "" {
		return t
	}
	return trimmed(req.ReplyTo().Body())
}

func (p *Plugin) handleTTS(ctx context.Context, req *router.Request) error {
	text := speechText(req)
	if text == "" {
		_, err := req.Reply(ctx, ttsUsage, nil)
		return err
	}

	status, err := req.Reply(ctx, ttsStatus, nil)
	if err != nil {
		return err
	}
	if err := req.Adapter.Notify(ctx, req.Chat, kit.ActionRecordAudio); err != nil {
		req.Logger.Debug("record action failed", logx.Err(err))
	}

	f, err := tempFile(p.cfg.TempDir)
	if err != nil {
		return failStatus(ctx, req, status, fmt.Errorf("temp file: %w", err))
	}
	path := f.Name()
	defer func() {
		if rerr := os.Remove(path); rerr != nil && !os.IsNotExist(rerr) {
			req.Logger.Warn("temp audio not removed", logx.String("path", path), logx.Err(rerr))
		}
	}()

	err = p.voice.Synthesize(ctx, text, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("write audio: %w", cerr)
	}
	if err != nil {
		return failStatus(ctx, req, status, err)
	}

	caption := "🎤 ᴛᴇxᴛ: " + tgui.TruncRunes(text, captionRune) + "..."
	if _, err := req.Adapter.SendAudio(ctx, req.Chat, path, caption, &kit.SendOptions{ReplyTo: req.Message.ID}); err != nil {
		return failStatus(ctx, req, status, err)
	}
	if err := req.Adapter.Delete(ctx, status); err != nil {
		req.Logger.Debug("status delete failed", logx.Err(err))
	}
	return nil
}
