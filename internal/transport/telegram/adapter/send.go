package adapter

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	kit "evara/internal/transport"
	logx "evara/pkg/logx"
	"evara/pkg/tgui"
)

// textLimit is the largest message body sent in one piece.
const textLimit = tgui.TextLimit

func sendOptions(to kit.ChatTarget, opt *kit.SendOptions) *tele.SendOptions {
	so := &tele.SendOptions{ThreadID: to.ThreadID}
	if opt == nil {
		return so
	}
	so.ParseMode = opt.ParseMode
	so.DisableWebPagePreview = opt.DisablePreview
	if opt.ReplyTo != 0 {
		so.ReplyTo = &tele.Message{ID: opt.ReplyTo, Chat: &tele.Chat{ID: to.ChatID}}
	}
	if rm, ok := opt.ReplyMarkupAdapter.(*tele.ReplyMarkup); ok {
		so.ReplyMarkup = rm
	}
	return so
}

func stored(ref kit.MessageRef) tele.StoredMessage {
	return tele.StoredMessage{MessageID: strconv.Itoa(ref.MessageID), ChatID: ref.ChatID}
}

func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	chat := &tele.Chat{ID: to.ChatID}
	var first kit.MessageRef
	for i, part := range tgui.ChunkRunes(text, textLimit) {
		if err := ctx.Err(); err != nil {
			return first, err
		}
		so := sendOptions(to, opt)
		if i > 0 {
			// markup and reply only on the first piece
			so.ReplyMarkup = nil
			so.ReplyTo = nil
		}
		m, err := a.bot.Send(chat, part, so)
		if err != nil {
			return first, classify(err)
		}
		if i == 0 {
			first = kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: m.ID}
		}
	}
	return first, nil
}

func (a *Adapter) SendPhoto(ctx context.Context, to kit.ChatTarget, url, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return kit.MessageRef{}, err
	}
	p := &tele.Photo{File: tele.FromURL(url), Caption: caption}
	m, err := a.bot.Send(&tele.Chat{ID: to.ChatID}, p, sendOptions(to, opt))
	if err != nil {
		return kit.MessageRef{}, classify(err)
	}
	return kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: m.ID}, nil
}

func (a *Adapter) SendAudio(ctx context.Context, to kit.ChatTarget, path, caption string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return kit.MessageRef{}, err
	}
	au := &tele.Audio{File: tele.FromDisk(path), Caption: caption, FileName: filepath.Base(path)}
	m, err := a.bot.Send(&tele.Chat{ID: to.ChatID}, au, sendOptions(to, opt))
	if err != nil {
		return kit.MessageRef{}, classify(err)
	}
	return kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: m.ID}, nil
}

// EditText replaces the text of ref. Overflow beyond one message is sent as
// follow-up messages in the same chat.
func (a *Adapter) EditText(ctx context.Context, ref kit.MessageRef, text string, opt *kit.SendOptions) error {
	parts := tgui.ChunkRunes(text, textLimit)
	so := sendOptions(ref.Target(), opt)
	so.ReplyTo = nil
	if _, err := a.bot.Edit(stored(ref), parts[0], so); err != nil {
		return classify(err)
	}
	if len(parts) == 1 {
		return nil
	}
	var rest kit.SendOptions
	if opt != nil {
		rest = kit.SendOptions{ParseMode: opt.ParseMode, DisablePreview: opt.DisablePreview}
	}
	_, err := a.SendText(ctx, ref.Target(), strings.Join(parts[1:], ""), &rest)
	return err
}

func (a *Adapter) EditCaption(ctx context.Context, ref kit.MessageRef, caption string, opt *kit.SendOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	so := sendOptions(ref.Target(), opt)
	so.ReplyTo = nil
	if _, err := a.bot.EditCaption(stored(ref), caption, so); err != nil {
		return classify(err)
	}
	return nil
}

func (a *Adapter) Delete(ctx context.Context, ref kit.MessageRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return classify(a.bot.Delete(stored(ref)))
}

func (a *Adapter) Forward(ctx context.Context, to kit.ChatTarget, src kit.MessageRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := a.bot.Forward(&tele.Chat{ID: to.ChatID}, stored(src))
	return classify(err)
}

func (a *Adapter) Notify(ctx context.Context, to kit.ChatTarget, action kit.ChatAction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	act := tele.Typing
	if action == kit.ActionRecordAudio {
		act = tele.RecordingAudio
	}
	return a.bot.Notify(&tele.Chat{ID: to.ChatID}, act, to.ThreadID)
}

// LookupUser resolves a numeric id or a @username through getChat.
func (a *Adapter) LookupUser(ctx context.Context, query string) (kit.User, error) {
	if err := ctx.Err(); err != nil {
		return kit.User{}, err
	}
	var (
		chat *tele.Chat
		err  error
	)
	if id, ok := parseUserID(query); ok {
		chat, err = a.bot.ChatByID(id)
	} else {
		chat, err = a.bot.ChatByUsername("@" + strings.TrimPrefix(strings.TrimSpace(query), "@"))
	}
	if err != nil {
		if isLookupMiss(err) {
			return kit.User{}, kit.ErrNotFound
		}
		return kit.User{}, err
	}
	if chat == nil {
		return kit.User{}, kit.ErrNotFound
	}
	return kit.User{ID: chat.ID, FirstName: chatName(chat), Username: chat.Username}, nil
}

func (a *Adapter) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.bot.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{Text: text})
}

// UpdateMenuCommands publishes the command menu (setMyCommands).
func (a *Adapter) UpdateMenuCommands(ctx context.Context, cmds []kit.BotCommand) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tc := make([]tele.Command, 0, len(cmds))
	for _, c := range cmds {
		if c.Command == "" {
			continue
		}
		tc = append(tc, tele.Command{Text: c.Command, Description: c.Description})
	}
	if err := a.bot.SetCommands(tc); err != nil {
		return err
	}
	a.log.Info("menu commands updated", logx.Int("count", len(tc)))
	return nil
}

// SendAlert implements logx.Sender.
func (a *Adapter) SendAlert(ctx context.Context, chatID int64, text string) error {
	_, err := a.SendText(ctx, kit.ChatTarget{ChatID: chatID}, text, &kit.SendOptions{DisablePreview: true})
	return err
}
