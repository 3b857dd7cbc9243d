// Package router turns inbound updates into handler calls: exact command
// tokens, exact callback ids, join events and the private-chat fallback.
package router

import (
	"context"
	"slices"
	"strings"
	"time"

	kit "evara/internal/transport"
	logx "evara/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	// AccessOwnerOnly routes are silently ignored for everyone else.
	AccessOwnerOnly
)

type HandlerFunc func(ctx context.Context, req *Request) error

type Command struct {
	// Name is the command token without the slash, e.g. "ask".
	Name        string
	Description string
	Usage       string
	Access      Access
	// Menu publishes the command in the client's command menu.
	Menu bool
	// Timeout bounds the handler. Zero means no limit.
	Timeout time.Duration
	Handle  HandlerFunc
}

// CallbackRoute matches an inline-button press by its exact data string.
type CallbackRoute struct {
	ID      string
	Timeout time.Duration
	Handle  HandlerFunc
}

// Registry is everything the dispatcher routes to. Join and Fallback may be
// nil.
type Registry struct {
	Commands  []Command
	Callbacks []CallbackRoute
	// Join receives messages announcing new chat members.
	Join HandlerFunc
	// Fallback receives private free text that is not a command.
	Fallback HandlerFunc
	// EventTimeout bounds Join and Fallback.
	EventTimeout time.Duration
}

type Request struct {
	Update   kit.Update
	Message  *kit.Message
	Callback *kit.Callback
	Chat     kit.ChatTarget
	From     kit.User

	// Command is the matched route: the command token, "cb:<id>", "join"
	// or "fallback".
	Command string
	// Args is the text after the command token with outer whitespace
	// trimmed and inner whitespace untouched.
	Args string
	// Fields is Args split on whitespace.
	Fields []string
	ReqID  string

	Self    kit.User
	Adapter kit.Adapter
	Logger  logx.Logger
	Owners  []int64
}

// Reply sends text to the request's chat. For message requests it replies to
// the triggering message.
func (r *Request) Reply(ctx context.Context, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	o := kit.SendOptions{}
	if opt != nil {
		o = *opt
	}
	if r.Message != nil && o.ReplyTo == 0 {
		o.ReplyTo = r.Message.ID
	}
	return r.Adapter.SendText(ctx, r.Chat, text, &o)
}

// ReplyHTML is Reply with HTML parse mode and link previews off.
func (r *Request) ReplyHTML(ctx context.Context, text string) (kit.MessageRef, error) {
	return r.Reply(ctx, text, &kit.SendOptions{ParseMode: "HTML", DisablePreview: true})
}

// Target is the callback's message, or the triggering message.
func (r *Request) Target() kit.MessageRef {
	if r.Callback != nil {
		return kit.MessageRef{ChatID: r.Callback.ChatID, ThreadID: r.Callback.ThreadID, MessageID: r.Callback.MessageID}
	}
	if r.Message != nil {
		return r.Message.Ref()
	}
	return kit.MessageRef{ChatID: r.Chat.ChatID, ThreadID: r.Chat.ThreadID}
}

func (r *Request) IsOwner() bool { return isOwner(r.From.ID, r.Owners) }

// ReplyTo is the message the triggering message replies to, if any.
func (r *Request) ReplyTo() *kit.Message {
	if r.Message == nil {
		return nil
	}
	return r.Message.ReplyTo
}

func isOwner(id int64, owners []int64) bool {
	return id != 0 && slices.Contains(owners, id)
}

// parseCommand extracts the command token and raw arguments from body. The
// token is lower-cased and loses its @username suffix; addressed is false
// when the suffix names another bot.
func parseCommand(body, self string) (name, args string, addressed, ok bool) {
	body = strings.TrimLeft(body, " \t\r\n")
	if !strings.HasPrefix(body, "/") {
		return "", "", false, false
	}
	end := strings.IndexFunc(body, isSpace)
	token, rest := body, ""
	if end >= 0 {
		token, rest = body[:end], body[end:]
	}
	token = strings.TrimPrefix(token, "/")
	addressed = true
	if i := strings.IndexByte(token, '@'); i >= 0 {
		target := token[i+1:]
		token = token[:i]
		if self != "" && !strings.EqualFold(target, self) {
			addressed = false
		}
	}
	if token == "" {
		return "", "", false, false
	}
	return strings.ToLower(token), strings.TrimSpace(rest), addressed, true
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
