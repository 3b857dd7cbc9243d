// Package transport defines the platform-neutral update and adapter types
// handlers are written against.
package transport

import (
	"context"
	"errors"
)

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateCallback UpdateKind = "callback"
)

type Update struct {
	Kind     UpdateKind
	Message  *Message
	Callback *Callback
}

type ChatType string

const (
	ChatPrivate    ChatType = "private"
	ChatGroup      ChatType = "group"
	ChatSuperGroup ChatType = "supergroup"
	ChatChannel    ChatType = "channel"
)

type User struct {
	ID        int64
	FirstName string
	Username  string
	IsBot     bool
}

// Message is an inbound message. Commands may arrive in Text or, for media,
// in Caption.
type Message struct {
	ID       int
	ChatID   int64
	ChatType ChatType
	ThreadID int
	From     User
	Text     string
	Caption  string
	ReplyTo  *Message

	// SenderChat is set when a channel or an anonymous admin posted the
	// message; From is then empty or a placeholder.
	SenderChat *SenderChat

	// NewMembers is set on join service messages.
	NewMembers []User
}

type SenderChat struct {
	ID    int64
	Title string
}

func (m *Message) IsPrivate() bool { return m != nil && m.ChatType == ChatPrivate }

// Body returns the text, or the caption when the message has no text.
func (m *Message) Body() string {
	if m == nil {
		return ""
	}
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

func (m *Message) Ref() MessageRef {
	return MessageRef{ChatID: m.ChatID, ThreadID: m.ThreadID, MessageID: m.ID}
}

type Callback struct {
	ID        string
	From      User
	ChatID    int64
	ThreadID  int
	MessageID int
	Data      string
}

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

func (r MessageRef) Target() ChatTarget { return ChatTarget{ChatID: r.ChatID, ThreadID: r.ThreadID} }

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	// ReplyTo is the message id to reply to (0 for none).
	ReplyTo            int
	ReplyMarkupAdapter any // adapter-specific markup (Telegram: *telebot.ReplyMarkup)
}

type ChatAction string

const (
	ActionTyping      ChatAction = "typing"
	ActionRecordAudio ChatAction = "record_voice"
)

// ErrNotFound is returned by LookupUser when the directory has no match.
var ErrNotFound = errors.New("transport: not found")

type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	// Self is the bot's own account. Valid after construction.
	Self() User

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	SendPhoto(ctx context.Context, to ChatTarget, url, caption string, opt *SendOptions) (MessageRef, error)
	SendAudio(ctx context.Context, to ChatTarget, path, caption string, opt *SendOptions) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, opt *SendOptions) error
	EditCaption(ctx context.Context, ref MessageRef, caption string, opt *SendOptions) error
	Delete(ctx context.Context, ref MessageRef) error
	Forward(ctx context.Context, to ChatTarget, src MessageRef) error
	Notify(ctx context.Context, to ChatTarget, action ChatAction) error
	LookupUser(ctx context.Context, query string) (User, error)
	AnswerCallback(ctx context.Context, callbackID string, text string) error
}

// BotCommand is one entry of the bot command menu.
type BotCommand struct {
	Command     string
	Description string
}

// CommandMenuUpdater is implemented by adapters that can publish a command
// menu.
type CommandMenuUpdater interface {
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
