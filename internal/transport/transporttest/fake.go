// Package transporttest provides an in-memory transport.Adapter that records
// every outbound call.
package transporttest

import (
	"context"
	"sync"

	kit "evara/internal/transport"
)

// Kind names the adapter method that produced a Call.
type Kind string

const (
	KindText        Kind = "text"
	KindPhoto       Kind = "photo"
	KindAudio       Kind = "audio"
	KindEditText    Kind = "edit_text"
	KindEditCaption Kind = "edit_caption"
	KindDelete      Kind = "delete"
	KindForward     Kind = "forward"
	KindNotify      Kind = "notify"
	KindAnswer      Kind = "answer"
	KindMenu        Kind = "menu"
)

type Call struct {
	Kind   Kind
	To     kit.ChatTarget
	Ref    kit.MessageRef
	Text   string
	URL    string
	Path   string
	Action kit.ChatAction
	Opt    kit.SendOptions
	Menu   []kit.BotCommand
}

// Adapter is a fake kit.Adapter. Errors for a method are taken from Fail
// (keyed by Kind) when set. Users backs LookupUser.
type Adapter struct {
	mu     sync.Mutex
	calls  []Call
	nextID int

	Me    kit.User
	Fail  map[Kind]error
	Users map[string]kit.User

	// OnAudio, when set, is called with the audio file path before the send
	// is recorded. The file still exists at that point.
	OnAudio func(path string)
}

func New() *Adapter {
	return &Adapter{Me: kit.User{ID: 100, FirstName: "Evara", Username: "EvaraBot", IsBot: true}}
}

func (a *Adapter) record(c Call) (kit.MessageRef, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.Fail[c.Kind]; err != nil {
		return kit.MessageRef{}, err
	}
	a.nextID++
	a.calls = append(a.calls, c)
	return kit.MessageRef{ChatID: c.To.ChatID, ThreadID: c.To.ThreadID, MessageID: 1000 + a.nextID}, nil
}

func opt(o *kit.SendOptions) kit.SendOptions {
	if o == nil {
		return kit.SendOptions{}
	}
	return *o
}

// Calls returns a copy of every recorded call.
func (a *Adapter) Calls() []Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Call(nil), a.calls...)
}

// Of returns the recorded calls of one kind.
func (a *Adapter) Of(k Kind) []Call {
	var out []Call
	for _, c := range a.Calls() {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// Texts returns the bodies of sent and edited text messages in order.
func (a *Adapter) Texts() []string {
	var out []string
	for _, c := range a.Calls() {
		if c.Kind == KindText || c.Kind == KindEditText || c.Kind == KindEditCaption {
			out = append(out, c.Text)
		}
	}
	return out
}

func (a *Adapter) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (a *Adapter) Stop(ctx context.Context) error                         { return nil }
func (a *Adapter) Self() kit.User                                         { return a.Me }

func (a *Adapter) SendText(_ context.Context, to kit.ChatTarget, text string, o *kit.SendOptions) (kit.MessageRef, error) {
	return a.record(Call{Kind: KindText, To: to, Text: text, Opt: opt(o)})
}

func (a *Adapter) SendPhoto(_ context.Context, to kit.ChatTarget, url, caption string, o *kit.SendOptions) (kit.MessageRef, error) {
	return a.record(Call{Kind: KindPhoto, To: to, URL: url, Text: caption, Opt: opt(o)})
}

func (a *Adapter) SendAudio(_ context.Context, to kit.ChatTarget, path, caption string, o *kit.SendOptions) (kit.MessageRef, error) {
	if a.OnAudio != nil {
		a.OnAudio(path)
	}
	return a.record(Call{Kind: KindAudio, To: to, Path: path, Text: caption, Opt: opt(o)})
}

func (a *Adapter) EditText(_ context.Context, ref kit.MessageRef, text string, o *kit.SendOptions) error {
	_, err := a.record(Call{Kind: KindEditText, To: ref.Target(), Ref: ref, Text: text, Opt: opt(o)})
	return err
}

func (a *Adapter) EditCaption(_ context.Context, ref kit.MessageRef, caption string, o *kit.SendOptions) error {
	_, err := a.record(Call{Kind: KindEditCaption, To: ref.Target(), Ref: ref, Text: caption, Opt: opt(o)})
	return err
}

func (a *Adapter) Delete(_ context.Context, ref kit.MessageRef) error {
	_, err := a.record(Call{Kind: KindDelete, To: ref.Target(), Ref: ref})
	return err
}

func (a *Adapter) Forward(_ context.Context, to kit.ChatTarget, src kit.MessageRef) error {
	_, err := a.record(Call{Kind: KindForward, To: to, Ref: src})
	return err
}

func (a *Adapter) Notify(_ context.Context, to kit.ChatTarget, action kit.ChatAction) error {
	_, err := a.record(Call{Kind: KindNotify, To: to, Action: action})
	return err
}

func (a *Adapter) LookupUser(_ context.Context, query string) (kit.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if u, ok := a.Users[query]; ok {
		return u, nil
	}
	return kit.User{}, kit.ErrNotFound
}

func (a *Adapter) AnswerCallback(_ context.Context, id string, text string) error {
	_, err := a.record(Call{Kind: KindAnswer, Text: text, URL: id})
	return err
}

func (a *Adapter) UpdateMenuCommands(_ context.Context, cmds []kit.BotCommand) error {
	_, err := a.record(Call{Kind: KindMenu, Menu: cmds})
	return err
}
