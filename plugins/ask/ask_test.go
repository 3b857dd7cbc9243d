package ask

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"evara/internal/membership"
	"evara/internal/services/callout"
	kit "evara/internal/transport"
	"evara/internal/transport/telegram/router"
	"evara/internal/transport/transporttest"
	logx "evara/pkg/logx"
)

type fakeLLM struct {
	mu        sync.Mutex
	questions []string
	answer    string
	err       error
}

func (f *fakeLLM) Ask(_ context.Context, q string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = append(f.questions, q)
	return f.answer, f.err
}

type fakeRecorder struct {
	mu  sync.Mutex
	ids []int64
}

func (f *fakeRecorder) RecordUserAsync(id int64) <-chan membership.Outcome {
	f.mu.Lock()
	f.ids = append(f.ids, id)
	f.mu.Unlock()
	ch := make(chan membership.Outcome, 1)
	ch <- membership.Outcome{ID: id}
	return ch
}

type denyAll struct{}

func (denyAll) AllowUser(context.Context, int64) bool { return false }

func request(fake *transporttest.Adapter, chatType kit.ChatType, args string) *router.Request {
	m := &kit.Message{ID: 11, ChatID: 5, ChatType: chatType, From: kit.User{ID: 5, FirstName: "Ana"}, Text: "/ask " + args}
	return &router.Request{
		Message: m,
		Chat:    kit.ChatTarget{ChatID: m.ChatID},
		From:    m.From,
		Command: "ask",
		Args:    args,
		Fields:  strings.Fields(args),
		Self:    fake.Self(),
		Adapter: fake,
		Logger:  logx.Nop(),
	}
}

func TestAskUsageWithoutQuestion(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{answer: "x"}
	fake := transporttest.New()
	p := New(llm, &fakeRecorder{}, nil, 0, logx.Nop())

	if err := p.handle(context.Background(), request(fake, kit.ChatPrivate, "")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := fake.Texts(); len(got) != 1 || got[0] != usageText {
		t.Fatalf("texts=%q", got)
	}
	if len(llm.questions) != 0 {
		t.Fatalf("model called without a question")
	}
}

func TestAskRepliesAndRecordsPrivateUser(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{answer: "Paris."}
	rec := &fakeRecorder{}
	fake := transporttest.New()
	p := New(llm, rec, nil, 0, logx.Nop())

	if err := p.handle(context.Background(), request(fake, kit.ChatPrivate, "capital of  France?")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(llm.questions) != 1 || llm.questions[0] != "capital of  France?" {
		t.Fatalf("questions=%q", llm.questions)
	}
	if n := len(fake.Of(transporttest.KindNotify)); n != 1 {
		t.Fatalf("typing actions=%d", n)
	}
	texts := fake.Of(transporttest.KindText)
	if len(texts) != 1 || texts[0].Text != "Paris." || texts[0].Opt.ReplyTo != 11 {
		t.Fatalf("texts=%+v", texts)
	}
	if len(rec.ids) != 1 || rec.ids[0] != 5 {
		t.Fatalf("recorded=%v", rec.ids)
	}
}

func TestAskDoesNotRecordInGroups(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{}
	p := New(&fakeLLM{answer: "ok"}, rec, nil, 0, logx.Nop())
	if err := p.handle(context.Background(), request(transporttest.New(), kit.ChatSuperGroup, "hi")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(rec.ids) != 0 {
		t.Fatalf("recorded=%v", rec.ids)
	}
}

func TestAskChunksLongAnswers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		runes int
		parts int
	}{
		{name: "exact", runes: MaxMessageRunes, parts: 1},
		{name: "one over", runes: MaxMessageRunes + 1, parts: 2},
		{name: "three", runes: 2*MaxMessageRunes + 7, parts: 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			answer := strings.Repeat("é", tc.runes)
			fake := transporttest.New()
			p := New(&fakeLLM{answer: answer}, &fakeRecorder{}, nil, 0, logx.Nop())
			if err := p.handle(context.Background(), request(fake, kit.ChatGroup, "q")); err != nil {
				t.Fatalf("handle: %v", err)
			}
			texts := fake.Texts()
			if len(texts) != tc.parts {
				t.Fatalf("parts=%d want %d", len(texts), tc.parts)
			}
			for i, part := range texts {
				if n := len([]rune(part)); n > MaxMessageRunes {
					t.Fatalf("part %d has %d runes", i, n)
				}
			}
			if strings.Join(texts, "") != answer {
				t.Fatalf("parts do not join back to the answer")
			}
		})
	}
}

func TestAskReportsFailure(t *testing.T) {
	t.Parallel()

	fake := transporttest.New()
	llm := &fakeLLM{err: callout.Status("assistant", 429, "rate <limit>")}
	p := New(llm, &fakeRecorder{}, nil, 0, logx.Nop())

	if err := p.handle(context.Background(), request(fake, kit.ChatPrivate, "q")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	texts := fake.Of(transporttest.KindText)
	if len(texts) != 1 {
		t.Fatalf("texts=%+v", texts)
	}
	got := texts[0]
	if got.Opt.ParseMode != "HTML" || !strings.HasPrefix(got.Text, "ᴇʀʀᴏʀ: ") ||
		!strings.Contains(got.Text, "rate &lt;limit&gt;") || !strings.HasSuffix(got.Text, "<i>Try again later.</i>") {
		t.Fatalf("error reply=%q", got.Text)
	}
	if len(llm.questions) != 1 {
		t.Fatalf("failure must not be retried")
	}
}

func TestAskStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fake := transporttest.New()
	p := New(&fakeLLM{err: &callout.Failure{Service: "assistant", Kind: callout.Canceled, Err: context.Canceled}}, &fakeRecorder{}, nil, 0, logx.Nop())

	err := p.handle(ctx, request(fake, kit.ChatPrivate, "q"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
	if n := len(fake.Of(transporttest.KindText)); n != 0 {
		t.Fatalf("replied after cancel")
	}
}

// strictAdapter refuses sends on a finished context like the real adapter.
type strictAdapter struct {
	*transporttest.Adapter
}

func (a strictAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, o *kit.SendOptions) (kit.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return kit.MessageRef{}, err
	}
	return a.Adapter.SendText(ctx, to, text, o)
}

func TestAskReportsFailureAfterDeadline(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	fake := transporttest.New()
	req := request(fake, kit.ChatPrivate, "q")
	req.Adapter = strictAdapter{fake}
	llm := &fakeLLM{err: &callout.Failure{Service: "assistant", Kind: callout.Canceled, Err: context.DeadlineExceeded}}
	p := New(llm, &fakeRecorder{}, nil, 0, logx.Nop())

	if err := p.handle(ctx, req); err != nil {
		t.Fatalf("handle: %v", err)
	}
	texts := fake.Of(transporttest.KindText)
	if len(texts) != 1 || !strings.HasPrefix(texts[0].Text, "ᴇʀʀᴏʀ: ") {
		t.Fatalf("texts=%+v", texts)
	}
}

func TestAskCooldown(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{answer: "x"}
	fake := transporttest.New()
	p := New(llm, &fakeRecorder{}, denyAll{}, 0, logx.Nop())

	if err := p.handle(context.Background(), request(fake, kit.ChatPrivate, "q")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if got := fake.Texts(); len(got) != 1 || got[0] != cooldownText {
		t.Fatalf("texts=%q", got)
	}
	if len(llm.questions) != 0 {
		t.Fatalf("model called during cooldown")
	}
}
