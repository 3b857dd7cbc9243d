package owner

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"evara/internal/membership"
	"evara/internal/services/broadcast"
	"evara/internal/storage"
	kit "evara/internal/transport"
	"evara/internal/transport/telegram/router"
	"evara/internal/transport/transporttest"
	logx "evara/pkg/logx"
)

type countingStats struct {
	connected bool
	calls     atomic.Int32
}

func (s *countingStats) Connected() bool { return s.connected }

func (s *countingStats) CountUsers(context.Context) (int64, error) {
	s.calls.Add(1)
	return 0, nil
}

func (s *countingStats) CountGroups(context.Context) (int64, error) {
	s.calls.Add(1)
	return 0, nil
}

type busyBroadcaster struct{}

func (busyBroadcaster) Run(context.Context, kit.MessageRef) (broadcast.Report, error) {
	return broadcast.Report{}, broadcast.ErrBusy
}

func ownerReq(fake *transporttest.Adapter, reply *kit.Message) *router.Request {
	m := &kit.Message{ID: 30, ChatID: 8071471652, ChatType: kit.ChatPrivate, From: kit.User{ID: 8071471652, FirstName: "Owner"}, ReplyTo: reply}
	return &router.Request{
		Message: m,
		Chat:    kit.ChatTarget{ChatID: m.ChatID},
		From:    m.From,
		Self:    fake.Self(),
		Adapter: fake,
		Logger:  logx.Nop(),
		Owners:  []int64{8071471652},
	}
}

type fixture struct {
	store   *storage.Memory
	members *membership.Service
	fake    *transporttest.Adapter
	plugin  *Plugin
}

func newFixture(t *testing.T, users, groups []int64) *fixture {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemory()
	members := membership.New(store, nil, logx.Nop())
	for _, id := range users {
		if o := members.RecordUser(ctx, id); o.Err != nil {
			t.Fatalf("seed user: %v", o.Err)
		}
	}
	for _, id := range groups {
		if o := members.RecordGroup(ctx, id); o.Err != nil {
			t.Fatalf("seed group: %v", o.Err)
		}
	}
	fake := transporttest.New()
	bc := broadcast.New(broadcast.Config{}, fake, members, store, logx.Nop())
	p := New(Config{UpdatesURL: "https://t.me/Evara_Updates", Location: time.UTC}, members, store, bc, logx.Nop())
	return &fixture{store: store, members: members, fake: fake, plugin: p}
}

func TestStatsWithoutStoreDoesNotCount(t *testing.T) {
	t.Parallel()

	stats := &countingStats{}
	fake := transporttest.New()
	p := New(Config{}, stats, nil, busyBroadcaster{}, logx.Nop())

	if err := p.handleStats(context.Background(), ownerReq(fake, nil)); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if got := fake.Texts(); len(got) != 1 || got[0] != notConnectedText {
		t.Fatalf("texts=%q", got)
	}
	if n := stats.calls.Load(); n != 0 {
		t.Fatalf("count queries=%d", n)
	}
}

func TestStatsReportsCounts(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []int64{1, 2}, []int64{-10})
	if err := f.plugin.handleStats(context.Background(), ownerReq(f.fake, nil)); err != nil {
		t.Fatalf("stats: %v", err)
	}
	edits := f.fake.Of(transporttest.KindEditText)
	if len(edits) != 1 {
		t.Fatalf("edits=%+v", edits)
	}
	text := edits[0].Text
	for _, want := range []string{
		"ᴛᴏᴛᴀʟ ᴜsᴇʀs (ᴘʀɪᴠᴀᴛᴇ): <code>2</code>",
		"ᴛᴏᴛᴀʟ ɢʀᴏᴜᴘs: <code>1</code>",
		`<a href="https://t.me/Evara_Updates">ᴇᴠᴀʀᴀ ʙᴏᴛs</a>`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("stats text %q missing %q", text, want)
		}
	}
	if strings.Contains(text, "ʟᴀsᴛ ʙʀᴏᴀᴅᴄᴀsᴛ") {
		t.Fatalf("last broadcast shown before any run")
	}
	if f.fake.Of(transporttest.KindText)[0].Text != statsStatus {
		t.Fatalf("status message missing")
	}
}

func TestStatsShowsLastBroadcast(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []int64{1}, nil)
	run := storage.BroadcastRun{FinishedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC), UsersSent: 7, GroupsSent: 2}
	if err := f.store.AppendRun(context.Background(), run); err != nil {
		t.Fatalf("append: %v", err)
	}
	text, err := f.plugin.StatsText(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(text, "ʟᴀsᴛ ʙʀᴏᴀᴅᴄᴀsᴛ: 2026-03-01 09:30, 7 users, 2 groups") {
		t.Fatalf("text=%q", text)
	}
}

func TestGcastNeedsReplyAndStore(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []int64{1}, nil)
	if err := f.plugin.handleGcast(context.Background(), ownerReq(f.fake, nil)); err != nil {
		t.Fatalf("gcast: %v", err)
	}
	if got := f.fake.Texts(); len(got) != 1 || got[0] != gcastUsage {
		t.Fatalf("texts=%q", got)
	}

	fake := transporttest.New()
	p := New(Config{}, membership.New(nil, nil, logx.Nop()), nil, busyBroadcaster{}, logx.Nop())
	if err := p.handleGcast(context.Background(), ownerReq(fake, &kit.Message{ID: 1, ChatID: 8071471652})); err != nil {
		t.Fatalf("gcast: %v", err)
	}
	if got := fake.Texts(); len(got) != 1 || got[0] != notConnectedText {
		t.Fatalf("texts=%q", got)
	}
	if n := len(f.fake.Of(transporttest.KindForward)) + len(fake.Of(transporttest.KindForward)); n != 0 {
		t.Fatalf("forwards=%d", n)
	}
}

func TestGcastForwardsToEveryone(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []int64{1, 2}, []int64{-10})
	src := &kit.Message{ID: 44, ChatID: 8071471652, Text: "news"}
	if err := f.plugin.handleGcast(context.Background(), ownerReq(f.fake, src)); err != nil {
		t.Fatalf("gcast: %v", err)
	}

	fwd := f.fake.Of(transporttest.KindForward)
	if len(fwd) != 3 {
		t.Fatalf("forwards=%+v", fwd)
	}
	for _, c := range fwd {
		if c.Ref.MessageID != 44 || c.Ref.ChatID != 8071471652 {
			t.Fatalf("forwarded wrong message: %+v", c.Ref)
		}
	}
	edits := f.fake.Of(transporttest.KindEditText)
	want := "✅ <b>◉ Bʀᴏᴀᴅᴄᴀsᴛ Cᴏᴍᴘʟᴇᴛᴇᴅ.</b>\n\n✦ Sᴇɴᴛ ᴛᴏ <b>2</b> users.\n✦ Sᴇɴᴛ ᴛᴏ <b>1</b> groups."
	if len(edits) != 1 || edits[0].Text != want {
		t.Fatalf("edits=%+v", edits)
	}
	if _, ok, _ := f.store.LastRun(context.Background()); !ok {
		t.Fatalf("run not recorded")
	}
}

func TestGcastBusy(t *testing.T) {
	t.Parallel()

	fake := transporttest.New()
	p := New(Config{}, &countingStats{connected: true}, nil, busyBroadcaster{}, logx.Nop())
	if err := p.handleGcast(context.Background(), ownerReq(fake, &kit.Message{ID: 1, ChatID: 8071471652})); err != nil {
		t.Fatalf("gcast: %v", err)
	}
	edits := fake.Of(transporttest.KindEditText)
	if len(edits) != 1 || edits[0].Text != gcastBusy {
		t.Fatalf("edits=%+v", edits)
	}
}

func TestDigestJobSendsToOwners(t *testing.T) {
	t.Parallel()

	f := newFixture(t, []int64{1}, nil)
	job := f.plugin.DigestJob(f.fake, func() []int64 { return []int64{11, 12} })
	if err := job(context.Background()); err != nil {
		t.Fatalf("job: %v", err)
	}
	texts := f.fake.Of(transporttest.KindText)
	if len(texts) != 2 || texts[0].To.ChatID != 11 || texts[1].To.ChatID != 12 {
		t.Fatalf("texts=%+v", texts)
	}
	if !strings.Contains(texts[0].Text, "<code>1</code>") {
		t.Fatalf("digest=%q", texts[0].Text)
	}
}
