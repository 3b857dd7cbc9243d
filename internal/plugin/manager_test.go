package plugin

import (
	"context"
	"errors"
	"strings"
	"testing"

	"evara/internal/transport/telegram/router"
	logx "evara/pkg/logx"
)

type stub struct {
	name   string
	cmds   []string
	cbs    []string
	ev     Events
	events bool
	log    *[]string
	fail   bool
}

func (s *stub) Name() string { return s.name }

func (s *stub) Commands() []router.Command {
	var out []router.Command
	for _, c := range s.cmds {
		out = append(out, router.Command{Name: c, Handle: noop})
	}
	return out
}

func (s *stub) Callbacks() []router.CallbackRoute {
	var out []router.CallbackRoute
	for _, id := range s.cbs {
		out = append(out, router.CallbackRoute{ID: id, Handle: noop})
	}
	return out
}

func (s *stub) Events() Events { return s.ev }

func (s *stub) Start(context.Context) error {
	if s.fail {
		panic("start exploded")
	}
	*s.log = append(*s.log, "start:"+s.name)
	return nil
}

func (s *stub) Stop(context.Context) error {
	*s.log = append(*s.log, "stop:"+s.name)
	return nil
}

func noop(context.Context, *router.Request) error { return nil }

func TestRegistryMerges(t *testing.T) {
	t.Parallel()

	var log []string
	m := NewPluginManager(logx.Nop())
	m.Register(
		&stub{name: "home", cmds: []string{"start"}, cbs: []string{"help_section"}, ev: Events{Join: noop, Fallback: noop}, log: &log},
		&stub{name: "ask", cmds: []string{"ask"}, log: &log},
	)
	reg, err := m.Registry(0)
	if err != nil {
		t.Fatalf("Registry: %v", err)
	}
	if len(reg.Commands) != 2 || reg.Commands[0].Name != "start" || len(reg.Callbacks) != 1 {
		t.Fatalf("registry=%+v", reg)
	}
	if reg.Join == nil || reg.Fallback == nil {
		t.Fatalf("events not merged")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	t.Parallel()

	var log []string
	cases := []struct {
		name string
		a, b *stub
		want string
	}{
		{name: "command", a: &stub{name: "a", cmds: []string{"id"}, log: &log}, b: &stub{name: "b", cmds: []string{"id"}, log: &log}, want: "/id"},
		{name: "callback", a: &stub{name: "a", cbs: []string{"go_home"}, log: &log}, b: &stub{name: "b", cbs: []string{"go_home"}, log: &log}, want: "go_home"},
		{name: "join", a: &stub{name: "a", ev: Events{Join: noop}, log: &log}, b: &stub{name: "b", ev: Events{Join: noop}, log: &log}, want: "join"},
	}
	for _, tc := range cases {
		m := NewPluginManager(logx.Nop())
		m.Register(tc.a, tc.b)
		_, err := m.Registry(0)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: err=%v", tc.name, err)
		}
	}
}

func TestStartStopOrder(t *testing.T) {
	t.Parallel()

	var log []string
	m := NewPluginManager(logx.Nop())
	m.Register(
		&stub{name: "a", log: &log},
		&stub{name: "broken", fail: true, log: &log},
		&stub{name: "b", log: &log},
	)
	m.StartAll(context.Background())
	m.StopAll(context.Background())

	want := []string{"start:a", "start:b", "stop:b", "stop:a"}
	if strings.Join(log, ",") != strings.Join(want, ",") {
		t.Fatalf("log=%v want %v", log, want)
	}
}

func TestGuard(t *testing.T) {
	t.Parallel()

	if err := guard(func() error { return errors.New("x") }); err == nil || err.Error() != "x" {
		t.Fatalf("err=%v", err)
	}
	if err := guard(func() error { panic("y") }); err == nil || !strings.HasPrefix(err.Error(), "panic: y") {
		t.Fatalf("err=%v", err)
	}
}
