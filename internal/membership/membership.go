// Package membership owns the sets of known users and groups. Handlers
// record and forget members only through this package.
package membership

import (
	"context"
	"errors"
	"iter"
	"time"

	"evara/internal/storage"
	logx "evara/pkg/logx"
)

// ErrNotConnected is returned by queries when no store is available.
var ErrNotConnected = errors.New("membership: store not connected")

// Spawner runs fn in the background. *supervisor.Supervisor satisfies it.
type Spawner interface {
	Go0(name string, fn func(ctx context.Context))
}

// Outcome is the result of a best-effort write. It is logged and then
// discarded; callers never wait for it on the reply path.
type Outcome struct {
	Kind     storage.Collection
	ID       int64
	Inserted bool
	Err      error
}

type Service struct {
	store   storage.Store
	spawn   Spawner
	log     logx.Logger
	timeout time.Duration
}

// New wraps store. A nil store yields a service that reports not connected.
func New(store storage.Store, spawn Spawner, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{store: store, spawn: spawn, log: log.With(logx.String("comp", "membership")), timeout: 10 * time.Second}
}

// Connected reports whether a store was initialised at startup.
func (s *Service) Connected() bool { return s != nil && s.store != nil }

// Store exposes the backend for components that keep their own records.
func (s *Service) Store() storage.Store { return s.store }

func (s *Service) RecordUser(ctx context.Context, id int64) Outcome {
	return s.record(ctx, storage.Users, id)
}

func (s *Service) RecordGroup(ctx context.Context, id int64) Outcome {
	return s.record(ctx, storage.Groups, id)
}

// RecordUserAsync records id in the background. The returned channel
// receives exactly one Outcome and is never closed.
func (s *Service) RecordUserAsync(id int64) <-chan Outcome {
	return s.recordAsync(storage.Users, id)
}

func (s *Service) RecordGroupAsync(id int64) <-chan Outcome {
	return s.recordAsync(storage.Groups, id)
}

func (s *Service) record(ctx context.Context, c storage.Collection, id int64) Outcome {
	out := Outcome{Kind: c, ID: id}
	if !s.Connected() {
		out.Err = ErrNotConnected
		return out
	}
	out.Inserted, out.Err = s.store.Insert(ctx, c, id)
	s.report(out)
	return out
}

func (s *Service) recordAsync(c storage.Collection, id int64) <-chan Outcome {
	ch := make(chan Outcome, 1)
	if !s.Connected() {
		ch <- Outcome{Kind: c, ID: id, Err: ErrNotConnected}
		return ch
	}
	run := func(ctx context.Context) {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		ch <- s.record(wctx, c, id)
	}
	if s.spawn == nil {
		go run(context.Background())
		return ch
	}
	s.spawn.Go0("membership.record."+string(c), run)
	return ch
}

func (s *Service) report(o Outcome) {
	if o.Err != nil {
		s.log.Warn("membership write failed", logx.String("collection", string(o.Kind)), logx.Int64("id", o.ID), logx.Err(o.Err))
		return
	}
	if o.Inserted {
		s.log.Debug("member recorded", logx.String("collection", string(o.Kind)), logx.Int64("id", o.ID))
	}
}

// ForgetUser deletes id. Absent ids are fine.
func (s *Service) ForgetUser(ctx context.Context, id int64) error {
	return s.forget(ctx, storage.Users, id)
}

func (s *Service) ForgetGroup(ctx context.Context, id int64) error {
	return s.forget(ctx, storage.Groups, id)
}

func (s *Service) forget(ctx context.Context, c storage.Collection, id int64) error {
	if !s.Connected() {
		return ErrNotConnected
	}
	if err := s.store.Delete(ctx, c, id); err != nil {
		s.log.Warn("membership delete failed", logx.String("collection", string(c)), logx.Int64("id", id), logx.Err(err))
		return err
	}
	s.log.Info("member removed", logx.String("collection", string(c)), logx.Int64("id", id))
	return nil
}

func (s *Service) CountUsers(ctx context.Context) (int64, error) {
	return s.count(ctx, storage.Users)
}

func (s *Service) CountGroups(ctx context.Context) (int64, error) {
	return s.count(ctx, storage.Groups)
}

func (s *Service) count(ctx context.Context, c storage.Collection) (int64, error) {
	if !s.Connected() {
		return 0, ErrNotConnected
	}
	return s.store.Count(ctx, c)
}

// AllUsers yields every known user id once, from a fresh read.
func (s *Service) AllUsers(ctx context.Context) iter.Seq2[int64, error] {
	return s.all(ctx, storage.Users)
}

func (s *Service) AllGroups(ctx context.Context) iter.Seq2[int64, error] {
	return s.all(ctx, storage.Groups)
}

func (s *Service) all(ctx context.Context, c storage.Collection) iter.Seq2[int64, error] {
	if !s.Connected() {
		return func(yield func(int64, error) bool) { yield(0, ErrNotConnected) }
	}
	return s.store.IDs(ctx, c)
}
