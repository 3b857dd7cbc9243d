package membership

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"evara/internal/storage"
	logx "evara/pkg/logx"
)

type failingStore struct {
	*storage.Memory
	err error
}

func (f failingStore) Insert(context.Context, storage.Collection, int64) (bool, error) {
	return false, f.err
}

func wait(t *testing.T, ch <-chan Outcome) Outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatalf("no outcome delivered")
		return Outcome{}
	}
}

func TestRecordUserIsIdempotent(t *testing.T) {
	t.Parallel()

	svc := New(storage.NewMemory(), nil, logx.Nop())
	ctx := context.Background()

	if o := svc.RecordUser(ctx, 7); o.Err != nil || !o.Inserted {
		t.Fatalf("first record = %+v", o)
	}
	if o := svc.RecordUser(ctx, 7); o.Err != nil || o.Inserted {
		t.Fatalf("second record = %+v", o)
	}
	if n, err := svc.CountUsers(ctx); err != nil || n != 1 {
		t.Fatalf("CountUsers = (%d, %v)", n, err)
	}
}

func TestRecordAsyncDeliversOutcome(t *testing.T) {
	t.Parallel()

	svc := New(storage.NewMemory(), nil, logx.Nop())
	o := wait(t, svc.RecordGroupAsync(-100))
	if o.Err != nil || !o.Inserted || o.Kind != storage.Groups {
		t.Fatalf("outcome = %+v", o)
	}
	if n, _ := svc.CountGroups(context.Background()); n != 1 {
		t.Fatalf("groups=%d", n)
	}
}

func TestRecordFailureIsReportedNotRaised(t *testing.T) {
	t.Parallel()

	boom := errors.New("write refused")
	svc := New(failingStore{Memory: storage.NewMemory(), err: boom}, nil, logx.Nop())
	o := wait(t, svc.RecordUserAsync(1))
	if !errors.Is(o.Err, boom) {
		t.Fatalf("outcome err = %v", o.Err)
	}
}

func TestForgetAbsentIsNoop(t *testing.T) {
	t.Parallel()

	svc := New(storage.NewMemory(), nil, logx.Nop())
	if err := svc.ForgetUser(context.Background(), 12345); err != nil {
		t.Fatalf("ForgetUser: %v", err)
	}
	if err := svc.ForgetGroup(context.Background(), -12345); err != nil {
		t.Fatalf("ForgetGroup: %v", err)
	}
}

func TestNotConnected(t *testing.T) {
	t.Parallel()

	svc := New(nil, nil, logx.Nop())
	if svc.Connected() {
		t.Fatalf("nil store must not be connected")
	}
	if _, err := svc.CountUsers(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("CountUsers err = %v", err)
	}
	if o := wait(t, svc.RecordUserAsync(1)); !errors.Is(o.Err, ErrNotConnected) {
		t.Fatalf("record err = %v", o.Err)
	}
	next, stop := iter.Pull2(svc.AllUsers(context.Background()))
	defer stop()
	if _, err, ok := next(); !ok || !errors.Is(err, ErrNotConnected) {
		t.Fatalf("AllUsers first item = (%v, %v)", err, ok)
	}
}
