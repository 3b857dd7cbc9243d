package broadcast

import (
	"context"
	"errors"
	"iter"
	"time"

	"evara/internal/storage"
	"evara/internal/transport"
)

// ErrBusy is returned by Run while another broadcast is running.
var ErrBusy = errors.New("broadcast: already running")

type Config struct {
	// Pause is slept after each first-attempt delivery.
	Pause time.Duration
}

type State int

const (
	Idle State = iota
	Running
	Completed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Completed:
		return "completed"
	default:
		return "idle"
	}
}

// Forwarder delivers a copy of an existing message.
type Forwarder interface {
	Forward(ctx context.Context, to transport.ChatTarget, src transport.MessageRef) error
}

// Members is the membership API a run reads and prunes.
type Members interface {
	AllUsers(ctx context.Context) iter.Seq2[int64, error]
	AllGroups(ctx context.Context) iter.Seq2[int64, error]
	ForgetUser(ctx context.Context, id int64) error
	ForgetGroup(ctx context.Context, id int64) error
}

// RunLog persists completed runs. storage.Store satisfies it.
type RunLog interface {
	AppendRun(ctx context.Context, r storage.BroadcastRun) error
}

// Tally counts outcomes for one collection.
type Tally struct {
	Sent    int
	Removed int
	Skipped int
}

// Report is the result of one run.
type Report struct {
	Source     transport.MessageRef
	Users      Tally
	Groups     Tally
	StartedAt  time.Time
	FinishedAt time.Time
	// Err is set when the run stopped early (context cancelled or the
	// membership read failed). Counts cover what was done before.
	Err error
}

func (r Report) record() storage.BroadcastRun {
	return storage.BroadcastRun{
		StartedAt:       r.StartedAt,
		FinishedAt:      r.FinishedAt,
		SourceChatID:    r.Source.ChatID,
		SourceMessageID: r.Source.MessageID,
		UsersSent:       r.Users.Sent,
		UsersRemoved:    r.Users.Removed,
		UsersSkipped:    r.Users.Skipped,
		GroupsSent:      r.Groups.Sent,
		GroupsRemoved:   r.Groups.Removed,
	}
}

// Status is a snapshot of the controller.
type Status struct {
	State State
	// Progress is the running tally while State is Running, otherwise the
	// last report.
	Progress Report
}
