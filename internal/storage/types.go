package storage

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Collection names a membership set.
type Collection string

const (
	Users  Collection = "users"
	Groups Collection = "groups"
)

func (c Collection) valid() error {
	switch c {
	case Users, Groups:
		return nil
	default:
		return fmt.Errorf("storage: unknown collection %q", string(c))
	}
}

// Config configures storage. Durations are already parsed.
type Config struct {
	Driver         string
	URL            string
	Database       string
	Path           string
	BusyTimeout    time.Duration
	ConnectTimeout time.Duration
}

// BroadcastRun is the summary of one completed broadcast.
type BroadcastRun struct {
	StartedAt       time.Time `bson:"started_at"`
	FinishedAt      time.Time `bson:"finished_at"`
	SourceChatID    int64     `bson:"source_chat_id"`
	SourceMessageID int       `bson:"source_message_id"`
	UsersSent       int       `bson:"users_sent"`
	UsersRemoved    int       `bson:"users_removed"`
	UsersSkipped    int       `bson:"users_skipped"`
	GroupsSent      int       `bson:"groups_sent"`
	GroupsRemoved   int       `bson:"groups_removed"`
}

// Store is the persistence API behind the membership service.
type Store interface {
	// Insert adds id unless present. inserted is false when it already was.
	Insert(ctx context.Context, c Collection, id int64) (inserted bool, err error)
	// Delete removes id. A missing id is not an error.
	Delete(ctx context.Context, c Collection, id int64) error
	Count(ctx context.Context, c Collection) (int64, error)
	// IDs yields every id once. Each call starts a fresh read.
	IDs(ctx context.Context, c Collection) iter.Seq2[int64, error]

	AppendRun(ctx context.Context, r BroadcastRun) error
	LastRun(ctx context.Context) (BroadcastRun, bool, error)

	Ping(ctx context.Context) error
	Close() error
}
