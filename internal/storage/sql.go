package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"iter"
	"math"
	"strconv"
	"strings"
	"time"

	logx "evara/pkg/logx"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// idPageSize bounds one keyset page of IDs.
const idPageSize = 500

// sqlStore serves both sqlite and postgres. Queries are written with "?"
// and rebound for dialects that number their placeholders.
type sqlStore struct {
	db       *sql.DB
	log      logx.Logger
	numbered bool
}

func (s *sqlStore) q(query string) string {
	if !s.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func table(c Collection) (string, error) {
	switch c {
	case Users:
		return "bot_users", nil
	case Groups:
		return "bot_groups", nil
	default:
		return "", c.valid()
	}
}

func (s *sqlStore) migrate(ctx context.Context, name string) error {
	b, err := migrationsFS.ReadFile("migrations/" + name)
	if err != nil {
		return err
	}
	for _, stmt := range strings.Split(string(b), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert relies on the primary key: ON CONFLICT DO NOTHING is the
// presence check and the insert in one statement.
func (s *sqlStore) Insert(ctx context.Context, c Collection, id int64) (bool, error) {
	t, err := table(c)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO `+t+`(id, created_at) VALUES(?, ?) ON CONFLICT(id) DO NOTHING`),
		id, time.Now().UnixMilli())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *sqlStore) Delete(ctx context.Context, c Collection, id int64) error {
	t, err := table(c)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q(`DELETE FROM `+t+` WHERE id = ?`), id)
	return err
}

func (s *sqlStore) Count(ctx context.Context, c Collection) (int64, error) {
	t, err := table(c)
	if err != nil {
		return 0, err
	}
	var n int64
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+t).Scan(&n)
	return n, err
}

// IDs pages through the table by key. No cursor stays open between pages,
// so callers may delete while iterating.
func (s *sqlStore) IDs(ctx context.Context, c Collection) iter.Seq2[int64, error] {
	return func(yield func(int64, error) bool) {
		t, err := table(c)
		if err != nil {
			yield(0, err)
			return
		}
		query := s.q(`SELECT id FROM ` + t + ` WHERE id > ? ORDER BY id LIMIT ?`)
		after := int64(math.MinInt64)
		for {
			page, err := s.page(ctx, query, after)
			if err != nil {
				yield(0, err)
				return
			}
			for _, id := range page {
				if !yield(id, nil) {
					return
				}
			}
			if len(page) < idPageSize {
				return
			}
			after = page[len(page)-1]
		}
	}
}

func (s *sqlStore) page(ctx context.Context, query string, after int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, after, idPageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]int64, 0, idPageSize)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *sqlStore) AppendRun(ctx context.Context, r BroadcastRun) error {
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO broadcast_runs(
		started_at, finished_at, source_chat_id, source_message_id,
		users_sent, users_removed, users_skipped, groups_sent, groups_removed)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli(), r.SourceChatID, r.SourceMessageID,
		r.UsersSent, r.UsersRemoved, r.UsersSkipped, r.GroupsSent, r.GroupsRemoved)
	return err
}

func (s *sqlStore) LastRun(ctx context.Context) (BroadcastRun, bool, error) {
	var (
		r                 BroadcastRun
		started, finished int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT started_at, finished_at, source_chat_id, source_message_id,
		users_sent, users_removed, users_skipped, groups_sent, groups_removed
		FROM broadcast_runs ORDER BY id DESC LIMIT 1`).Scan(
		&started, &finished, &r.SourceChatID, &r.SourceMessageID,
		&r.UsersSent, &r.UsersRemoved, &r.UsersSkipped, &r.GroupsSent, &r.GroupsRemoved)
	if errors.Is(err, sql.ErrNoRows) {
		return BroadcastRun{}, false, nil
	}
	if err != nil {
		return BroadcastRun{}, false, err
	}
	r.StartedAt = time.UnixMilli(started)
	r.FinishedAt = time.UnixMilli(finished)
	return r, true, nil
}

func (s *sqlStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
