package storage

import (
	"context"
	"iter"
	"slices"
	"sync"
)

// Memory keeps everything in maps. Safe for concurrent use.
type Memory struct {
	mu   sync.Mutex
	sets map[Collection]map[int64]struct{}
	runs []BroadcastRun
}

func NewMemory() *Memory {
	return &Memory{sets: map[Collection]map[int64]struct{}{
		Users:  {},
		Groups: {},
	}}
}

func (m *Memory) Insert(_ context.Context, c Collection, id int64) (bool, error) {
	if err := c.valid(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sets[c][id]; ok {
		return false, nil
	}
	m.sets[c][id] = struct{}{}
	return true, nil
}

func (m *Memory) Delete(_ context.Context, c Collection, id int64) error {
	if err := c.valid(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.sets[c], id)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Count(_ context.Context, c Collection) (int64, error) {
	if err := c.valid(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.sets[c])), nil
}

// IDs iterates a sorted snapshot taken when iteration starts.
func (m *Memory) IDs(ctx context.Context, c Collection) iter.Seq2[int64, error] {
	return func(yield func(int64, error) bool) {
		if err := c.valid(); err != nil {
			yield(0, err)
			return
		}
		m.mu.Lock()
		ids := make([]int64, 0, len(m.sets[c]))
		for id := range m.sets[c] {
			ids = append(ids, id)
		}
		m.mu.Unlock()
		slices.Sort(ids)

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				yield(0, err)
				return
			}
			if !yield(id, nil) {
				return
			}
		}
	}
}

func (m *Memory) AppendRun(_ context.Context, r BroadcastRun) error {
	m.mu.Lock()
	m.runs = append(m.runs, r)
	m.mu.Unlock()
	return nil
}

func (m *Memory) LastRun(context.Context) (BroadcastRun, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.runs) == 0 {
		return BroadcastRun{}, false, nil
	}
	return m.runs[len(m.runs)-1], true, nil
}

func (m *Memory) Ping(context.Context) error { return nil }
func (m *Memory) Close() error               { return nil }
