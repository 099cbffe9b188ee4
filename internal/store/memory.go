package store

import (
	"context"
	"sync"
)

// Memory keeps traces in process memory. Listing preserves first-seen order.
type Memory struct {
	mu    sync.RWMutex
	byID  map[string]Record
	order []string
}

func NewMemory() *Memory {
	return &Memory{byID: make(map[string]Record)}
}

func (m *Memory) Upsert(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[r.Trace.ID]; !ok {
		m.order = append(m.order, r.Trace.ID)
	}
	m.byID[r.Trace.ID] = r
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (m *Memory) ListBySession(_ context.Context, sessionID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for _, id := range m.order {
		if r := m.byID[id]; r.Trace.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) Close() {}
