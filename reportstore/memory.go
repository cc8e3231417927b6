package reportstore

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"trendscout/config"
	"trendscout/types"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// Memory is a process-local Store used when Redis is not configured
type Memory struct {
	mu       sync.RWMutex
	reports  map[string]memoryEntry
	sessions map[string][]string
	ttl      time.Duration
	limit    int
	now      func() time.Time
}

// NewMemory creates an in-memory store. A non-positive ttl uses the default.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = config.ReportTTL
	}
	return &Memory{
		reports:  make(map[string]memoryEntry),
		sessions: make(map[string][]string),
		ttl:      ttl,
		limit:    config.SessionHistoryLimit,
		now:      time.Now,
	}
}

// Save implements Store. Reports are stored encoded so later mutation by the caller does not leak in.
func (m *Memory) Save(ctx context.Context, report *types.RunReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", report.RunID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweep(now)
	m.reports[report.RunID] = memoryEntry{payload: payload, expiresAt: now.Add(m.ttl)}
	if sid := report.Query.SessionID; sid != "" {
		ids := slices.DeleteFunc(m.sessions[sid], func(id string) bool { return id == report.RunID })
		ids = append([]string{report.RunID}, ids...)
		if len(ids) > m.limit {
			ids = ids[:m.limit]
		}
		m.sessions[sid] = ids
	}
	return nil
}

// sweep drops expired reports and their session references. Callers hold mu.
func (m *Memory) sweep(now time.Time) {
	expired := false
	for id, e := range m.reports {
		if now.After(e.expiresAt) {
			delete(m.reports, id)
			expired = true
		}
	}
	if !expired {
		return
	}
	for sid, ids := range m.sessions {
		ids = slices.DeleteFunc(ids, func(id string) bool {
			_, ok := m.reports[id]
			return !ok
		})
		if len(ids) == 0 {
			delete(m.sessions, sid)
			continue
		}
		m.sessions[sid] = ids
	}
}

// Get implements Store
func (m *Memory) Get(ctx context.Context, runID string) (*types.RunReport, error) {
	m.mu.RLock()
	entry, ok := m.reports[runID]
	m.mu.RUnlock()
	if !ok || m.now().After(entry.expiresAt) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	var report types.RunReport
	if err := json.Unmarshal(entry.payload, &report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", runID, err)
	}
	return &report, nil
}

// ListSession implements Store
func (m *Memory) ListSession(ctx context.Context, sessionID string, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.sessions[sessionID]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	return append([]string{}, ids...), nil
}

// Close implements Store
func (m *Memory) Close() error { return nil }
