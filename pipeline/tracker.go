package pipeline

import (
	"fmt"
	"sync"
	"time"

	"trendscout/types"
)

const (
	defaultMaxLogs = 50
	defaultMaxRuns = 200
)

// Status is a point-in-time view of one run
type Status struct {
	RunID     string           `json:"run_id"`
	State     types.State      `json:"state"`
	Logs      []types.LogEntry `json:"logs"`
	Error     string           `json:"error,omitempty"`
	StartedAt time.Time        `json:"started_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type runState struct {
	state     types.State
	logs      []types.LogEntry
	lastErr   error
	startedAt time.Time
	updatedAt time.Time
}

// Tracker holds the state of in-flight and recent runs with thread-safe access
type Tracker struct {
	mu      sync.RWMutex
	runs    map[string]*runState
	order   []string
	maxLogs int
	maxRuns int
	now     func() time.Time
}

// NewTracker creates a tracker that remembers the most recent runs
func NewTracker() *Tracker {
	return &Tracker{
		runs:    make(map[string]*runState),
		maxLogs: defaultMaxLogs,
		maxRuns: defaultMaxRuns,
		now:     time.Now,
	}
}

// Begin registers a run in the Normalizing state, evicting the oldest run when full
func (t *Tracker) Begin(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if _, ok := t.runs[runID]; !ok {
		t.order = append(t.order, runID)
	}
	t.runs[runID] = &runState{state: types.StateNormalizing, startedAt: now, updatedAt: now}
	for len(t.order) > t.maxRuns {
		delete(t.runs, t.order[0])
		t.order = t.order[1:]
	}
}

// SetState moves a run to state and logs the transition
func (t *Tracker) SetState(runID string, state types.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r := t.runs[runID]; r != nil {
		r.state = state
		t.appendLog(r, fmt.Sprintf("state -> %s", state))
	}
}

// AddLog adds a log entry to a run
func (t *Tracker) AddLog(runID, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r := t.runs[runID]; r != nil {
		t.appendLog(r, message)
	}
}

// SetError moves a run to Failed and records err
func (t *Tracker) SetError(runID string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r := t.runs[runID]; r != nil {
		r.state = types.StateFailed
		r.lastErr = err
		t.appendLog(r, fmt.Sprintf("Error: %v", err))
	}
}

// Snapshot returns a copy of a run's status
func (t *Tracker) Snapshot(runID string) (Status, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r, ok := t.runs[runID]
	if !ok {
		return Status{}, false
	}
	s := Status{
		RunID:     runID,
		State:     r.state,
		Logs:      append([]types.LogEntry{}, r.logs...),
		StartedAt: r.startedAt,
		UpdatedAt: r.updatedAt,
	}
	if r.lastErr != nil {
		s.Error = r.lastErr.Error()
	}
	return s, true
}

// Active returns the ids of runs not yet in a terminal state
func (t *Tracker) Active() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	for _, id := range t.order {
		if !t.runs[id].state.Terminal() {
			out = append(out, id)
		}
	}
	return out
}

// appendLog must be called with the lock held
func (t *Tracker) appendLog(r *runState, message string) {
	now := t.now()
	r.updatedAt = now
	r.logs = append(r.logs, types.LogEntry{Timestamp: now, Message: message})
	if len(r.logs) > t.maxLogs {
		r.logs = r.logs[len(r.logs)-t.maxLogs:]
	}
}
