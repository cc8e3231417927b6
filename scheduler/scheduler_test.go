package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"trendscout/config"
	"trendscout/orchestrator"
	"trendscout/types"
)

type recordingExecutor struct {
	mu   sync.Mutex
	reqs []orchestrator.Request
	err  error
}

func (r *recordingExecutor) Execute(ctx context.Context, req orchestrator.Request) (*types.RunReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	if r.err != nil {
		return nil, r.err
	}
	report := types.NewRunReport("run-"+req.SessionID, types.RawQuery{Text: req.Query}, req.Session, time.Now())
	report.State = types.StateDone
	return report, nil
}

func (r *recordingExecutor) calls() []orchestrator.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]orchestrator.Request{}, r.reqs...)
}

func TestAddValidatesEntries(t *testing.T) {
	s := New(&recordingExecutor{}, nil)

	require.NoError(t, s.Add(config.ScheduleConfig{Name: "weekly", Cron: "0 6 * * 1", Query: "sofa bed trends"}))
	assert.Error(t, s.Add(config.ScheduleConfig{Name: "weekly", Cron: "0 7 * * 1", Query: "other"}))
	assert.Error(t, s.Add(config.ScheduleConfig{Name: "broken", Cron: "every tuesday", Query: "x"}))
	assert.Equal(t, 1, s.Len())
}

func TestRunOnceBuildsRequest(t *testing.T) {
	exec := &recordingExecutor{}
	s := New(exec, nil)

	s.runOnce("weekly", config.ScheduleConfig{
		Query:      "sofa bed trends in France",
		SettingsID: "acme",
		Session:    types.SessionContext{Category: "home"},
	})
	s.runOnce("custom", config.ScheduleConfig{Query: "linen bedding", SessionID: "acme-weekly"})

	calls := exec.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "schedule:weekly", calls[0].SessionID)
	assert.Equal(t, "acme", calls[0].SettingsID)
	assert.Equal(t, "home", calls[0].Session.Category)
	assert.Equal(t, "acme-weekly", calls[1].SessionID)

	exec.err = errors.New("invalid research request")
	s.runOnce("weekly", config.ScheduleConfig{Query: "x"})
	assert.Len(t, exec.calls(), 3)
}

func TestStartAndStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	exec := &recordingExecutor{}
	s := New(exec, nil)
	require.NoError(t, s.Add(config.ScheduleConfig{Name: "often", Cron: "@every 1s", Query: "sofa bed trends"}))
	s.Start()

	require.Eventually(t, func() bool { return len(exec.calls()) > 0 }, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}
