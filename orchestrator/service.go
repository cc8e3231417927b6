// Package orchestrator is the application service behind every entry point:
// the HTTP API, the Kafka consumer, the scheduler and the CLI all submit
// research requests here.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trendscout/handoff"
	"trendscout/logging"
	"trendscout/pipeline"
	"trendscout/reportstore"
	"trendscout/settings"
	"trendscout/types"
)

var (
	// ErrRunNotFound is returned by Status for an unknown run id
	ErrRunNotFound = errors.New("run not found")
	// ErrInvalidRequest marks requests rejected before a run starts
	ErrInvalidRequest = errors.New("invalid research request")
)

// Request asks for one research run
type Request struct {
	RunID      string               `json:"run_id,omitempty"`
	Query      string               `json:"query"`
	SessionID  string               `json:"session_id,omitempty"`
	SettingsID string               `json:"settings_id,omitempty"`
	Session    types.SessionContext `json:"session_context"`
}

// RunStatus is either a live view of an in-flight run or a finished report
type RunStatus struct {
	RunID  string           `json:"run_id"`
	State  types.State      `json:"state"`
	Live   *pipeline.Status `json:"live,omitempty"`
	Report *types.RunReport `json:"report,omitempty"`
}

// Service runs research requests and keeps their reports
type Service struct {
	pipeline *pipeline.Pipeline
	reports  reportstore.Store
	settings settings.Store
	handoff  *handoff.Chain
	logger   *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	now     func() time.Time
}

// NewService creates a Service. settings and chain may be nil; a nil report store keeps reports in memory.
func NewService(p *pipeline.Pipeline, reports reportstore.Store, store settings.Store, chain *handoff.Chain, logger *zap.Logger) *Service {
	if reports == nil {
		reports = reportstore.NewMemory(0)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		pipeline: p,
		reports:  reports,
		settings: store,
		handoff:  chain,
		logger:   logging.OrNop(logger).Named("service"),
		baseCtx:  ctx,
		cancel:   cancel,
		now:      time.Now,
	}
}

// Settings exposes the settings store, nil when not configured
func (s *Service) Settings() settings.Store { return s.settings }

// Execute runs req to completion. The returned error covers only requests that
// could not start; every run that starts yields a report, Failed included.
func (s *Service) Execute(ctx context.Context, req Request) (*types.RunReport, error) {
	session, err := s.resolveSession(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	return s.run(ctx, req, session), nil
}

// Start runs req in the background and returns its run id at once
func (s *Service) Start(ctx context.Context, req Request) (string, error) {
	session, err := s.resolveSession(ctx, req)
	if err != nil {
		return "", err
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	// register now so Status sees the run before the goroutine is scheduled
	s.pipeline.Tracker().Begin(req.RunID)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(s.baseCtx, req, session)
	}()
	return req.RunID, nil
}

func (s *Service) run(ctx context.Context, req Request, session types.SessionContext) *types.RunReport {
	q := types.RawQuery{Text: req.Query, SessionID: req.SessionID, Timestamp: s.now()}
	report := s.pipeline.Execute(ctx, req.RunID, q, session)

	// handoff and persistence outlive a canceled request
	bg := context.WithoutCancel(ctx)
	s.handoff.Deliver(bg, report)
	if err := s.reports.Save(bg, report); err != nil {
		s.logger.Error("report not saved", zap.String("run_id", report.RunID), zap.Error(err))
	}
	return report
}

// resolveSession merges stored settings under the inline session context
func (s *Service) resolveSession(ctx context.Context, req Request) (types.SessionContext, error) {
	if strings.TrimSpace(req.Query) == "" {
		return types.SessionContext{}, fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}
	if req.SettingsID == "" {
		return req.Session, nil
	}
	if s.settings == nil {
		return types.SessionContext{}, fmt.Errorf("%w: settings %q requested but no settings store is configured", ErrInvalidRequest, req.SettingsID)
	}
	rec, err := s.settings.Get(ctx, req.SettingsID)
	if errors.Is(err, settings.ErrNotFound) {
		return types.SessionContext{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err != nil {
		return types.SessionContext{}, fmt.Errorf("load settings %s: %w", req.SettingsID, err)
	}
	return req.Session.Merge(rec.Session), nil
}

// Status returns the stored report for finished runs and the tracker view otherwise
func (s *Service) Status(ctx context.Context, runID string) (RunStatus, error) {
	live, tracked := s.pipeline.Tracker().Snapshot(runID)
	if tracked && !live.State.Terminal() {
		return RunStatus{RunID: runID, State: live.State, Live: &live}, nil
	}

	report, err := s.reports.Get(ctx, runID)
	switch {
	case err == nil:
		return RunStatus{RunID: runID, State: report.State, Report: report}, nil
	case errors.Is(err, reportstore.ErrNotFound) && tracked:
		// finished but not yet persisted
		return RunStatus{RunID: runID, State: live.State, Live: &live}, nil
	case errors.Is(err, reportstore.ErrNotFound):
		return RunStatus{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	default:
		return RunStatus{}, err
	}
}

// SessionRuns lists a session's most recent run ids, newest first
func (s *Service) SessionRuns(ctx context.Context, sessionID string, limit int) ([]string, error) {
	return s.reports.ListSession(ctx, sessionID, limit)
}

// Active returns the ids of runs still in progress
func (s *Service) Active() []string {
	return s.pipeline.Tracker().Active()
}

// Shutdown cancels background runs and waits for them, up to ctx's deadline
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
