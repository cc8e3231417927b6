// Package scheduler re-runs standing research queries on cron expressions
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"trendscout/config"
	"trendscout/logging"
	"trendscout/orchestrator"
	"trendscout/types"
)

// Executor runs one research request
type Executor interface {
	Execute(ctx context.Context, req orchestrator.Request) (*types.RunReport, error)
}

// Scheduler owns a cron instance with one entry per standing query
type Scheduler struct {
	cron     *cron.Cron
	executor Executor
	logger   *zap.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a scheduler. Overlapping runs of the same entry are skipped.
func New(executor Executor, logger *zap.Logger) *Scheduler {
	logger = logging.OrNop(logger).Named("scheduler")
	cl := cronLogger{logger.Sugar()}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		executor: executor,
		logger:   logger,
		entries:  make(map[string]cron.EntryID),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Add registers a standing query. Names must be unique.
func (s *Scheduler) Add(sc config.ScheduleConfig) error {
	name := sc.Name
	if name == "" {
		name = sc.Query
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("schedule %q already registered", name)
	}

	id, err := s.cron.AddFunc(sc.Cron, func() { s.runOnce(name, sc) })
	if err != nil {
		return fmt.Errorf("failed to add cron job %q: %w", name, err)
	}
	s.entries[name] = id
	s.logger.Info("schedule registered", zap.String("name", name), zap.String("cron", sc.Cron))
	return nil
}

// AddAll registers every schedule and stops at the first invalid one
func (s *Scheduler) AddAll(schedules []config.ScheduleConfig) error {
	for _, sc := range schedules {
		if err := s.Add(sc); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of registered schedules
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Scheduler) runOnce(name string, sc config.ScheduleConfig) {
	sessionID := sc.SessionID
	if sessionID == "" {
		sessionID = "schedule:" + name
	}
	report, err := s.executor.Execute(s.ctx, orchestrator.Request{
		Query:      sc.Query,
		SessionID:  sessionID,
		SettingsID: sc.SettingsID,
		Session:    sc.Session,
	})
	if err != nil {
		s.logger.Error("scheduled run rejected", zap.String("name", name), zap.Error(err))
		return
	}
	s.logger.Info("scheduled run finished",
		zap.String("name", name),
		zap.String("run_id", report.RunID),
		zap.String("state", string(report.State)),
		zap.Int("documents", report.DocumentCount()))
}

// Start begins firing entries
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops firing, cancels running jobs and waits for them or ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
