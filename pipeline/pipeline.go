package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trendscout/config"
	"trendscout/logging"
	"trendscout/ranking"
	"trendscout/search"
	"trendscout/types"
)

// Normalizer turns raw text into a QueryIntent
type Normalizer interface {
	Normalize(ctx context.Context, q types.RawQuery, session types.SessionContext) (types.QueryIntent, []string, error)
}

// Enricher expands an intent into query families
type Enricher interface {
	Enrich(ctx context.Context, intent types.QueryIntent, session types.SessionContext) (types.EnrichedQuerySet, []string, error)
}

// Searcher runs both retrieval branches
type Searcher interface {
	Search(ctx context.Context, set types.EnrichedQuerySet) search.Outcome
}

// Ranker merges and orders search results
type Ranker interface {
	Rank(results []types.SearchResult, matchTerms []string) ([]types.RankedResult, ranking.Stats)
}

// Extractor fetches the content of ranked results
type Extractor interface {
	Extract(ctx context.Context, ranked []types.RankedResult) ([]types.ScrapedDocument, []string)
}

// Deps are the stage implementations a Pipeline drives
type Deps struct {
	Normalizer Normalizer
	Enricher   Enricher
	Searcher   Searcher
	Ranker     Ranker
	Extractor  Extractor
}

// Pipeline runs one query through every stage and always produces a RunReport
type Pipeline struct {
	deps    Deps
	budgets config.StageConfig
	tracker *Tracker
	now     func() time.Time
	logger  *zap.Logger
}

// New creates a Pipeline. A nil tracker gets a private one.
func New(deps Deps, budgets config.StageConfig, tracker *Tracker, logger *zap.Logger) *Pipeline {
	if tracker == nil {
		tracker = NewTracker()
	}
	if budgets.NormalizeTimeout <= 0 {
		budgets.NormalizeTimeout = config.DefaultNormalizeTimeout
	}
	if budgets.EnrichTimeout <= 0 {
		budgets.EnrichTimeout = config.DefaultEnrichTimeout
	}
	if budgets.SearchTimeout <= 0 {
		budgets.SearchTimeout = config.DefaultBranchTimeout + 5*time.Second
	}
	if budgets.ExtractTimeout <= 0 {
		budgets.ExtractTimeout = config.DefaultExtractTimeout
	}
	return &Pipeline{
		deps:    deps,
		budgets: budgets,
		tracker: tracker,
		now:     time.Now,
		logger:  logging.OrNop(logger).Named("pipeline"),
	}
}

// Tracker exposes the run tracker so callers can inspect in-flight runs
func (p *Pipeline) Tracker() *Tracker { return p.tracker }

// Run executes a query given as plain text
func (p *Pipeline) Run(ctx context.Context, query string, session types.SessionContext) *types.RunReport {
	return p.RunQuery(ctx, types.RawQuery{Text: query, Timestamp: p.now()}, session)
}

// RunQuery executes q under a fresh run id
func (p *Pipeline) RunQuery(ctx context.Context, q types.RawQuery, session types.SessionContext) *types.RunReport {
	return p.Execute(ctx, uuid.NewString(), q, session)
}

// Execute executes q under runID. The report is complete for every terminal state.
func (p *Pipeline) Execute(ctx context.Context, runID string, q types.RawQuery, session types.SessionContext) (report *types.RunReport) {
	report = types.NewRunReport(runID, q, session, p.now())
	logger := p.logger.With(zap.String("run_id", runID))
	p.tracker.Begin(runID)

	stage := types.StageNormalizing
	defer func() {
		if r := recover(); r != nil {
			logger.Error("stage panicked", zap.String("stage", string(stage)), zap.Any("panic", r))
			report.Record(stage, types.StatusFailed, fmt.Sprintf("internal error: %v", r))
			p.fail(report, fmt.Errorf("%s panicked: %v", stage, r))
		}
		report.FinishedAt = p.now()
		logger.Info("run finished", zap.String("state", string(report.State)),
			zap.Int("documents", report.DocumentCount()), zap.Int("warnings", len(report.Warnings)))
	}()

	// Normalizing
	nctx, cancel := context.WithTimeout(ctx, p.budgets.NormalizeTimeout)
	intent, warnings, err := p.deps.Normalizer.Normalize(nctx, q, session)
	cancel()
	var (
		clarify *types.ClarificationError
		scope   *types.ScopeError
	)
	switch {
	case errors.As(err, &clarify):
		report.Record(stage, types.StatusOK, warnings...)
		report.Clarification = clarify.Prompt
		p.transition(report, types.StateClarificationNeeded)
		return report
	case errors.As(err, &scope):
		report.Record(stage, types.StatusOK, warnings...)
		report.Clarification = "The query is outside product and market research."
		report.Suggestion = scope.Suggestion
		p.transition(report, types.StateClarificationNeeded)
		return report
	case err != nil:
		report.Record(stage, types.StatusFailed, append(warnings, err.Error())...)
		p.fail(report, err)
		return report
	}
	report.Record(stage, statusFor(warnings), warnings...)
	report.Intent = &intent

	// Enriching
	stage = types.StageEnriching
	p.transition(report, types.StateEnriching)
	ectx, cancel := context.WithTimeout(ctx, p.budgets.EnrichTimeout)
	set, warnings, err := p.deps.Enricher.Enrich(ectx, intent, session)
	cancel()
	if err != nil {
		report.Record(stage, types.StatusFailed, append(warnings, err.Error())...)
		p.fail(report, err)
		return report
	}
	report.Record(stage, statusFor(warnings), warnings...)
	report.Queries = &set

	// Searching
	stage = types.StageSearching
	p.transition(report, types.StateSearching)
	sctx, cancel := context.WithTimeout(ctx, p.budgets.SearchTimeout)
	outcome := p.deps.Searcher.Search(sctx, set)
	cancel()
	report.Record(stage, outcome.Status, outcome.Warnings...)
	if outcome.Status == types.StatusFailed {
		p.fail(report, types.NewStageError(stage, errors.New("both retrieval branches failed")))
		return report
	}

	// Ranking
	stage = types.StageRanking
	p.transition(report, types.StateRanking)
	ranked, stats := p.deps.Ranker.Rank(outcome.Results(), set.MatchTerms)
	report.Ranked = ranked
	if len(ranked) == 0 {
		report.Record(stage, types.StatusDegraded, "no usable results to rank")
	} else {
		report.Record(stage, types.StatusOK)
	}
	p.tracker.AddLog(runID, fmt.Sprintf("ranked %d of %d results (%d duplicates)", stats.Promoted, stats.Input, stats.Duplicates))

	// Extracting
	stage = types.StageExtracting
	p.transition(report, types.StateExtracting)
	xctx, cancel := context.WithTimeout(ctx, p.budgets.ExtractTimeout)
	docs, warnings := p.deps.Extractor.Extract(xctx, ranked)
	cancel()
	report.FinalDocuments = docs
	status := extractionStatus(docs)
	report.Record(stage, status, warnings...)
	if status == types.StatusFailed {
		// extraction is the last stage: per-URL failures stay in the documents and the run still completes
		p.tracker.AddLog(runID, "no document could be extracted")
	}

	p.transition(report, types.StateDone)
	return report
}

func (p *Pipeline) transition(report *types.RunReport, state types.State) {
	report.State = state
	p.tracker.SetState(report.RunID, state)
}

func (p *Pipeline) fail(report *types.RunReport, err error) {
	report.State = types.StateFailed
	p.tracker.SetError(report.RunID, err)
}

// statusFor marks a stage degraded when it had to fall back
func statusFor(warnings []string) types.StageStatus {
	if len(warnings) > 0 {
		return types.StatusDegraded
	}
	return types.StatusOK
}

// extractionStatus is failed when every document failed, degraded when any fell short
func extractionStatus(docs []types.ScrapedDocument) types.StageStatus {
	if len(docs) == 0 {
		return types.StatusOK
	}
	failed, short := 0, 0
	for _, d := range docs {
		switch d.ExtractionStatus {
		case types.ExtractionFailed:
			failed++
		case types.ExtractionPartial:
			short++
		}
	}
	switch {
	case failed == len(docs):
		return types.StatusFailed
	case failed+short > 0:
		return types.StatusDegraded
	}
	return types.StatusOK
}
