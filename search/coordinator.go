package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trendscout/config"
	"trendscout/logging"
	"trendscout/types"
)

// Branch is one independent retrieval path
type Branch interface {
	Run(ctx context.Context, set types.EnrichedQuerySet) BranchResult
}

// Outcome is the joined result of both branches
type Outcome struct {
	Keyword  BranchResult
	Semantic BranchResult
	Status   types.StageStatus
	Warnings []string
}

// Results returns the keyword results followed by the semantic results
func (o Outcome) Results() []types.SearchResult {
	out := make([]types.SearchResult, 0, len(o.Keyword.Results)+len(o.Semantic.Results))
	out = append(out, o.Keyword.Results...)
	return append(out, o.Semantic.Results...)
}

// Coordinator fans the query set out to both branches and joins them.
// Each branch runs under its own budget so one slow engine cannot starve the other.
type Coordinator struct {
	keyword  Branch
	semantic Branch
	budget   time.Duration
	logger   *zap.Logger
}

// NewCoordinator creates a Coordinator. budget <= 0 uses the default branch timeout.
func NewCoordinator(keyword, semantic Branch, budget time.Duration, logger *zap.Logger) *Coordinator {
	if budget <= 0 {
		budget = config.DefaultBranchTimeout
	}
	return &Coordinator{
		keyword:  keyword,
		semantic: semantic,
		budget:   budget,
		logger:   logging.OrNop(logger).Named("search"),
	}
}

// Search runs both branches concurrently. It never fails outright: a branch
// that errors or times out is reported in the Outcome.
func (c *Coordinator) Search(ctx context.Context, set types.EnrichedQuerySet) Outcome {
	var (
		out Outcome
		g   errgroup.Group
	)
	g.Go(func() error {
		out.Keyword = c.runBranch(ctx, "keyword", c.keyword, set)
		return nil
	})
	g.Go(func() error {
		out.Semantic = c.runBranch(ctx, "semantic", c.semantic, set)
		return nil
	})
	_ = g.Wait()

	for _, w := range out.Keyword.Warnings {
		out.Warnings = append(out.Warnings, "keyword: "+w)
	}
	for _, w := range out.Semantic.Warnings {
		out.Warnings = append(out.Warnings, "semantic: "+w)
	}

	out.Status = out.Keyword.Status.Worse(out.Semantic.Status)
	// one surviving branch is enough to continue
	if out.Status == types.StatusFailed && (out.Keyword.Status != types.StatusFailed || out.Semantic.Status != types.StatusFailed) {
		out.Status = types.StatusDegraded
	}

	c.logger.Info("search finished",
		zap.String("keyword", string(out.Keyword.Status)), zap.Int("keyword_results", len(out.Keyword.Results)),
		zap.String("semantic", string(out.Semantic.Status)), zap.Int("semantic_results", len(out.Semantic.Results)))
	return out
}

func (c *Coordinator) runBranch(ctx context.Context, name string, b Branch, set types.EnrichedQuerySet) (res BranchResult) {
	if b == nil {
		return BranchResult{Status: types.StatusFailed, Warnings: []string{"branch not configured"}}
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("branch panicked", zap.String("branch", name), zap.Any("panic", r))
			res = BranchResult{Status: types.StatusFailed, Warnings: []string{fmt.Sprintf("branch crashed: %v", r)}}
		}
	}()

	bctx, cancel := context.WithTimeout(ctx, c.budget)
	defer cancel()
	res = b.Run(bctx, set)
	if res.Status == "" {
		res.Status = types.StatusOK
	}
	if res.Status == types.StatusOK && len(res.Results) == 0 {
		res.Status = types.StatusDegraded
		res.Warnings = append(res.Warnings, fmt.Errorf("%w: no results", types.ErrBranchDegraded).Error())
	}
	return res
}
