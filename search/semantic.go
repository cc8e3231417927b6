package search

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trendscout/config"
	"trendscout/logging"
	"trendscout/types"
)

// SemanticBranch runs the natural-language queries against neural engines
type SemanticBranch struct {
	providers []SemanticProvider
	limit     int
	logger    *zap.Logger
}

// NewSemanticBranch creates the branch. Pass only non-nil providers.
func NewSemanticBranch(logger *zap.Logger, providers ...SemanticProvider) *SemanticBranch {
	return &SemanticBranch{
		providers: providers,
		limit:     config.SemanticTopN,
		logger:    logging.OrNop(logger).Named("semantic"),
	}
}

type semanticList struct {
	provider string
	hits     []SemanticHit
}

// Run queries every provider and keeps the best-scored distinct URLs
func (b *SemanticBranch) Run(ctx context.Context, set types.EnrichedQuerySet) BranchResult {
	if len(b.providers) == 0 {
		return BranchResult{Status: types.StatusFailed, Warnings: []string{"no semantic providers configured"}}
	}
	if len(set.SemanticQueries) == 0 {
		return BranchResult{Status: types.StatusDegraded, Warnings: []string{"no semantic queries to run"}}
	}

	lists := make([]semanticList, len(set.SemanticQueries)*len(b.providers))
	errs := make([]error, len(lists))

	var g errgroup.Group
	g.SetLimit(maxConcurrentCalls)
	for qi, q := range set.SemanticQueries {
		for pi, p := range b.providers {
			idx := qi*len(b.providers) + pi
			req := SemanticRequest{Query: q, Exclude: set.Exclusions, NumResults: b.limit}
			g.Go(func() error {
				hits, err := p.Search(ctx, req)
				if err != nil {
					errs[idx] = &types.ProviderError{Provider: p.Name(), Err: fmt.Errorf("%q: %w", req.Query, err)}
					return nil
				}
				lists[idx] = semanticList{provider: p.Name(), hits: hits}
				return nil
			})
		}
	}
	_ = g.Wait()

	res := BranchResult{Status: types.StatusOK}
	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			res.Warnings = append(res.Warnings, err.Error())
			b.logger.Warn("semantic provider call failed", zap.Error(err))
		}
	}
	res.Results = b.merge(lists, set.Exclusions)

	switch {
	case failed == len(errs):
		res.Status = types.StatusFailed
		if ctx.Err() != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("branch budget exceeded: %v", ctx.Err()))
		}
	case failed > 0:
		res.Status = types.StatusDegraded
	}
	b.logger.Debug("semantic branch finished",
		zap.Int("calls", len(errs)), zap.Int("failed", failed), zap.Int("results", len(res.Results)))
	return res
}

// merge deduplicates by URL keeping the highest highlight score, then orders by score and URL
func (b *SemanticBranch) merge(lists []semanticList, exclude []string) []types.SearchResult {
	best := make(map[string]types.SearchResult)
	for _, l := range lists {
		for _, hit := range l.hits {
			host := hostOf(hit.URL)
			if host == "" || matchesDomain(host, exclude) {
				continue
			}
			key := dedupKey(hit.URL)
			if cur, ok := best[key]; ok && cur.RelevanceScore >= hit.HighlightScore {
				continue
			}
			best[key] = types.SearchResult{
				SourceKind:     types.SourceSemantic,
				URL:            hit.URL,
				Title:          hit.Title,
				Snippet:        hit.Highlight,
				PublishedAt:    hit.PublishedAt,
				RelevanceScore: hit.HighlightScore,
				OriginSite:     host,
				Provider:       l.provider,
			}
		}
	}

	out := make([]types.SearchResult, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RelevanceScore != out[j].RelevanceScore {
			return out[i].RelevanceScore > out[j].RelevanceScore
		}
		return out[i].URL < out[j].URL
	})
	if len(out) > b.limit {
		out = out[:b.limit]
	}
	return out
}
