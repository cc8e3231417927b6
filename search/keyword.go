package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trendscout/config"
	"trendscout/logging"
	"trendscout/types"
)

// maxConcurrentCalls bounds provider calls in flight within one branch
const maxConcurrentCalls = 4

// KeywordBranch runs the keyword queries against allow-listed sources only
type KeywordBranch struct {
	providers []KeywordProvider
	registry  config.Registry
	limit     int
	logger    *zap.Logger
}

// NewKeywordBranch creates the branch. Pass only non-nil providers.
func NewKeywordBranch(registry config.Registry, logger *zap.Logger, providers ...KeywordProvider) *KeywordBranch {
	return &KeywordBranch{
		providers: providers,
		registry:  registry,
		limit:     config.KeywordTopN,
		logger:    logging.OrNop(logger).Named("keyword"),
	}
}

type keywordList struct {
	provider string
	hits     []KeywordHit
}

// Run queries every provider with every keyword query and merges the hits by position
func (b *KeywordBranch) Run(ctx context.Context, set types.EnrichedQuerySet) BranchResult {
	if len(b.providers) == 0 {
		return BranchResult{Status: types.StatusFailed, Warnings: []string{"no keyword providers configured"}}
	}
	if len(set.KeywordQueries) == 0 {
		return BranchResult{Status: types.StatusDegraded, Warnings: []string{"no keyword queries to run"}}
	}

	sites := b.registry.Domains(set.Category)
	lists := make([]keywordList, len(set.KeywordQueries)*len(b.providers))
	errs := make([]error, len(lists))

	var g errgroup.Group
	g.SetLimit(maxConcurrentCalls)
	for qi, q := range set.KeywordQueries {
		for pi, p := range b.providers {
			idx := qi*len(b.providers) + pi
			req := KeywordRequest{Query: q, Sites: sites, Exclude: set.Exclusions, Category: set.Category}
			g.Go(func() error {
				hits, err := p.Search(ctx, req)
				if err != nil {
					errs[idx] = &types.ProviderError{Provider: p.Name(), Err: fmt.Errorf("%q: %w", req.Query, err)}
					return nil
				}
				lists[idx] = keywordList{provider: p.Name(), hits: hits}
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
			b.logger.Warn("keyword provider call failed", zap.Error(err))
		}
	}
	res.Results = b.merge(lists, sites, set.Exclusions)

	switch {
	case failed == len(errs):
		res.Status = types.StatusFailed
		if ctx.Err() != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("branch budget exceeded: %v", ctx.Err()))
		}
	case failed > 0:
		res.Status = types.StatusDegraded
	}
	b.logger.Debug("keyword branch finished",
		zap.Int("calls", len(errs)), zap.Int("failed", failed), zap.Int("results", len(res.Results)))
	return res
}

// merge interleaves the lists round-robin by position, keeping allow-listed,
// non-excluded, unseen URLs until the limit is reached
func (b *KeywordBranch) merge(lists []keywordList, sites, exclude []string) []types.SearchResult {
	longest := 0
	for _, l := range lists {
		longest = max(longest, len(l.hits))
	}

	seen := make(map[string]bool)
	var out []types.SearchResult
	for pos := 0; pos < longest && len(out) < b.limit; pos++ {
		for _, l := range lists {
			if pos >= len(l.hits) || len(out) == b.limit {
				continue
			}
			hit := l.hits[pos]
			host := hostOf(hit.URL)
			if host == "" || matchesDomain(host, exclude) || !matchesDomain(host, sites) {
				continue
			}
			key := dedupKey(hit.URL)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, types.SearchResult{
				SourceKind:  types.SourceKeyword,
				URL:         hit.URL,
				Title:       hit.Title,
				Snippet:     hit.Snippet,
				PublishedAt: hit.PublishedAt,
				OriginSite:  host,
				Provider:    l.provider,
			})
		}
	}
	for i := range out {
		out[i].RelevanceScore = float64(b.limit-i) / float64(b.limit)
	}
	return out
}
