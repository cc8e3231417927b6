package ranking

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"trendscout/config"
	"trendscout/logging"
	"trendscout/types"
)

// Stats summarizes one ranking pass
type Stats struct {
	Input       int `json:"input"`
	Unusable    int `json:"unusable"`
	Duplicates  int `json:"duplicates"`
	CrossBranch int `json:"cross_branch"`
	Promoted    int `json:"promoted"`
}

// Ranker merges both branches into one ordered top-K list
type Ranker struct {
	cfg    config.RankingConfig
	now    func() time.Time
	logger *zap.Logger
}

// New creates a Ranker from the configured weights
func New(cfg config.RankingConfig, logger *zap.Logger) *Ranker {
	if cfg.TopK <= 0 {
		cfg.TopK = config.TopK
	}
	if cfg.FreshnessWindowDays <= 0 {
		cfg.FreshnessWindowDays = config.DefaultFreshnessWindowDays
	}
	return &Ranker{cfg: cfg, now: time.Now, logger: logging.OrNop(logger).Named("ranking")}
}

// WithClock returns a copy of r that measures freshness against now
func (r *Ranker) WithClock(now func() time.Time) *Ranker {
	cp := *r
	cp.now = now
	return &cp
}

// group collects every result that shares a canonical URL
type group struct {
	canonical  string
	best       types.SearchResult
	date       *time.Time
	kinds      map[types.SourceKind]bool
	exactMatch bool
}

// Rank deduplicates results by canonical URL, scores them and returns at most
// TopK entries ranked 1..n. matchTerms are the phrases that earn the exact-match bonus.
func (r *Ranker) Rank(results []types.SearchResult, matchTerms []string) ([]types.RankedResult, Stats) {
	stats := Stats{Input: len(results)}
	terms := lowerAll(matchTerms)

	groups := make(map[string]*group)
	var ordered []*group
	for _, res := range results {
		canonical, ok := CanonicalURL(res.URL)
		if !ok {
			stats.Unusable++
			continue
		}
		g, seen := groups[canonical]
		if !seen {
			g = &group{canonical: canonical, best: res, kinds: make(map[types.SourceKind]bool)}
			groups[canonical] = g
			ordered = append(ordered, g)
		} else {
			stats.Duplicates++
			if res.RelevanceScore > g.best.RelevanceScore {
				g.best = res
			}
		}
		g.kinds[res.SourceKind] = true
		if g.date == nil && res.PublishedAt != nil {
			g.date = res.PublishedAt
		}
		if res.SourceKind == types.SourceKeyword && containsAny(res.Title+" "+res.Snippet, terms) {
			g.exactMatch = true
		}
	}

	now := r.now()
	ranked := make([]types.RankedResult, 0, len(ordered))
	for _, g := range ordered {
		both := g.kinds[types.SourceKeyword] && g.kinds[types.SourceSemantic]
		if both {
			stats.CrossBranch++
		}
		item := types.RankedResult{
			SearchResult:   g.best,
			CanonicalURL:   g.canonical,
			InBothBranches: both,
		}
		if item.PublishedAt == nil {
			item.PublishedAt = g.date
		}
		item.CompositeScore = r.score(item, g.exactMatch, now)
		ranked = append(ranked, item)
	}

	sort.SliceStable(ranked, func(i, j int) bool { return less(ranked[i], ranked[j]) })
	if len(ranked) > r.cfg.TopK {
		ranked = ranked[:r.cfg.TopK]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	stats.Promoted = len(ranked)

	r.logger.Debug("ranked results",
		zap.Int("input", stats.Input), zap.Int("duplicates", stats.Duplicates),
		zap.Int("unusable", stats.Unusable), zap.Int("promoted", stats.Promoted))
	return ranked, stats
}

// score is base + freshness + exact-match bonus + cross-branch bonus
func (r *Ranker) score(item types.RankedResult, exactMatch bool, now time.Time) float64 {
	s := item.RelevanceScore + r.freshness(item.PublishedAt, now)
	if exactMatch {
		s += r.cfg.ExactMatchBonus
	}
	if item.InBothBranches {
		s += r.cfg.CrossBranchBonus
	}
	return s
}

// freshness decays linearly from the full weight to zero over the window.
// Future dates count as brand new.
func (r *Ranker) freshness(published *time.Time, now time.Time) float64 {
	if published == nil || published.IsZero() {
		return 0
	}
	ageDays := now.Sub(*published).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return r.cfg.FreshnessWeight * max(0, 1-ageDays/r.cfg.FreshnessWindowDays)
}

// less orders by composite score, then dated before undated, then shorter host, then canonical URL
func less(a, b types.RankedResult) bool {
	if a.CompositeScore != b.CompositeScore {
		return a.CompositeScore > b.CompositeScore
	}
	aDated, bDated := a.PublishedAt != nil, b.PublishedAt != nil
	if aDated != bDated {
		return aDated
	}
	ah, bh := hostLen(a.CanonicalURL), hostLen(b.CanonicalURL)
	if ah != bh {
		return ah < bh
	}
	return a.CanonicalURL < b.CanonicalURL
}

func hostLen(canonical string) int {
	rest := strings.TrimPrefix(canonical, "https://")
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		rest = rest[:i]
	}
	return len(rest)
}

func containsAny(text string, terms []string) bool {
	text = strings.ToLower(text)
	for _, t := range terms {
		if t != "" && strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
