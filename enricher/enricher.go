package enricher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"trendscout/config"
	"trendscout/logging"
	"trendscout/types"
)

// Enricher expands a QueryIntent into keyword and semantic query families
type Enricher struct {
	thesaurus Expander
	model     Expander
	maxPerSet int
	logger    *zap.Logger
}

// New creates an Enricher. model may be nil.
func New(model Expander, logger *zap.Logger) *Enricher {
	return &Enricher{
		thesaurus: Thesaurus{},
		model:     model,
		maxPerSet: config.MaxQueriesPerFamily,
		logger:    logging.OrNop(logger).Named("enricher"),
	}
}

// Enrich builds the EnrichedQuerySet for intent. Template output always
// leads each family, so the structure is stable for a fixed intent.
func (e *Enricher) Enrich(ctx context.Context, intent types.QueryIntent, session types.SessionContext) (types.EnrichedQuerySet, []string, error) {
	var warnings []string
	if len(intent.Focus) == 0 {
		return types.EnrichedQuerySet{}, nil, types.NewStageError(types.StageEnriching, errors.New("intent has no focus"))
	}

	exp, err := e.thesaurus.Expand(ctx, intent)
	if err != nil {
		return types.EnrichedQuerySet{}, nil, types.NewStageError(types.StageEnriching, err)
	}
	if e.model != nil {
		extra, err := e.model.Expand(ctx, intent)
		if err != nil {
			e.logger.Warn("model expansion failed", zap.Error(err))
			warnings = append(warnings, fmt.Sprintf("synonym expansion unavailable, using templates only: %v", err))
		} else {
			exp.Variants = append(exp.Variants, extra.Variants...)
			exp.KeywordVariants = append(exp.KeywordVariants, extra.KeywordVariants...)
			exp.QuestionVariants = append(exp.QuestionVariants, extra.QuestionVariants...)
		}
	}

	questions := dedupe(semanticQueries(intent, exp), e.maxPerSet)
	keywords := dedupe(keywordQueries(intent, exp), 0)

	// the families must stay disjoint
	isQuestion := make(map[string]bool, len(questions))
	for _, q := range questions {
		isQuestion[strings.ToLower(q)] = true
	}
	filtered := keywords[:0]
	for _, k := range keywords {
		if !isQuestion[strings.ToLower(k)] {
			filtered = append(filtered, k)
		}
	}
	if len(filtered) > e.maxPerSet {
		filtered = filtered[:e.maxPerSet]
	}

	set := types.EnrichedQuerySet{
		CanonicalQuery:  Canonical(intent),
		KeywordQueries:  filtered,
		SemanticQueries: questions,
		Exclusions:      Exclusions(session),
		Category:        intent.Category,
		MatchTerms:      dedupe(append(append([]string{}, intent.Focus...), exp.Variants...), 0),
	}
	return set, warnings, nil
}

// Canonical composes objective + focus + context + scope into one query string
func Canonical(intent types.QueryIntent) string {
	parts := []string{objectivePhrase(intent.Objective), joinFocus(intent)}
	parts = append(parts, geoPhrase(intent.Context.Geography))
	if p := intent.Context.Period; p != "" {
		parts = append(parts, "for "+p)
	}
	if len(intent.Scope) > 0 {
		parts = append(parts, "focusing on "+strings.Join(intent.Scope, ", "))
	}
	return strings.Join(parts, " ")
}

func keywordQueries(intent types.QueryIntent, exp Expansion) []string {
	word := objectiveWord(intent.Objective)
	geo := ""
	if !isGlobal(intent.Context.Geography) {
		geo = intent.Context.Geography
	}

	var out []string
	if intent.Objective == types.ObjectiveComparison && len(intent.Focus) > 1 {
		out = append(out, fmt.Sprintf("%q vs %q", intent.Focus[0], intent.Focus[1]))
	}
	for _, f := range intent.Focus {
		out = append(out, joinNonEmpty(fmt.Sprintf("%q", f), word, geo, intent.Context.Period))
		if len(exp.ScopeTerms) > 0 {
			alts := make([]string, 0, 2)
			for _, t := range exp.ScopeTerms[:min(2, len(exp.ScopeTerms))] {
				alts = append(alts, fmt.Sprintf("%q", t))
			}
			out = append(out, fmt.Sprintf("%q AND (%s)", f, strings.Join(alts, " OR ")))
		}
	}
	for _, v := range exp.Variants {
		out = append(out, joinNonEmpty(fmt.Sprintf("%q", v), word, geo))
	}
	for _, k := range exp.KeywordVariants {
		if !strings.HasSuffix(k, "?") {
			out = append(out, k)
		}
	}
	return out
}

func semanticQueries(intent types.QueryIntent, exp Expansion) []string {
	geo := geoPhrase(intent.Context.Geography)
	period := intent.Context.Period

	var out []string
	if intent.Objective == types.ObjectiveComparison && len(intent.Focus) > 1 {
		out = append(out, fmt.Sprintf("How do %s and %s compare %s in %s?", intent.Focus[0], intent.Focus[1], geo, period))
	}
	for _, f := range intent.Focus {
		switch intent.Objective {
		case types.ObjectivePrediction:
			out = append(out, fmt.Sprintf("What will %s trends look like %s in %s?", f, geo, period))
		case types.ObjectiveComparison:
			out = append(out, fmt.Sprintf("Which %s options are consumers choosing %s in %s?", f, geo, period))
		default:
			out = append(out, fmt.Sprintf("What are the emerging trends in %s %s for %s?", f, geo, period))
		}
		out = append(out, fmt.Sprintf("How are consumer preferences for %s changing %s?", f, geo))
	}
	primary := intent.Focus[0]
	for _, s := range intent.Scope[:min(2, len(intent.Scope))] {
		out = append(out, fmt.Sprintf("How is %s evolving in terms of %s?", primary, s))
	}
	for _, v := range exp.Variants {
		out = append(out, fmt.Sprintf("What is new in %s %s?", v, geo))
	}
	for _, q := range exp.QuestionVariants {
		if !strings.HasSuffix(q, "?") {
			q += "?"
		}
		out = append(out, q)
	}
	return out
}

// Exclusions normalizes the business and competitor domains into a sorted set of hosts
func Exclusions(session types.SessionContext) []string {
	seen := make(map[string]bool)
	var out []string
	for _, raw := range append([]string{session.BusinessDomain}, session.CompetitorDomains...) {
		if host := NormalizeDomain(raw); host != "" && !seen[host] {
			seen[host] = true
			out = append(out, host)
		}
	}
	sort.Strings(out)
	return out
}

// NormalizeDomain reduces a URL or domain to a lowercase host without "www."
func NormalizeDomain(raw string) string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func objectivePhrase(o types.Objective) string {
	switch o {
	case types.ObjectivePrediction:
		return "forecast for"
	case types.ObjectiveComparison:
		return "comparison of"
	}
	return "trends in"
}

func objectiveWord(o types.Objective) string {
	switch o {
	case types.ObjectivePrediction:
		return "forecast"
	case types.ObjectiveComparison:
		return "comparison"
	}
	return "trends"
}

func joinFocus(intent types.QueryIntent) string {
	sep := " and "
	if intent.Objective == types.ObjectiveComparison {
		sep = " vs "
	}
	return strings.Join(intent.Focus, sep)
}

func geoPhrase(geo string) string {
	if isGlobal(geo) {
		return "worldwide"
	}
	return "in " + geo
}

func isGlobal(geo string) bool {
	g := strings.ToLower(strings.TrimSpace(geo))
	return g == "" || g == "global" || g == "worldwide"
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// dedupe keeps the first occurrence of each string, case-insensitively. limit 0 means no limit.
func dedupe(in []string, limit int) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.Join(strings.Fields(s), " ")
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
