package types

import (
	"strings"
	"time"
)

// RawQuery is the user's turn as received. It is never modified.
type RawQuery struct {
	Text      string    `json:"text"`
	Language  string    `json:"language,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id,omitempty"`
}

// SessionContext carries the business variables that shape a run
type SessionContext struct {
	LanguageHint      string   `json:"language_hint,omitempty" yaml:"language_hint"`
	BusinessDomain    string   `json:"business_domain,omitempty" yaml:"business_domain"`
	CompetitorDomains []string `json:"competitor_domains,omitempty" yaml:"competitor_domains"`
	TargetGeographies []string `json:"target_geographies,omitempty" yaml:"target_geographies"`
	Category          string   `json:"category,omitempty" yaml:"category"`
}

// Merge returns s with every empty field filled from fallback
func (s SessionContext) Merge(fallback SessionContext) SessionContext {
	out := s
	if out.LanguageHint == "" {
		out.LanguageHint = fallback.LanguageHint
	}
	if out.BusinessDomain == "" {
		out.BusinessDomain = fallback.BusinessDomain
	}
	if len(out.CompetitorDomains) == 0 {
		out.CompetitorDomains = fallback.CompetitorDomains
	}
	if len(out.TargetGeographies) == 0 {
		out.TargetGeographies = fallback.TargetGeographies
	}
	if out.Category == "" {
		out.Category = fallback.Category
	}
	return out
}

// Objective is what the user wants to learn about the focus
type Objective string

const (
	ObjectiveTrend      Objective = "trend"
	ObjectivePrediction Objective = "prediction"
	ObjectiveComparison Objective = "comparison"
	ObjectiveUnknown    Objective = "unknown"
)

// ParseObjective maps free text onto an Objective, returning ObjectiveUnknown when nothing matches
func ParseObjective(s string) Objective {
	switch Objective(strings.ToLower(strings.TrimSpace(s))) {
	case ObjectiveTrend, "trends":
		return ObjectiveTrend
	case ObjectivePrediction, "forecast":
		return ObjectivePrediction
	case ObjectiveComparison, "compare":
		return ObjectiveComparison
	}
	return ObjectiveUnknown
}

// Validity is the classifier's verdict on a raw query
type Validity string

const (
	ValidityValid    Validity = "valid"
	ValidityVague    Validity = "vague"
	ValidityOffScope Validity = "off_scope"
)

// ParseValidity maps classifier output onto a Validity; unrecognized values read as vague
func ParseValidity(s string) Validity {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "valid", "research", "research_aligned":
		return ValidityValid
	case "off_scope", "off-scope", "offscope":
		return ValidityOffScope
	}
	return ValidityVague
}

// QueryContext pins a query in place and time
type QueryContext struct {
	Geography  string `json:"geography"`
	TimeWindow string `json:"time_window"`
	// Period is TimeWindow resolved to a season and year, e.g. "Fall 2026"
	Period string `json:"period,omitempty"`
}

// QueryIntent is the structured form of a validated query.
// A re-query produces a new intent; intents are never mutated.
type QueryIntent struct {
	Focus      []string     `json:"focus"`
	Context    QueryContext `json:"context"`
	Objective  Objective    `json:"objective"`
	Scope      []string     `json:"scope"`
	Validity   Validity     `json:"validity"`
	Category   string       `json:"category,omitempty"`
	Language   string       `json:"language"`
	DetectedAt time.Time    `json:"detected_at"`
}

// EnrichedQuerySet holds the two disjoint query families generated for one intent
type EnrichedQuerySet struct {
	CanonicalQuery  string   `json:"canonical_query"`
	KeywordQueries  []string `json:"keyword_queries"`
	SemanticQueries []string `json:"semantic_queries"`
	// Exclusions is a sorted set of bare host names
	Exclusions []string `json:"exclusions"`
	Category   string   `json:"category,omitempty"`
	// MatchTerms are the phrases checked verbatim for the exact-match bonus
	MatchTerms []string `json:"match_terms,omitempty"`
}
