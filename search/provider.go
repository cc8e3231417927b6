package search

import (
	"context"
	"net/url"
	"strings"
	"time"

	"trendscout/types"
)

// KeywordRequest is one keyword query, already restricted to the allow-list
type KeywordRequest struct {
	Query    string
	Sites    []string
	Exclude  []string
	Category string
}

// KeywordHit is one position-ordered result from a keyword engine
type KeywordHit struct {
	Title       string
	URL         string
	Snippet     string
	PublishedAt *time.Time
}

// KeywordProvider is a keyword-style search engine. Hits come back in engine order.
type KeywordProvider interface {
	Name() string
	Search(ctx context.Context, req KeywordRequest) ([]KeywordHit, error)
}

// SemanticRequest is one natural-language query for a neural engine
type SemanticRequest struct {
	Query      string
	Exclude    []string
	NumResults int
}

// SemanticHit is a neural-search result with its best highlight
type SemanticHit struct {
	Title          string
	URL            string
	Highlight      string
	HighlightScore float64
	PublishedAt    *time.Time
}

// SemanticProvider is a neural search engine scored by highlight similarity
type SemanticProvider interface {
	Name() string
	Search(ctx context.Context, req SemanticRequest) ([]SemanticHit, error)
}

// BranchResult is the outcome of one retrieval branch
type BranchResult struct {
	Status   types.StageStatus
	Results  []types.SearchResult
	Warnings []string
}

// hostOf returns the lowercase host of raw without "www.", or "" if raw is not an absolute URL
func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// matchesDomain reports whether host is domain or one of its subdomains
func matchesDomain(host string, domains []string) bool {
	for _, d := range domains {
		d = strings.TrimPrefix(strings.ToLower(d), "www.")
		if d != "" && (host == d || strings.HasSuffix(host, "."+d)) {
			return true
		}
	}
	return false
}

// dedupKey identifies a URL within a branch; ranking does the full canonicalization
func dedupKey(raw string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), "/")
}
