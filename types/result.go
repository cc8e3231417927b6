package types

import "time"

// SourceKind identifies the retrieval branch a result came from
type SourceKind string

const (
	SourceKeyword  SourceKind = "keyword"
	SourceSemantic SourceKind = "semantic"
)

// SearchResult is one raw hit from a retrieval branch
type SearchResult struct {
	SourceKind     SourceKind `json:"source_kind"`
	URL            string     `json:"url"`
	Title          string     `json:"title"`
	Snippet        string     `json:"snippet_or_highlight"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	RelevanceScore float64    `json:"relevance_score"`
	OriginSite     string     `json:"origin_site,omitempty"`
	Provider       string     `json:"provider,omitempty"`
}

// RankedResult is a deduplicated, scored SearchResult
type RankedResult struct {
	SearchResult
	CanonicalURL   string  `json:"canonical_url"`
	CompositeScore float64 `json:"composite_score"`
	Rank           int     `json:"rank"`
	InBothBranches bool    `json:"in_both_branches,omitempty"`
}

// MediaRef points at an image found on a scraped page
type MediaRef struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// ExtractionStatus is the outcome of fetching one document
type ExtractionStatus string

const (
	ExtractionOK      ExtractionStatus = "ok"
	ExtractionPartial ExtractionStatus = "partial"
	ExtractionFailed  ExtractionStatus = "failed"
)

// ScrapedDocument is the content fetched for one ranked result
type ScrapedDocument struct {
	URL              string           `json:"url"`
	Title            string           `json:"title,omitempty"`
	Rank             int              `json:"rank"`
	ExtractedText    string           `json:"extracted_text"`
	ExtractedMedia   []MediaRef       `json:"extracted_media"`
	ExtractionStatus ExtractionStatus `json:"extraction_status"`
	Error            string           `json:"error,omitempty"`
}
