package config

import "time"

// Retrieval Bounds
const (
	// SemanticTopN is the most results the semantic branch keeps
	SemanticTopN = 15

	// KeywordTopN is the most results the keyword branch keeps
	KeywordTopN = 10

	// TopK is the most ranked results promoted to extraction
	TopK = 7

	// MaxQueriesPerFamily caps each enriched query family
	MaxQueriesPerFamily = 6
)

// Extraction Constants
const (
	// MinExtractionWorkers and MaxExtractionWorkers bound concurrent fetches
	MinExtractionWorkers = 4
	MaxExtractionWorkers = 8

	// DefaultExtractionWorkers is used when no worker count is configured
	DefaultExtractionWorkers = 6

	// MaxMediaPerDocument limits images kept per scraped page
	MaxMediaPerDocument = 5

	// MaxDocumentBytes limits how much of a response body is read
	MaxDocumentBytes = 5 << 20

	// DefaultMinTextChars marks shorter extractions as partial
	DefaultMinTextChars = 400

	// BrowserUserAgent is sent with every outbound page request
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Stage Budgets
const (
	DefaultNormalizeTimeout = 30 * time.Second
	DefaultEnrichTimeout    = 30 * time.Second
	DefaultBranchTimeout    = 25 * time.Second
	DefaultFetchTimeout     = 20 * time.Second
	DefaultExtractTimeout   = 90 * time.Second
)

// Scoring Defaults
const (
	DefaultFreshnessWeight     = 0.3
	DefaultFreshnessWindowDays = 365
	DefaultExactMatchBonus     = 0.15
	DefaultCrossBranchBonus    = 0.2
)

// Storage Defaults
const (
	// ReportTTL is how long finished run reports stay in Redis
	ReportTTL = 7 * 24 * time.Hour

	// SessionHistoryLimit caps run ids remembered per session
	SessionHistoryLimit = 50

	// PresignLifetime is the validity of handoff bundle URLs
	PresignLifetime = 24 * time.Hour
)
