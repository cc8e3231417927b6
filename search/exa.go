package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"trendscout/config"
)

// Exa wraps the Exa neural search REST API
type Exa struct {
	endpoint   string
	apiKey     string
	numResults int
	httpClient *http.Client
}

type exaRequest struct {
	Query          string      `json:"query"`
	Type           string      `json:"type"`
	NumResults     int         `json:"numResults"`
	ExcludeDomains []string    `json:"excludeDomains,omitempty"`
	Contents       exaContents `json:"contents"`
}

type exaContents struct {
	Highlights exaHighlights `json:"highlights"`
}

type exaHighlights struct {
	NumSentences     int `json:"numSentences"`
	HighlightsPerURL int `json:"highlightsPerUrl"`
}

type exaResponse struct {
	Results []struct {
		Title           string    `json:"title"`
		URL             string    `json:"url"`
		PublishedDate   string    `json:"publishedDate"`
		Score           float64   `json:"score"`
		Highlights      []string  `json:"highlights"`
		HighlightScores []float64 `json:"highlightScores"`
	} `json:"results"`
}

// NewExa creates an Exa client. It returns nil when no API key is configured.
func NewExa(cfg config.ExaConfig, httpClient *http.Client) *Exa {
	if cfg.APIKey == "" {
		return nil
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	n := cfg.NumResults
	if n <= 0 {
		n = config.SemanticTopN
	}
	return &Exa{endpoint: cfg.Endpoint, apiKey: cfg.APIKey, numResults: n, httpClient: httpClient}
}

// Name implements SemanticProvider
func (e *Exa) Name() string { return "exa" }

// Search implements SemanticProvider
func (e *Exa) Search(ctx context.Context, req SemanticRequest) ([]SemanticHit, error) {
	n := req.NumResults
	if n <= 0 {
		n = e.numResults
	}
	payload := exaRequest{
		Query:          req.Query,
		Type:           "neural",
		NumResults:     n,
		ExcludeDomains: req.Exclude,
		Contents:       exaContents{Highlights: exaHighlights{NumSentences: 3, HighlightsPerURL: 1}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal exa request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create exa request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", e.apiKey)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("exa request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("exa returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var decoded exaResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode exa response: %w", err)
	}
	if decoded.Results == nil {
		return nil, errors.New("exa response has no results field")
	}

	hits := make([]SemanticHit, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		hit := SemanticHit{Title: r.Title, URL: r.URL, HighlightScore: r.Score}
		if len(r.Highlights) > 0 {
			hit.Highlight = r.Highlights[0]
		}
		if len(r.HighlightScores) > 0 {
			hit.HighlightScore = r.HighlightScores[0]
		}
		hit.PublishedAt = parseDate(r.PublishedDate)
		hits = append(hits, hit)
	}
	return hits, nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05.000Z", "2006-01-02"}

// parseDate reads the date formats search engines emit. Unparseable input yields nil.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
