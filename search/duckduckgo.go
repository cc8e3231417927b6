package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"trendscout/config"
)

const (
	ddgRetries      = 2
	ddgRetryBackoff = 500 * time.Millisecond
)

// errRateLimited marks a response the HTML endpoint sends when throttling
var errRateLimited = errors.New("rate limited")

// DuckDuckGo scrapes the DuckDuckGo HTML endpoint
type DuckDuckGo struct {
	endpoint   string
	region     string
	timeLimit  string
	maxResults int
	userAgent  string
	client     *http.Client
	backoff    time.Duration
}

// NewDuckDuckGo creates the keyword provider. It returns nil when disabled.
func NewDuckDuckGo(cfg config.DuckDuckGoConfig, userAgent string, client *http.Client) *DuckDuckGo {
	if !cfg.Enabled {
		return nil
	}
	if client == nil {
		client = &http.Client{}
	}
	n := cfg.MaxResults
	if n <= 0 {
		n = config.KeywordTopN
	}
	return &DuckDuckGo{
		endpoint:   cfg.Endpoint,
		region:     cfg.Region,
		timeLimit:  cfg.TimeLimit,
		maxResults: n,
		userAgent:  userAgent,
		client:     client,
		backoff:    ddgRetryBackoff,
	}
}

// Name implements KeywordProvider
func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search implements KeywordProvider. Throttled requests (202, 429, 5xx) are
// retried with exponential backoff until ctx ends.
func (d *DuckDuckGo) Search(ctx context.Context, req KeywordRequest) ([]KeywordHit, error) {
	form := url.Values{}
	form.Set("q", withSites(req.Query, req.Sites))
	if d.region != "" {
		form.Set("kl", d.region)
	}
	if d.timeLimit != "" {
		form.Set("df", d.timeLimit)
	}
	body := form.Encode()

	delay := d.backoff
	for attempt := 0; ; attempt++ {
		hits, err := d.post(ctx, body)
		if err == nil || !errors.Is(err, errRateLimited) || attempt == ddgRetries {
			return hits, err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w (gave up: %v)", err, ctx.Err())
		case <-timer.C:
		}
		delay *= 2
	}
}

func (d *DuckDuckGo) post(ctx context.Context, body string) ([]KeywordHit, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if d.userAgent != "" {
		httpReq.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request results: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusAccepted, resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return nil, fmt.Errorf("duckduckgo returned %s: %w", resp.Status, errRateLimited)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("duckduckgo returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	return parseDuckDuckGo(doc, d.maxResults), nil
}

func parseDuckDuckGo(doc *goquery.Document, limit int) []KeywordHit {
	var hits []KeywordHit
	doc.Find(".result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := unwrapRedirect(href)
		if target == "" {
			return true
		}
		hits = append(hits, KeywordHit{
			Title:   strings.TrimSpace(link.Text()),
			URL:     target,
			Snippet: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
		})
		return limit <= 0 || len(hits) < limit
	})
	return hits
}

// unwrapRedirect turns "//duckduckgo.com/l/?uddg=<url>" links into the target URL
func unwrapRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Hostname(), "duckduckgo.com") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// withSites restricts query to the given domains using site: operators
func withSites(query string, sites []string) string {
	if len(sites) == 0 {
		return query
	}
	clauses := make([]string, len(sites))
	for i, s := range sites {
		clauses[i] = "site:" + s
	}
	return query + " (" + strings.Join(clauses, " OR ") + ")"
}
