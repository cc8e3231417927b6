package search

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"trendscout/config"
)

const feedCacheTTL = 10 * time.Minute

// Feeds searches the RSS/Atom feeds of allow-listed sites by term matching
type Feeds struct {
	registry  config.Registry
	userAgent string
	now       func() time.Time

	mu    sync.Mutex
	cache map[string]cachedFeed
}

type cachedFeed struct {
	items     []*gofeed.Item
	fetchedAt time.Time
}

// NewFeeds creates the feed provider. It returns nil when disabled.
func NewFeeds(cfg config.FeedsConfig, registry config.Registry, userAgent string) *Feeds {
	if !cfg.Enabled {
		return nil
	}
	return &Feeds{registry: registry, userAgent: userAgent, now: time.Now, cache: make(map[string]cachedFeed)}
}

// Name implements KeywordProvider
func (f *Feeds) Name() string { return "feeds" }

// Search implements KeywordProvider. Every feed of the category's allow-list is
// read and its items scored against the query terms.
func (f *Feeds) Search(ctx context.Context, req KeywordRequest) ([]KeywordHit, error) {
	terms := queryTerms(req.Query)
	if len(terms) == 0 {
		return nil, nil
	}

	type scored struct {
		hit   KeywordHit
		score float64
	}
	var (
		matches []scored
		errs    []string
		read    int
	)
	for _, src := range f.registry.AllowList(req.Category) {
		if src.Feed == "" {
			continue
		}
		items, err := f.items(ctx, src.Feed)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", src.Domain, err))
			continue
		}
		read++
		for _, item := range items {
			score := feedRelevance(item, terms)
			if score <= 0 || item.Link == "" {
				continue
			}
			hit := KeywordHit{Title: item.Title, URL: item.Link, Snippet: item.Description}
			if item.PublishedParsed != nil {
				t := item.PublishedParsed.UTC()
				hit.PublishedAt = &t
			} else if item.UpdatedParsed != nil {
				t := item.UpdatedParsed.UTC()
				hit.PublishedAt = &t
			}
			matches = append(matches, scored{hit: hit, score: score})
		}
	}
	if read == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("no feed could be read: %s", strings.Join(errs, "; "))
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return newer(matches[i].hit.PublishedAt, matches[j].hit.PublishedAt)
	})
	hits := make([]KeywordHit, len(matches))
	for i, m := range matches {
		hits[i] = m.hit
	}
	return hits, nil
}

func (f *Feeds) items(ctx context.Context, feedURL string) ([]*gofeed.Item, error) {
	f.mu.Lock()
	c, ok := f.cache[feedURL]
	f.mu.Unlock()
	if ok && f.now().Sub(c.fetchedAt) < feedCacheTTL {
		return c.items, nil
	}

	// gofeed.Parser keeps per-parse state; one per fetch
	parser := gofeed.NewParser()
	parser.UserAgent = f.userAgent
	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	f.mu.Lock()
	f.cache[feedURL] = cachedFeed{items: feed.Items, fetchedAt: f.now()}
	f.mu.Unlock()
	return feed.Items, nil
}

// feedRelevance adds 0.5 per term in the title and 0.3 per term in the description, capped at 1
func feedRelevance(item *gofeed.Item, terms []string) float64 {
	title := strings.ToLower(item.Title)
	desc := strings.ToLower(item.Description)
	var score float64
	for _, t := range terms {
		if strings.Contains(title, t) {
			score += 0.5
		}
		if strings.Contains(desc, t) {
			score += 0.3
		}
	}
	return min(score, 1)
}

var (
	quotedPhrase = regexp.MustCompile(`"([^"]+)"`)
	operatorWord = regexp.MustCompile(`(?i)\b(and|or|not)\b|site:\S+|[()]`)
)

// queryTerms pulls the quoted phrases out of a keyword query, or its bare words when nothing is quoted
func queryTerms(query string) []string {
	var terms []string
	for _, m := range quotedPhrase.FindAllStringSubmatch(query, -1) {
		if t := strings.ToLower(strings.TrimSpace(m[1])); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) > 0 {
		return terms
	}
	for _, w := range strings.Fields(operatorWord.ReplaceAllString(query, " ")) {
		if len(w) > 2 {
			terms = append(terms, strings.ToLower(w))
		}
	}
	return terms
}

func newer(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	}
	return a.After(*b)
}
