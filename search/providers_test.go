package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendscout/config"
	"trendscout/types"
)

func TestExaSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))

		var body exaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "What are sofa bed trends?", body.Query)
		assert.Equal(t, []string{"mine.com"}, body.ExcludeDomains)
		assert.Equal(t, 15, body.NumResults)

		fmt.Fprint(w, `{"results": [
			{"title": "Sofa beds 2026", "url": "https://dezeen.com/sofa", "publishedDate": "2026-09-01T00:00:00.000Z",
			 "score": 0.2, "highlights": ["Sofa beds are getting smaller"], "highlightScores": [0.83]},
			{"title": "No highlight", "url": "https://b.com/x", "score": 0.4}
		]}`)
	}))
	defer srv.Close()

	exa := NewExa(config.ExaConfig{Endpoint: srv.URL, APIKey: "secret"}, srv.Client())
	hits, err := exa.Search(context.Background(), SemanticRequest{Query: "What are sofa bed trends?", Exclude: []string{"mine.com"}})
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "Sofa beds are getting smaller", hits[0].Highlight)
	assert.InDelta(t, 0.83, hits[0].HighlightScore, 1e-9)
	require.NotNil(t, hits[0].PublishedAt)
	assert.Equal(t, 2026, hits[0].PublishedAt.Year())
	assert.InDelta(t, 0.4, hits[1].HighlightScore, 1e-9, "falls back to the document score")
	assert.Nil(t, hits[1].PublishedAt)
}

func TestExaErrors(t *testing.T) {
	assert.Nil(t, NewExa(config.ExaConfig{}, nil), "no key disables the provider")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewExa(config.ExaConfig{Endpoint: srv.URL, APIKey: "bad"}, nil).Search(context.Background(), SemanticRequest{Query: "q?"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

const ddgPage = `<html><body>
<div class="result results_links">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fdezeen.com%2Fsofa&amp;rut=abc">Sofa beds</a>
  <a class="result__snippet">Compact sofa beds for small flats</a>
</div>
<div class="result result--ad"><a class="result__a" href="https://ads.example.com">Ad</a></div>
<div class="result"><a class="result__a" href="https://www.bbc.co.uk/news/sofa">News</a></div>
<div class="result"><a class="result__a" href="javascript:void(0)">Broken</a></div>
</body></html>`

func TestDuckDuckGoSearch(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		query = r.PostForm.Get("q")
		assert.Equal(t, "wt-wt", r.PostForm.Get("kl"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		io.WriteString(w, ddgPage)
	}))
	defer srv.Close()

	ddg := NewDuckDuckGo(config.DuckDuckGoConfig{Enabled: true, Endpoint: srv.URL, Region: "wt-wt"}, "test-agent", srv.Client())
	hits, err := ddg.Search(context.Background(), KeywordRequest{Query: `"sofa bed" trends`, Sites: []string{"dezeen.com", "bbc.co.uk"}})
	require.NoError(t, err)

	assert.Equal(t, `"sofa bed" trends (site:dezeen.com OR site:bbc.co.uk)`, query)
	require.Len(t, hits, 2)
	assert.Equal(t, "https://dezeen.com/sofa", hits[0].URL)
	assert.Equal(t, "Sofa beds", hits[0].Title)
	assert.Equal(t, "Compact sofa beds for small flats", hits[0].Snippet)
	assert.Equal(t, "https://www.bbc.co.uk/news/sofa", hits[1].URL)
}

func TestDuckDuckGoRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, ddgPage)
	}))
	defer srv.Close()

	ddg := NewDuckDuckGo(config.DuckDuckGoConfig{Enabled: true, Endpoint: srv.URL}, "", srv.Client())
	ddg.backoff = time.Millisecond

	hits, err := ddg.Search(context.Background(), KeywordRequest{Query: "sofa"})
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDuckDuckGoRetryLimits(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		backoff   time.Duration
		timeout   time.Duration
		wantCalls int32
	}{
		{"throttled until retries run out", http.StatusAccepted, time.Millisecond, 5 * time.Second, ddgRetries + 1},
		{"server errors are retried", http.StatusBadGateway, time.Millisecond, 5 * time.Second, ddgRetries + 1},
		{"forbidden is not retried", http.StatusForbidden, time.Millisecond, 5 * time.Second, 1},
		{"backoff stops with the context", http.StatusTooManyRequests, time.Minute, 50 * time.Millisecond, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			ddg := NewDuckDuckGo(config.DuckDuckGoConfig{Enabled: true, Endpoint: srv.URL}, "", srv.Client())
			ddg.backoff = tc.backoff
			ctx, cancel := context.WithTimeout(context.Background(), tc.timeout)
			defer cancel()

			start := time.Now()
			_, err := ddg.Search(ctx, KeywordRequest{Query: "sofa"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), fmt.Sprint(tc.status))
			assert.Equal(t, tc.wantCalls, calls.Load())
			assert.Less(t, time.Since(start), 5*time.Second)
		})
	}
}

func TestDuckDuckGoDisabled(t *testing.T) {
	assert.Nil(t, NewDuckDuckGo(config.DuckDuckGoConfig{}, "", nil))
}

const rssDoc = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Dezeen</title>
<item><title>New sofa bed ideas</title><link>https://dezeen.com/ideas</link>
  <description>Small spaces</description><pubDate>Tue, 01 Sep 2026 10:00:00 GMT</pubDate></item>
<item><title>Sofa bed roundup</title><link>https://dezeen.com/roundup</link>
  <description>The best sofa bed designs</description></item>
<item><title>Kitchen islands</title><link>https://dezeen.com/kitchen</link><description>Marble</description></item>
</channel></rss>`

func TestFeedsSearchScoresAndCaches(t *testing.T) {
	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.Header().Set("Content-Type", "application/rss+xml")
		io.WriteString(w, rssDoc)
	}))
	defer srv.Close()

	registry := config.Registry{"home": {{Domain: "dezeen.com", Feed: srv.URL}}}
	feeds := NewFeeds(config.FeedsConfig{Enabled: true}, registry, "test-agent")

	hits, err := feeds.Search(context.Background(), KeywordRequest{Query: `"sofa bed" trends`, Category: "home"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "https://dezeen.com/roundup", hits[0].URL)
	assert.Equal(t, "https://dezeen.com/ideas", hits[1].URL)
	require.NotNil(t, hits[1].PublishedAt)

	_, err = feeds.Search(context.Background(), KeywordRequest{Query: `"kitchen"`, Category: "home"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetches.Load())
}

const bbcFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>BBC</title>
<item><title>Sofa beds return to French homes</title><link>https://bbc.co.uk/news/sofa</link>
  <description>Sofa bed sales rise</description></item>
</channel></rss>`

func TestKeywordBranchReadsFeedsConcurrently(t *testing.T) {
	serve := func(doc string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/rss+xml")
			io.WriteString(w, doc)
		}))
	}
	dezeen, bbc := serve(rssDoc), serve(bbcFeed)
	defer dezeen.Close()
	defer bbc.Close()

	registry := config.Registry{
		"home":    {{Domain: "dezeen.com", Feed: dezeen.URL}},
		"general": {{Domain: "bbc.co.uk", Feed: bbc.URL}},
	}
	branch := NewKeywordBranch(registry, nil, NewFeeds(config.FeedsConfig{Enabled: true}, registry, "test-agent"))

	res := branch.Run(context.Background(), types.EnrichedQuerySet{
		KeywordQueries: []string{`"sofa bed"`, `"sofa bed" trends`, "sofa beds", `"sofa"`},
		Category:       "home",
	})
	assert.Equal(t, types.StatusOK, res.Status)
	assert.Empty(t, res.Warnings)

	var urls []string
	for _, r := range res.Results {
		urls = append(urls, r.URL)
	}
	assert.Contains(t, urls, "https://dezeen.com/roundup")
	assert.Contains(t, urls, "https://bbc.co.uk/news/sofa")
}

func TestFeedsSearchFailsWhenNoFeedReadable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	registry := config.Registry{"general": {{Domain: "bbc.co.uk", Feed: srv.URL}}}
	_, err := NewFeeds(config.FeedsConfig{Enabled: true}, registry, "").Search(context.Background(), KeywordRequest{Query: "sofa"})
	require.Error(t, err)
}

func TestQueryTerms(t *testing.T) {
	assert.Equal(t, []string{"sofa bed design", "design", "style"}, queryTerms(`"Sofa Bed Design" AND ("design" OR "style")`))
	assert.Equal(t, []string{"sofa", "beds", "france"}, queryTerms("sofa AND beds (site:dezeen.com) France"))
	assert.Equal(t, "q", withSites("q", nil))
}
