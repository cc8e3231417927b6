package ranking

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendscout/config"
	"trendscout/types"
)

var fixedNow = time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)

func testRanker() *Ranker {
	return New(config.Default().Ranking, nil).WithClock(func() time.Time { return fixedNow })
}

func daysAgo(d float64) *time.Time {
	t := fixedNow.Add(-time.Duration(d * 24 * float64(time.Hour)))
	return &t
}

func TestCanonicalURL(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want string
		ok   bool
	}{
		{"simple", "https://example.com/path", "https://example.com/path", true},
		{"utm and fragment", "https://example.com/path?utm_source=feed#section", "https://example.com/path", true},
		{"uppercase host and http", "HTTP://Example.COM/", "https://example.com", true},
		{"tracking params", "https://example.com/?fbclid=XYZ&gclid=ABC&utm_medium=1&msclkid=9", "https://example.com", true},
		{"www and default port", "https://www.example.com:443/a/", "https://example.com/a", true},
		{"custom port kept", "http://example.com:8080/a", "https://example.com:8080/a", true},
		{"dot segments", "https://example.com/a/./b/../c//", "https://example.com/a/c", true},
		{"query sorted", "https://example.com/p?b=2&a=1&utm_campaign=x", "https://example.com/p?a=1&b=2", true},
		{"not http", "ftp://example.com/file", "", false},
		{"relative", "/just/a/path", "", false},
		{"empty", "  ", "", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := CanonicalURL(c.url)
			assert.Equal(t, c.ok, ok)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestRankDeduplicatesAcrossBranches(t *testing.T) {
	results := []types.SearchResult{
		{SourceKind: types.SourceKeyword, URL: "https://www.dezeen.com/sofa/?utm_source=x", Title: "Sofa bed design guide", RelevanceScore: 1.0},
		{SourceKind: types.SourceSemantic, URL: "http://dezeen.com/sofa#top", RelevanceScore: 0.6, PublishedAt: daysAgo(0)},
		{SourceKind: types.SourceSemantic, URL: "https://b.com/x", RelevanceScore: 0.9, PublishedAt: daysAgo(365)},
		{SourceKind: types.SourceKeyword, URL: "ftp://bad"},
	}

	ranked, stats := testRanker().Rank(results, []string{"sofa bed design"})
	require.Len(t, ranked, 2)

	top := ranked[0]
	assert.Equal(t, "https://dezeen.com/sofa", top.CanonicalURL)
	assert.Equal(t, "https://www.dezeen.com/sofa/?utm_source=x", top.URL, "keeps the higher-scored member")
	assert.True(t, top.InBothBranches)
	assert.NotNil(t, top.PublishedAt, "date borrowed from the duplicate")
	assert.InDelta(t, 1.0+0.3+0.15+0.2, top.CompositeScore, 1e-9)
	assert.Equal(t, 1, top.Rank)

	assert.Equal(t, "https://b.com/x", ranked[1].CanonicalURL)
	assert.InDelta(t, 0.9, ranked[1].CompositeScore, 1e-9)
	assert.Equal(t, 2, ranked[1].Rank)

	assert.Equal(t, Stats{Input: 4, Unusable: 1, Duplicates: 1, CrossBranch: 1, Promoted: 2}, stats)
}

func TestRankTieBreaks(t *testing.T) {
	results := []types.SearchResult{
		{SourceKind: types.SourceSemantic, URL: "https://zzz.com/a", RelevanceScore: 0.5},
		{SourceKind: types.SourceSemantic, URL: "https://averylonghost.com/a", RelevanceScore: 0.5, PublishedAt: daysAgo(400)},
		{SourceKind: types.SourceSemantic, URL: "https://b.com/z", RelevanceScore: 0.5},
		{SourceKind: types.SourceSemantic, URL: "https://a.com/z", RelevanceScore: 0.5},
	}

	ranked, _ := testRanker().Rank(results, nil)
	var got []string
	for _, r := range ranked {
		got = append(got, r.CanonicalURL)
	}
	assert.Equal(t, []string{
		"https://averylonghost.com/a", "https://a.com/z", "https://b.com/z", "https://zzz.com/a",
	}, got)
}

func TestRankTruncatesToTopK(t *testing.T) {
	var results []types.SearchResult
	for i := 0; i < 12; i++ {
		results = append(results, types.SearchResult{
			SourceKind:     types.SourceKeyword,
			URL:            fmt.Sprintf("https://site%d.com/a", i),
			RelevanceScore: float64(i) / 12,
		})
	}

	ranked, stats := testRanker().Rank(results, nil)
	require.Len(t, ranked, config.TopK)
	assert.Equal(t, config.TopK, stats.Promoted)
	for i, r := range ranked {
		assert.Equal(t, i+1, r.Rank)
		if i > 0 {
			assert.LessOrEqual(t, r.CompositeScore, ranked[i-1].CompositeScore)
		}
	}
	assert.Equal(t, "https://site11.com/a", ranked[0].CanonicalURL)
}

func TestFreshness(t *testing.T) {
	r := testRanker()
	cases := []struct {
		name string
		date *time.Time
		want float64
	}{
		{"undated", nil, 0},
		{"today", daysAgo(0), 0.3},
		{"future", daysAgo(-30), 0.3},
		{"half window", daysAgo(182.5), 0.15},
		{"past window", daysAgo(500), 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.InDelta(t, c.want, r.freshness(c.date, fixedNow), 1e-9)
		})
	}
}

func TestExactMatchOnlyFromKeywordBranch(t *testing.T) {
	results := []types.SearchResult{
		{SourceKind: types.SourceSemantic, URL: "https://a.com/1", Title: "Sofa Bed Design in 2026", RelevanceScore: 0.5},
		{SourceKind: types.SourceKeyword, URL: "https://b.com/1", Snippet: "all about SOFA BED DESIGN", RelevanceScore: 0.5},
	}
	ranked, _ := testRanker().Rank(results, []string{"sofa bed design"})
	require.Len(t, ranked, 2)
	assert.Equal(t, "https://b.com/1", ranked[0].CanonicalURL)
	assert.InDelta(t, 0.65, ranked[0].CompositeScore, 1e-9)
	assert.InDelta(t, 0.5, ranked[1].CompositeScore, 1e-9)
}

func TestRankEmpty(t *testing.T) {
	ranked, stats := testRanker().Rank(nil, nil)
	assert.Empty(t, ranked)
	assert.Equal(t, Stats{}, stats)
}
