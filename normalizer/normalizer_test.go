package normalizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendscout/types"
)

var fixedNow = time.Date(2026, time.October, 17, 9, 0, 0, 0, time.UTC)

func newTestNormalizer(opts ...Option) *Normalizer {
	return New(NewRules(nil, 0, nil), append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
}

func TestNormalizeValidQuery(t *testing.T) {
	n := newTestNormalizer()

	intent, warnings, err := n.Normalize(context.Background(),
		types.RawQuery{Text: "Recent trends in sofa bed design in France"}, types.SessionContext{})
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, []string{"sofa bed design"}, intent.Focus)
	assert.Equal(t, "France", intent.Context.Geography)
	assert.Equal(t, "recent", intent.Context.TimeWindow)
	assert.Equal(t, "Fall 2026", intent.Context.Period)
	assert.Equal(t, types.ObjectiveTrend, intent.Objective)
	assert.Equal(t, types.ValidityValid, intent.Validity)
	assert.Equal(t, "home", intent.Category)
	assert.Equal(t, "en", intent.Language)
	assert.Equal(t, fixedNow, intent.DetectedAt)
	assert.Contains(t, intent.Scope, "aesthetic appeal")
}

func TestNormalizeVagueQueryNeedsClarification(t *testing.T) {
	n := newTestNormalizer()

	_, _, err := n.Normalize(context.Background(), types.RawQuery{Text: "Tech trends"}, types.SessionContext{})
	require.ErrorIs(t, err, types.ErrClarificationNeeded)

	var clarify *types.ClarificationError
	require.True(t, errors.As(err, &clarify))
	assert.Contains(t, clarify.Prompt, "?")
	assert.True(t, IsControlFlow(err))
}

func TestNormalizeOffScopeIsRejectedWithSuggestion(t *testing.T) {
	n := newTestNormalizer()

	_, _, err := n.Normalize(context.Background(), types.RawQuery{Text: "tell me a joke about sneakers"}, types.SessionContext{})
	require.ErrorIs(t, err, types.ErrScopeRejected)

	var scope *types.ScopeError
	require.True(t, errors.As(err, &scope))
	assert.Equal(t, "What are the current market trends for sneakers?", scope.Suggestion)
}

func TestNormalizeFillsDefaults(t *testing.T) {
	n := newTestNormalizer()

	intent, _, err := n.Normalize(context.Background(), types.RawQuery{Text: "wireless earbuds"}, types.SessionContext{})
	require.NoError(t, err)
	assert.Equal(t, "global", intent.Context.Geography)
	assert.Equal(t, "2026", intent.Context.TimeWindow)
	assert.Equal(t, types.ObjectiveTrend, intent.Objective)
	assert.Equal(t, defaultScope, intent.Scope)
	assert.Equal(t, "general", intent.Category)

	intent, _, err = n.Normalize(context.Background(), types.RawQuery{Text: "wireless earbuds"},
		types.SessionContext{TargetGeographies: []string{"Japan"}, Category: "Electronics", LanguageHint: "fr-FR"})
	require.NoError(t, err)
	assert.Equal(t, "Japan", intent.Context.Geography)
	assert.Equal(t, "electronics", intent.Category)
	assert.Equal(t, "fr", intent.Language)
}

func TestNormalizeObjectives(t *testing.T) {
	cases := []struct {
		query     string
		objective types.Objective
		focus     []string
		window    string
	}{
		{"forecast for upcoming sneakers in Japan", types.ObjectivePrediction, []string{"sneakers"}, "upcoming"},
		{"compare sofa beds vs futons in Germany", types.ObjectiveComparison, []string{"sofa beds", "futons"}, "2026"},
		{"sustainable skincare trends 2025", types.ObjectiveTrend, []string{"sustainable skincare"}, "2025"},
	}
	n := newTestNormalizer()
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			intent, _, err := n.Normalize(context.Background(), types.RawQuery{Text: tc.query}, types.SessionContext{})
			require.NoError(t, err)
			assert.Equal(t, tc.objective, intent.Objective)
			assert.Equal(t, tc.focus, intent.Focus)
			assert.Equal(t, tc.window, intent.Context.TimeWindow)
		})
	}
}

type stubCapabilities struct {
	cls    Classification
	ext    Extraction
	clsErr error
	extErr error
}

func (s stubCapabilities) Classify(ctx context.Context, text string) (Classification, error) {
	return s.cls, s.clsErr
}

func (s stubCapabilities) Extract(ctx context.Context, text string) (Extraction, error) {
	return s.ext, s.extErr
}

func TestNormalizeUsesModelWhenConfigured(t *testing.T) {
	model := stubCapabilities{
		cls: Classification{Validity: types.ValidityValid},
		ext: Extraction{Focus: []string{"modular sofas"}, Geography: "Italy", Objective: types.ObjectiveUnknown},
	}
	n := newTestNormalizer(WithModel(model, model))

	intent, warnings, err := n.Normalize(context.Background(), types.RawQuery{Text: "anything"}, types.SessionContext{})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"modular sofas"}, intent.Focus)
	assert.Equal(t, "Italy", intent.Context.Geography)
	assert.Equal(t, types.ObjectiveTrend, intent.Objective, "unknown objective falls back to the default")
}

func TestNormalizeFallsBackToRulesOnModelError(t *testing.T) {
	model := stubCapabilities{clsErr: errors.New("rate limited"), extErr: errors.New("rate limited")}
	n := newTestNormalizer(WithModel(model, model))

	intent, warnings, err := n.Normalize(context.Background(),
		types.RawQuery{Text: "Recent trends in sofa bed design in France"}, types.SessionContext{})
	require.NoError(t, err)
	assert.Len(t, warnings, 2)
	assert.Equal(t, []string{"sofa bed design"}, intent.Focus)
}

type failingRules struct{}

func (failingRules) Classify(ctx context.Context, text string) (Classification, error) {
	return Classification{}, errors.New("boom")
}

func TestNormalizeFailsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n := newTestNormalizer(WithModel(failingRules{}, stubCapabilities{}))

	_, _, err := n.Normalize(ctx, types.RawQuery{Text: "sofa beds"}, types.SessionContext{})
	require.ErrorIs(t, err, types.ErrStageFailed)
	assert.False(t, IsControlFlow(err))
}

type stubScorer float64

func (s stubScorer) Score(ctx context.Context, text string) (float64, error) { return float64(s), nil }

func TestRulesScopeGuard(t *testing.T) {
	r := NewRules(stubScorer(0.1), 0.3, nil)
	cls, err := r.Classify(context.Background(), "quantum chromodynamics lectures")
	require.NoError(t, err)
	assert.Equal(t, types.ValidityOffScope, cls.Validity)

	r = NewRules(stubScorer(0.8), 0.3, nil)
	cls, err = r.Classify(context.Background(), "linen bedding")
	require.NoError(t, err)
	assert.Equal(t, types.ValidityValid, cls.Validity)
}

func TestResolvePeriod(t *testing.T) {
	cases := []struct {
		window string
		now    time.Time
		want   string
	}{
		{"recent", fixedNow, "Fall 2026"},
		{"upcoming", fixedNow, "Winter 2026"},
		{"next", time.Date(2026, time.December, 5, 0, 0, 0, 0, time.UTC), "Spring 2027"},
		{"previous", time.Date(2027, time.January, 5, 0, 0, 0, 0, time.UTC), "Fall 2026"},
		{"latest", time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC), "Summer 2026"},
		{"", fixedNow, "2026"},
		{"2024", fixedNow, "2024"},
		{"Q3", fixedNow, "Q3"},
	}
	for _, tc := range cases {
		t.Run(tc.window, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolvePeriod(tc.window, tc.now))
		})
	}
}

func TestResolveLanguage(t *testing.T) {
	assert.Equal(t, "de", ResolveLanguage("de-AT", "", "anything"))
	assert.Equal(t, "es", ResolveLanguage("not a tag!", "es", "anything"))
	assert.Equal(t, "fr", ResolveLanguage("", "", "les tendances des canapés en France"))
	assert.Equal(t, "en", ResolveLanguage("", "", "zzz"))
}
