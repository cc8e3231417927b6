package enricher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendscout/config"
	"trendscout/types"
)

func sofaIntent() types.QueryIntent {
	return types.QueryIntent{
		Focus:     []string{"sofa bed design"},
		Objective: types.ObjectiveTrend,
		Scope:     []string{"aesthetic appeal", "functionality"},
		Validity:  types.ValidityValid,
		Category:  "home",
		Language:  "en",
		Context:   types.QueryContext{Geography: "France", TimeWindow: "recent", Period: "Fall 2026"},
	}
}

func TestEnrichBuildsBothFamilies(t *testing.T) {
	e := New(nil, nil)

	set, warnings, err := e.Enrich(context.Background(), sofaIntent(), types.SessionContext{})
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "trends in sofa bed design in France for Fall 2026 focusing on aesthetic appeal, functionality", set.CanonicalQuery)
	assert.Equal(t, []string{
		`"sofa bed design" trends France Fall 2026`,
		`"sofa bed design" AND ("design" OR "style")`,
		`"couch bed design" trends France`,
	}, set.KeywordQueries)
	assert.Equal(t, []string{
		"What are the emerging trends in sofa bed design in France for Fall 2026?",
		"How are consumer preferences for sofa bed design changing in France?",
		"How is sofa bed design evolving in terms of aesthetic appeal?",
		"How is sofa bed design evolving in terms of functionality?",
		"What is new in couch bed design in France?",
	}, set.SemanticQueries)
	assert.Equal(t, "home", set.Category)
	assert.Equal(t, []string{"sofa bed design", "couch bed design"}, set.MatchTerms)
}

func TestEnrichFamiliesAreDisjointAndWellFormed(t *testing.T) {
	model := stubExpander{exp: Expansion{
		KeywordVariants:  []string{`"sleeper sofa" 2026`, "Which sofa beds sell best?"},
		QuestionVariants: []string{"Which sofa beds sell best", "What colours are sofa beds using in 2026?"},
	}}
	e := New(model, nil)

	set, _, err := e.Enrich(context.Background(), sofaIntent(), types.SessionContext{})
	require.NoError(t, err)

	for _, k := range set.KeywordQueries {
		assert.False(t, strings.HasSuffix(k, "?"), "keyword query %q reads as a question", k)
		assert.Contains(t, k, `"`)
	}
	for _, q := range set.SemanticQueries {
		assert.True(t, strings.HasSuffix(q, "?"), "semantic query %q is not a question", q)
		assert.NotContains(t, set.KeywordQueries, q)
	}
}

func TestEnrichCapsEachFamily(t *testing.T) {
	var kw, qs []string
	for i := 0; i < 20; i++ {
		kw = append(kw, fmt.Sprintf(`"sofa bed %d"`, i))
		qs = append(qs, fmt.Sprintf("What about sofa bed %d?", i))
	}
	e := New(stubExpander{exp: Expansion{KeywordVariants: kw, QuestionVariants: qs}}, nil)

	set, _, err := e.Enrich(context.Background(), sofaIntent(), types.SessionContext{})
	require.NoError(t, err)
	assert.Len(t, set.KeywordQueries, config.MaxQueriesPerFamily)
	assert.Len(t, set.SemanticQueries, config.MaxQueriesPerFamily)
	assert.Equal(t, `"sofa bed design" trends France Fall 2026`, set.KeywordQueries[0], "templates lead the family")
}

func TestEnrichModelFailureIsAWarning(t *testing.T) {
	e := New(stubExpander{err: errors.New("timeout")}, nil)

	set, warnings, err := e.Enrich(context.Background(), sofaIntent(), types.SessionContext{})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "timeout")
	assert.NotEmpty(t, set.KeywordQueries)
	assert.NotEmpty(t, set.SemanticQueries)
}

func TestEnrichIsStableForAFixedIntent(t *testing.T) {
	e := New(nil, nil)
	session := types.SessionContext{CompetitorDomains: []string{"rival.com"}}

	first, _, err := e.Enrich(context.Background(), sofaIntent(), session)
	require.NoError(t, err)
	second, _, err := e.Enrich(context.Background(), sofaIntent(), session)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEnrichComparison(t *testing.T) {
	intent := sofaIntent()
	intent.Objective = types.ObjectiveComparison
	intent.Focus = []string{"sofa beds", "futons"}
	intent.Context.Geography = "global"

	set, _, err := New(nil, nil).Enrich(context.Background(), intent, types.SessionContext{})
	require.NoError(t, err)
	assert.Equal(t, "comparison of sofa beds vs futons worldwide for Fall 2026 focusing on aesthetic appeal, functionality", set.CanonicalQuery)
	assert.Equal(t, `"sofa beds" vs "futons"`, set.KeywordQueries[0])
	assert.Equal(t, "How do sofa beds and futons compare worldwide in Fall 2026?", set.SemanticQueries[0])
}

func TestEnrichRequiresFocus(t *testing.T) {
	intent := sofaIntent()
	intent.Focus = nil

	_, _, err := New(nil, nil).Enrich(context.Background(), intent, types.SessionContext{})
	require.ErrorIs(t, err, types.ErrStageFailed)
}

func TestExclusions(t *testing.T) {
	session := types.SessionContext{
		BusinessDomain:    "https://www.MyShop.com/about",
		CompetitorDomains: []string{"rival.com", "http://shop.rival.com:8080/x", "myshop.com", " "},
	}
	assert.Equal(t, []string{"myshop.com", "rival.com", "shop.rival.com"}, Exclusions(session))
	assert.Empty(t, Exclusions(types.SessionContext{}))
}

func TestModelExpanderCleansOutput(t *testing.T) {
	m := NewModelExpander(jsonCompleter(`{"synonyms": ["Sleeper  Sofa", ""], "keyword_variants": ["\"sleeper sofa\" trends"], "question_variants": null}`))

	exp, err := m.Expand(context.Background(), sofaIntent())
	require.NoError(t, err)
	assert.Equal(t, []string{"sleeper sofa"}, exp.Variants)
	assert.Equal(t, []string{`"sleeper sofa" trends`}, exp.KeywordVariants)
	assert.Empty(t, exp.QuestionVariants)
}

type stubExpander struct {
	exp Expansion
	err error
}

func (s stubExpander) Expand(ctx context.Context, intent types.QueryIntent) (Expansion, error) {
	return s.exp, s.err
}

type jsonCompleter string

func (j jsonCompleter) CompleteJSON(ctx context.Context, system, user string, out any) error {
	return json.Unmarshal([]byte(j), out)
}
