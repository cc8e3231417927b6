package normalizer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendscout/types"
)

// jsonCompleter answers every prompt with the same document
type jsonCompleter string

func (j jsonCompleter) CompleteJSON(ctx context.Context, system, user string, out any) error {
	return json.Unmarshal([]byte(j), out)
}

func TestModelCapabilitiesClassify(t *testing.T) {
	m := NewModelCapabilities(jsonCompleter(`{"validity": "off-scope", "suggestion": " What are sneaker trends? "}`))
	cls, err := m.Classify(context.Background(), "sing a song")
	require.NoError(t, err)
	assert.Equal(t, types.ValidityOffScope, cls.Validity)
	assert.Equal(t, "What are sneaker trends?", cls.Suggestion)
}

func TestModelCapabilitiesExtractHandlesNulls(t *testing.T) {
	m := NewModelCapabilities(jsonCompleter(`{"focus": ["Sofa Bed Design", " "], "geography": "France",
		"time_window": null, "objective": null, "scope": ["aesthetic_appeal"], "category": "Home"}`))
	ext, err := m.Extract(context.Background(), "Recent trends in sofa bed design in France")
	require.NoError(t, err)
	assert.Equal(t, []string{"sofa bed design"}, ext.Focus)
	assert.Equal(t, "France", ext.Geography)
	assert.Empty(t, ext.TimeWindow)
	assert.Empty(t, ext.Objective)
	assert.Equal(t, []string{"aesthetic appeal"}, ext.Scope)
	assert.Equal(t, "home", ext.Category)
}
