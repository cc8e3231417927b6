package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"trendscout/types"
)

// scriptedModel replays canned responses in order
type scriptedModel struct {
	responses []string
	err       error
	calls     int
	lastMsgs  []llms.MessageContent
}

func (m *scriptedModel) GenerateContent(ctx context.Context, msgs []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	m.lastMsgs = msgs
	if m.err != nil {
		return nil, m.err
	}
	i := m.calls
	m.calls++
	if i >= len(m.responses) {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.responses[i]}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	return "", errors.New("not supported")
}

func TestCompleteJSON(t *testing.T) {
	model := &scriptedModel{responses: []string{"```json\n{\"validity\": \"valid\", \"focus\": [\"a\", \"b\",],}\n```"}}
	c := NewWithModel(model, 0, 1, nil)

	var out struct {
		Validity string   `json:"validity"`
		Focus    []string `json:"focus"`
	}
	require.NoError(t, c.CompleteJSON(context.Background(), "sys", "user", &out))
	assert.Equal(t, "valid", out.Validity)
	assert.Equal(t, []string{"a", "b"}, out.Focus)
	require.Len(t, model.lastMsgs, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.lastMsgs[0].Role)
}

func TestCompleteJSONRetriesMalformed(t *testing.T) {
	model := &scriptedModel{responses: []string{"not json", `{"ok": true}`}}
	c := NewWithModel(model, 0, 1, nil)

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.CompleteJSON(context.Background(), "s", "u", &out))
	assert.True(t, out.OK)
	assert.Equal(t, 2, model.calls)
}

func TestCompleteJSONGivesUpAfterRetries(t *testing.T) {
	model := &scriptedModel{responses: []string{"nope", "still nope"}}
	c := NewWithModel(model, 0, 1, nil)

	var out map[string]any
	err := c.CompleteJSON(context.Background(), "s", "u", &out)
	require.Error(t, err)
	assert.Equal(t, 2, model.calls)
}

func TestCompleteJSONTransportErrorIsProviderUnavailable(t *testing.T) {
	c := NewWithModel(&scriptedModel{err: errors.New("connection refused")}, 0, 3, nil)

	var out map[string]any
	err := c.CompleteJSON(context.Background(), "s", "u", &out)
	assert.ErrorIs(t, err, types.ErrProviderUnavailable)
}

func TestCleanJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", `Sure! {"a":1} Hope that helps.`, `{"a":1}`},
		{"trailing commas", `{"a":[1,2,],}`, `{"a":[1,2]}`},
		{"comma in string kept", `{"a":"x,}"}`, `{"a":"x,}"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanJSON(tc.in))
		})
	}
}
