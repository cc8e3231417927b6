package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"trendscout/config"
	"trendscout/logging"
	"trendscout/types"
)

// Completer answers a prompt with a JSON document decoded into out
type Completer interface {
	CompleteJSON(ctx context.Context, system, user string, out any) error
}

// ErrEmptyResponse is returned when the model produced no choices
var ErrEmptyResponse = errors.New("model returned no choices")

// Client is a Completer backed by any langchaingo model
type Client struct {
	model       llms.Model
	temperature float64
	retries     int
	logger      *zap.Logger
}

// New creates a Client for an OpenAI-compatible endpoint.
// Use "none" as token for local services that don't require authentication.
func New(cfg config.LLMConfig, logger *zap.Logger) (*Client, error) {
	token := cfg.APIKey
	if token == "" {
		token = "none"
	}
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return NewWithModel(model, cfg.Temperature, cfg.Retries, logger), nil
}

// NewWithModel wraps an existing model
func NewWithModel(model llms.Model, temperature float64, retries int, logger *zap.Logger) *Client {
	if retries < 0 {
		retries = 0
	}
	return &Client{
		model:       model,
		temperature: temperature,
		retries:     retries,
		logger:      logging.OrNop(logger).Named("llm"),
	}
}

// CompleteJSON sends a system and a user message in JSON mode. Malformed JSON
// is retried up to the configured count; transport errors are not.
func (c *Client) CompleteJSON(ctx context.Context, system, user string, out any) error {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(user)},
		},
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		resp, err := c.model.GenerateContent(ctx, content,
			llms.WithTemperature(c.temperature),
			llms.WithJSONMode(),
		)
		if err != nil {
			return &types.ProviderError{Provider: "llm", Err: err}
		}
		if resp == nil || len(resp.Choices) == 0 {
			return &types.ProviderError{Provider: "llm", Err: ErrEmptyResponse}
		}

		text := CleanJSON(resp.Choices[0].Content)
		if err := json.Unmarshal([]byte(text), out); err != nil {
			lastErr = fmt.Errorf("decode model response: %w", err)
			c.logger.Warn("malformed model response",
				zap.Int("attempt", attempt+1),
				zap.String("response", text),
				zap.Error(err))
			continue
		}
		return nil
	}
	return lastErr
}

// CleanJSON strips markdown fences and any prose around the outermost JSON object
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return removeTrailingCommas(s)
}

// removeTrailingCommas drops commas directly before a closing bracket, outside strings
func removeTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			b.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
			b.WriteByte(ch)
			continue
		}
		if ch == ',' {
			j := i + 1
			for j < len(s) && strings.ContainsRune(" \t\r\n", rune(s[j])) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(ch)
	}
	return b.String()
}
