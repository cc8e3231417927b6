package normalizer

import (
	"context"
	"fmt"
	"strings"

	"trendscout/llm"
	"trendscout/types"
)

const classifySystemPrompt = `You triage questions for a market and consumer trend research assistant.
Classify the user's query and return JSON only:
{"validity": "valid" | "vague" | "off_scope", "suggestion": "string"}
- valid: names a product, category or market to research.
- vague: research-related but too broad to search (e.g. "Tech trends"); suggestion is one clarifying question.
- off_scope: not about products, markets or consumer trends; suggestion is the closest research question the user could ask instead.
For valid queries suggestion is "".`

const extractSystemPrompt = `Analyze this product research query and return JSON only:
{"focus": ["main product or category terms"], "geography": "location or market, or null",
 "time_window": "time frame reference such as recent, upcoming, 2025, or null",
 "objective": "trend" | "prediction" | "comparison" | null,
 "scope": ["analysis areas mentioned, e.g. sustainability, functionality"],
 "category": "broad product category such as clothing, footwear, electronics, home, beauty, sports, food"}
Rules: focus must be products or product categories; only include components explicitly mentioned; use null for the rest.`

// ModelCapabilities backs Classifier and Extractor with a language model
type ModelCapabilities struct {
	completer llm.Completer
}

// NewModelCapabilities wraps a JSON completer
func NewModelCapabilities(c llm.Completer) *ModelCapabilities {
	return &ModelCapabilities{completer: c}
}

// Classify implements Classifier
func (m *ModelCapabilities) Classify(ctx context.Context, text string) (Classification, error) {
	var out struct {
		Validity   string `json:"validity"`
		Suggestion string `json:"suggestion"`
	}
	if err := m.completer.CompleteJSON(ctx, classifySystemPrompt, text, &out); err != nil {
		return Classification{}, fmt.Errorf("classify query: %w", err)
	}
	return Classification{
		Validity:   types.ParseValidity(out.Validity),
		Suggestion: strings.TrimSpace(out.Suggestion),
	}, nil
}

// Extract implements Extractor
func (m *ModelCapabilities) Extract(ctx context.Context, text string) (Extraction, error) {
	var out struct {
		Focus      []string `json:"focus"`
		Geography  string   `json:"geography"`
		TimeWindow string   `json:"time_window"`
		Objective  string   `json:"objective"`
		Scope      []string `json:"scope"`
		Category   string   `json:"category"`
	}
	if err := m.completer.CompleteJSON(ctx, extractSystemPrompt, text, &out); err != nil {
		return Extraction{}, fmt.Errorf("extract query fields: %w", err)
	}

	ext := Extraction{
		Geography:  strings.TrimSpace(out.Geography),
		TimeWindow: strings.ToLower(strings.TrimSpace(out.TimeWindow)),
		Category:   strings.ToLower(strings.TrimSpace(out.Category)),
	}
	if out.Objective != "" {
		ext.Objective = types.ParseObjective(out.Objective)
	}
	for _, f := range out.Focus {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			ext.Focus = append(ext.Focus, f)
		}
	}
	for _, s := range out.Scope {
		if s = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", " ")); s != "" {
			ext.Scope = append(ext.Scope, s)
		}
	}
	return ext, nil
}
