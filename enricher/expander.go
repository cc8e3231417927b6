package enricher

import (
	"context"
	"fmt"
	"strings"

	"trendscout/llm"
	"trendscout/types"
)

// Expansion is the broadened vocabulary for one intent
type Expansion struct {
	// Variants are alternate phrasings of the focus terms
	Variants []string
	// ScopeTerms are search phrases for the intent's analysis areas
	ScopeTerms []string
	// Extra query strings proposed by a model, split by family later
	KeywordVariants  []string
	QuestionVariants []string
}

// Expander broadens an intent with synonyms and adjacent terms
type Expander interface {
	Expand(ctx context.Context, intent types.QueryIntent) (Expansion, error)
}

// scopeTerms maps each analysis area to its search phrases
var scopeTerms = map[string][]string{
	"functionality":          {"practical features", "usability", "performance", "durability"},
	"aesthetic appeal":       {"design", "style", "visual appeal", "aesthetics"},
	"sustainability":         {"eco-friendly", "sustainable", "environmental impact", "green products"},
	"technology integration": {"smart features", "connectivity", "digital integration", "tech-enabled"},
	"health and wellness":    {"health benefits", "wellness features", "safety", "comfort"},
	"affordability":          {"price point", "value for money", "budget-friendly"},
	"seasonality":            {"seasonal trends", "seasonal relevance"},
	"exclusivity":            {"premium features", "luxury", "unique selling points"},
	"cultural alignment":     {"cultural relevance", "local preferences"},
	"innovation":             {"innovative features", "new technology", "cutting-edge"},
}

// synonyms swaps one word of a focus phrase for an established alternative
var synonyms = map[string]string{
	"sofa": "couch", "couch": "sofa", "sneakers": "trainers", "trainers": "sneakers",
	"skincare": "skin care", "smartphone": "mobile phone", "smartphones": "mobile phones",
	"earbuds": "earphones", "furniture": "home furnishings", "apparel": "clothing",
	"clothing": "apparel", "handbags": "purses", "fitness": "workout", "bedding": "bed linen",
	"decor": "interior design", "laptops": "notebooks", "wearables": "wearable tech",
	"makeup": "cosmetics", "cosmetics": "makeup", "fragrance": "perfume", "perfume": "fragrance",
	"shoes": "footwear", "jewelry": "jewellery", "design": "styling",
}

// Thesaurus is the deterministic Expander
type Thesaurus struct{}

// Expand implements Expander
func (Thesaurus) Expand(ctx context.Context, intent types.QueryIntent) (Expansion, error) {
	var exp Expansion
	for _, f := range intent.Focus {
		words := strings.Fields(f)
		for i, w := range words {
			if alt, ok := synonyms[w]; ok {
				variant := append(append(append([]string{}, words[:i]...), alt), words[i+1:]...)
				exp.Variants = append(exp.Variants, strings.Join(variant, " "))
				break
			}
		}
	}
	for _, s := range intent.Scope {
		terms := scopeTerms[strings.ToLower(s)]
		if len(terms) > 2 {
			terms = terms[:2]
		}
		exp.ScopeTerms = append(exp.ScopeTerms, terms...)
	}
	return exp, nil
}

const expandSystemPrompt = `You broaden product research queries for search engines.
Return JSON only:
{"synonyms": ["alternate names for the product focus"],
 "keyword_variants": ["short keyword strings, may use quotes and AND/OR"],
 "question_variants": ["natural language research questions"]}
Return at most 4 items per list.`

// ModelExpander asks a language model for synonyms and phrasings
type ModelExpander struct {
	completer llm.Completer
}

// NewModelExpander wraps a JSON completer
func NewModelExpander(c llm.Completer) *ModelExpander {
	return &ModelExpander{completer: c}
}

// Expand implements Expander
func (m *ModelExpander) Expand(ctx context.Context, intent types.QueryIntent) (Expansion, error) {
	prompt := fmt.Sprintf("Focus: %s\nObjective: %s\nGeography: %s\nTime: %s\nScope: %s",
		strings.Join(intent.Focus, "; "), intent.Objective, intent.Context.Geography,
		intent.Context.Period, strings.Join(intent.Scope, ", "))

	var out struct {
		Synonyms         []string `json:"synonyms"`
		KeywordVariants  []string `json:"keyword_variants"`
		QuestionVariants []string `json:"question_variants"`
	}
	if err := m.completer.CompleteJSON(ctx, expandSystemPrompt, prompt, &out); err != nil {
		return Expansion{}, fmt.Errorf("expand query: %w", err)
	}
	return Expansion{
		Variants:         cleanList(out.Synonyms, true),
		KeywordVariants:  cleanList(out.KeywordVariants, false),
		QuestionVariants: cleanList(out.QuestionVariants, false),
	}, nil
}

func cleanList(in []string, lower bool) []string {
	var out []string
	for _, s := range in {
		s = strings.Join(strings.Fields(s), " ")
		if lower {
			s = strings.ToLower(s)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
