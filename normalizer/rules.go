package normalizer

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"trendscout/logging"
	"trendscout/types"
)

// ScopeScorer rates how research-aligned a text is, higher is closer
type ScopeScorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// Rules is the deterministic Classifier and Extractor
type Rules struct {
	scorer    ScopeScorer
	threshold float64
	logger    *zap.Logger
}

// NewRules creates rule-based capabilities. scorer may be nil.
func NewRules(scorer ScopeScorer, threshold float64, logger *zap.Logger) *Rules {
	return &Rules{scorer: scorer, threshold: threshold, logger: logging.OrNop(logger)}
}

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}'&-]*|,`)

type token struct {
	text  string // lowercase
	isSep bool
}

func tokenize(text string) []token {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := make([]token, 0, len(raw))
	for _, r := range raw {
		r = strings.Trim(r, "'-")
		if r == "" {
			continue
		}
		out = append(out, token{text: r, isSep: r == "," || separatorWords[r]})
	}
	return out
}

// Classify implements Classifier
func (r *Rules) Classify(ctx context.Context, text string) (Classification, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return Classification{Validity: types.ValidityVague, Suggestion: clarifyPrompt(text)}, nil
	}

	var specific []string
	offScope := false
	for _, t := range tokens {
		if offScopeMarkers[t.text] {
			offScope = true
			continue
		}
		if t.isSep || stopWords[t.text] || genericWords[t.text] || objectiveWords[t.text] != "" ||
			isTemporal(t.text) || geographies[t.text] != "" || yearPattern.MatchString(t.text) {
			continue
		}
		specific = append(specific, t.text)
	}

	if offScope {
		return Classification{Validity: types.ValidityOffScope, Suggestion: reframe(specific)}, nil
	}
	if len(specific) == 0 {
		return Classification{Validity: types.ValidityVague, Suggestion: clarifyPrompt(text)}, nil
	}

	if r.scorer != nil {
		score, err := r.scorer.Score(ctx, text)
		switch {
		case err != nil:
			r.logger.Warn("scope guard unavailable", zap.Error(err))
		case score < r.threshold:
			r.logger.Debug("query below scope threshold", zap.Float64("score", score))
			return Classification{Validity: types.ValidityOffScope, Suggestion: reframe(specific)}, nil
		}
	}
	return Classification{Validity: types.ValidityValid}, nil
}

// Extract implements Extractor
func (r *Rules) Extract(ctx context.Context, text string) (Extraction, error) {
	tokens := tokenize(text)
	var ext Extraction

	geoAt := make(map[int]int) // start index -> token length of a geography match
	for i := 0; i < len(tokens); i++ {
		if i+1 < len(tokens) {
			if name, ok := geographies[tokens[i].text+" "+tokens[i+1].text]; ok {
				geoAt[i] = 2
				if ext.Geography == "" {
					ext.Geography = name
				}
				i++
				continue
			}
		}
		if name, ok := geographies[tokens[i].text]; ok {
			geoAt[i] = 1
			if ext.Geography == "" {
				ext.Geography = name
			}
		}
	}

	for _, term := range temporalTerms {
		for _, t := range tokens {
			if t.text == term {
				ext.TimeWindow = term
				break
			}
		}
		if ext.TimeWindow != "" {
			break
		}
	}
	if ext.TimeWindow == "" {
		for _, t := range tokens {
			if yearPattern.MatchString(t.text) {
				ext.TimeWindow = t.text
				break
			}
		}
	}

	// Focus phrases are the runs of tokens left between removed words.
	var runs [][]string
	var current []string
	flush := func() {
		if phrase := trimRun(current); len(phrase) > 0 {
			runs = append(runs, phrase)
		}
		current = nil
	}
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if n, ok := geoAt[i]; ok {
			// drop a dangling preposition such as "in" before the place
			if len(current) > 0 && stopWords[current[len(current)-1]] {
				current = current[:len(current)-1]
			}
			flush()
			i += n - 1
			continue
		}
		if obj, ok := objectiveWords[t.text]; ok {
			if ext.Objective == "" || ext.Objective == types.ObjectiveTrend {
				ext.Objective = types.Objective(obj)
			}
			flush()
			continue
		}
		if t.isSep || isTemporal(t.text) || yearPattern.MatchString(t.text) {
			flush()
			continue
		}
		current = append(current, t.text)
	}
	flush()

	seen := make(map[string]bool)
	for _, run := range runs {
		phrase := strings.Join(run, " ")
		if !seen[phrase] && !allGeneric(run) {
			seen[phrase] = true
			ext.Focus = append(ext.Focus, phrase)
		}
	}

	ext.Scope = detectScope(tokens)
	ext.Category = detectCategory(ext.Focus)
	return ext, nil
}

// trimRun removes stop and filler words from both ends of a run
func trimRun(run []string) []string {
	edge := func(w string) bool { return stopWords[w] || fillerWords[w] }
	for len(run) > 0 && edge(run[0]) {
		run = run[1:]
	}
	for len(run) > 0 && edge(run[len(run)-1]) {
		run = run[:len(run)-1]
	}
	return run
}

func allGeneric(run []string) bool {
	for _, w := range run {
		if !genericWords[w] && !stopWords[w] {
			return false
		}
	}
	return true
}

func isTemporal(w string) bool {
	for _, t := range temporalTerms {
		if w == t {
			return true
		}
	}
	return false
}

func detectScope(tokens []token) []string {
	var out []string
	for _, area := range scopeAreas {
		for _, signal := range area.Signals {
			if containsToken(tokens, signal) {
				out = append(out, area.Name)
				break
			}
		}
	}
	return out
}

func containsToken(tokens []token, w string) bool {
	for _, t := range tokens {
		if t.text == w {
			return true
		}
	}
	return false
}

// detectCategory votes over every focus word; ties go to the alphabetically first category
func detectCategory(focus []string) string {
	votes := make(map[string]int)
	for _, phrase := range focus {
		for _, w := range strings.Fields(phrase) {
			if c, ok := categoryTerms[singular(w)]; ok {
				votes[c]++
			} else if c, ok := categoryTerms[w]; ok {
				votes[c]++
			}
		}
	}
	if len(votes) == 0 {
		return ""
	}
	cats := make([]string, 0, len(votes))
	for c := range votes {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if votes[cats[i]] != votes[cats[j]] {
			return votes[cats[i]] > votes[cats[j]]
		}
		return cats[i] < cats[j]
	})
	return cats[0]
}

func singular(w string) string {
	switch {
	case strings.HasSuffix(w, "sses"):
		return strings.TrimSuffix(w, "es")
	case strings.HasSuffix(w, "ches"), strings.HasSuffix(w, "shes"):
		return strings.TrimSuffix(w, "es")
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return strings.TrimSuffix(w, "ies") + "y"
	case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && len(w) > 3:
		return strings.TrimSuffix(w, "s")
	}
	return w
}

func clarifyPrompt(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "What would you like to research? Name a product or category, and optionally a market and time frame, for example \"Recent trends in sofa bed design in France\"."
	}
	return fmt.Sprintf("Could you narrow down %q? Name a specific product or category, and optionally a market and time frame, for example \"Recent trends in sofa bed design in France\".", text)
}

func reframe(subject []string) string {
	if len(subject) == 0 {
		return "What are the current consumer trends in your product category?"
	}
	return fmt.Sprintf("What are the current market trends for %s?", strings.Join(subject, " "))
}
