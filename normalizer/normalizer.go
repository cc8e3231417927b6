package normalizer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"trendscout/config"
	"trendscout/logging"
	"trendscout/types"
)

// Classification is the verdict of the intent-classification call
type Classification struct {
	Validity   types.Validity
	Suggestion string
}

// Extraction holds the structured fields found in a valid query. Empty fields mean absent.
type Extraction struct {
	Focus      []string
	Geography  string
	TimeWindow string
	Objective  types.Objective
	Scope      []string
	Category   string
}

// Classifier decides whether a query is research-aligned, vague or off-scope
type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// Extractor pulls the structured fields out of a valid query
type Extractor interface {
	Extract(ctx context.Context, text string) (Extraction, error)
}

// Normalizer turns a RawQuery into a QueryIntent
type Normalizer struct {
	classifier Classifier
	extractor  Extractor
	rules      *Rules
	now        func() time.Time
	logger     *zap.Logger
}

// Option configures a Normalizer
type Option func(*Normalizer)

// WithModel routes classification and extraction through model-backed
// capabilities, keeping the rules as fallback
func WithModel(c Classifier, e Extractor) Option {
	return func(n *Normalizer) {
		n.classifier = c
		n.extractor = e
	}
}

// WithClock overrides the time source used when a query has no timestamp
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(n *Normalizer) { n.logger = logging.OrNop(l).Named("normalizer") }
}

// New creates a Normalizer. Without WithModel the rules do all the work.
func New(rules *Rules, opts ...Option) *Normalizer {
	if rules == nil {
		rules = NewRules(nil, 0, nil)
	}
	n := &Normalizer{
		classifier: rules,
		extractor:  rules,
		rules:      rules,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize classifies and parses q. It returns a *types.ClarificationError for
// vague queries, a *types.ScopeError for off-scope ones and a *types.StageError
// when no capability could classify the query. Warnings describe fallbacks taken.
func (n *Normalizer) Normalize(ctx context.Context, q types.RawQuery, session types.SessionContext) (types.QueryIntent, []string, error) {
	var warnings []string
	text := strings.TrimSpace(q.Text)
	now := q.Timestamp
	if now.IsZero() {
		now = n.now()
	}

	cls, err := n.classifier.Classify(ctx, text)
	if err != nil {
		if n.classifier == Classifier(n.rules) || ctx.Err() != nil {
			return types.QueryIntent{}, warnings, types.NewStageError(types.StageNormalizing, err)
		}
		n.logger.Warn("intent classifier failed, using rules", zap.Error(err))
		warnings = append(warnings, fmt.Sprintf("intent classifier unavailable, used rule-based fallback: %v", err))
		if cls, err = n.rules.Classify(ctx, text); err != nil {
			return types.QueryIntent{}, warnings, types.NewStageError(types.StageNormalizing, err)
		}
	}

	switch cls.Validity {
	case types.ValidityVague:
		prompt := cls.Suggestion
		if prompt == "" {
			prompt = clarifyPrompt(text)
		}
		return types.QueryIntent{}, warnings, &types.ClarificationError{Prompt: prompt}
	case types.ValidityOffScope:
		suggestion := cls.Suggestion
		if suggestion == "" {
			suggestion = reframe(nil)
		}
		return types.QueryIntent{}, warnings, &types.ScopeError{Suggestion: suggestion}
	}

	ext, err := n.extractor.Extract(ctx, text)
	if err != nil {
		if n.extractor == Extractor(n.rules) || ctx.Err() != nil {
			return types.QueryIntent{}, warnings, types.NewStageError(types.StageNormalizing, err)
		}
		n.logger.Warn("field extraction failed, using rules", zap.Error(err))
		warnings = append(warnings, fmt.Sprintf("field extraction unavailable, used rule-based fallback: %v", err))
		if ext, err = n.rules.Extract(ctx, text); err != nil {
			return types.QueryIntent{}, warnings, types.NewStageError(types.StageNormalizing, err)
		}
	}

	if len(ext.Focus) == 0 {
		return types.QueryIntent{}, warnings, &types.ClarificationError{Prompt: clarifyPrompt(text)}
	}

	intent := complete(ext, session, now)
	intent.Language = ResolveLanguage(session.LanguageHint, q.Language, text)
	return intent, warnings, nil
}

// complete fills every absent field with its default so enrichment always sees a full intent
func complete(ext Extraction, session types.SessionContext, now time.Time) types.QueryIntent {
	intent := types.QueryIntent{
		Focus:      ext.Focus,
		Objective:  ext.Objective,
		Scope:      ext.Scope,
		Category:   ext.Category,
		Validity:   types.ValidityValid,
		DetectedAt: now,
		Context: types.QueryContext{
			Geography:  ext.Geography,
			TimeWindow: ext.TimeWindow,
		},
	}

	if intent.Context.Geography == "" {
		intent.Context.Geography = "global"
		if len(session.TargetGeographies) > 0 && strings.TrimSpace(session.TargetGeographies[0]) != "" {
			intent.Context.Geography = strings.TrimSpace(session.TargetGeographies[0])
		}
	}
	if intent.Context.TimeWindow == "" {
		intent.Context.TimeWindow = strconv.Itoa(now.Year())
	}
	intent.Context.Period = ResolvePeriod(intent.Context.TimeWindow, now)

	if intent.Objective == "" || intent.Objective == types.ObjectiveUnknown {
		intent.Objective = types.ObjectiveTrend
	}
	if len(intent.Scope) == 0 {
		intent.Scope = append([]string(nil), defaultScope...)
	}
	if intent.Category == "" {
		intent.Category = strings.ToLower(session.Category)
	}
	if intent.Category == "" {
		intent.Category = config.GeneralCategory
	}
	return intent
}

// IsControlFlow reports whether err is a clarification or scope rejection rather than a failure
func IsControlFlow(err error) bool {
	return errors.Is(err, types.ErrClarificationNeeded) || errors.Is(err, types.ErrScopeRejected)
}
