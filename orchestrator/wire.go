package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"trendscout/config"
	"trendscout/enricher"
	"trendscout/extraction"
	"trendscout/handoff"
	"trendscout/llm"
	"trendscout/logging"
	"trendscout/normalizer"
	"trendscout/pipeline"
	"trendscout/ranking"
	"trendscout/reportstore"
	"trendscout/search"
	"trendscout/settings"
)

// Build wires the full service from configuration. Optional backends (LLM,
// Cohere, Redis, SQLite, S3, Kafka) are enabled by their settings. The returned
// closer releases every connection that was opened.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Service, io.Closer, error) {
	logger = logging.OrNop(logger)
	closers := &closerList{}

	p, err := BuildPipeline(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	var reports reportstore.Store
	if cfg.Redis.Addr != "" {
		r, err := reportstore.NewRedis(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		closers.add(r)
		reports = r
		logger.Info("report store: redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		reports = reportstore.NewMemory(cfg.Redis.ReportTTL)
		logger.Info("report store: memory")
	}

	var store settings.Store
	if cfg.SQLite.Path != "" {
		s, err := settings.OpenSQLite(ctx, cfg.SQLite.Path, logger)
		if err != nil {
			closers.Close()
			return nil, nil, err
		}
		closers.add(s)
		store = s
	}

	var (
		uploader handoff.Uploader
		notifier handoff.Notifier
	)
	if cfg.S3.Bucket != "" {
		b, err := handoff.NewS3Bundles(ctx, cfg.S3)
		if err != nil {
			logger.Warn("s3 handoff disabled", zap.Error(err))
		} else {
			uploader = b
		}
	}
	if len(cfg.Kafka.Brokers) > 0 {
		k, err := handoff.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.ResultTopic)
		if err != nil {
			logger.Warn("kafka handoff disabled", zap.Error(err))
		} else {
			closers.add(k)
			notifier = k
		}
	}

	svc := NewService(p, reports, store, handoff.NewChain(uploader, notifier, logger), logger)
	return svc, closers, nil
}

// BuildPipeline wires the five stages. Only the search providers are required.
func BuildPipeline(cfg *config.Config, logger *zap.Logger) (*pipeline.Pipeline, error) {
	httpClient := &http.Client{Timeout: cfg.Extraction.FetchTimeout}

	var scorer normalizer.ScopeScorer
	if cfg.Cohere.APIKey != "" {
		scorer = llm.NewScopeScorer(llm.NewCohereEmbeddings(cfg.Cohere.APIKey, cfg.Cohere.Model))
	}
	rules := normalizer.NewRules(scorer, cfg.Cohere.ScopeThreshold, logger)
	normOpts := []normalizer.Option{normalizer.WithLogger(logger)}

	var expander enricher.Expander
	if cfg.LLM.Enabled() {
		client, err := llm.New(cfg.LLM, logger)
		if err != nil {
			return nil, err
		}
		caps := normalizer.NewModelCapabilities(client)
		normOpts = append(normOpts, normalizer.WithModel(caps, caps))
		expander = enricher.NewModelExpander(client)
	}

	var keywordProviders []search.KeywordProvider
	if ddg := search.NewDuckDuckGo(cfg.Search.DuckDuckGo, cfg.Extraction.UserAgent, httpClient); ddg != nil {
		keywordProviders = append(keywordProviders, ddg)
	}
	if feeds := search.NewFeeds(cfg.Search.Feeds, cfg.Registry, cfg.Extraction.UserAgent); feeds != nil {
		keywordProviders = append(keywordProviders, feeds)
	}
	var semanticProviders []search.SemanticProvider
	if exa := search.NewExa(cfg.Search.Exa, httpClient); exa != nil {
		semanticProviders = append(semanticProviders, exa)
	}
	if len(keywordProviders) == 0 && len(semanticProviders) == 0 {
		return nil, errors.New("no search provider configured: enable duckduckgo or feeds, or set EXA_API_KEY")
	}

	coordinator := search.NewCoordinator(
		search.NewKeywordBranch(cfg.Registry, logger, keywordProviders...),
		search.NewSemanticBranch(logger, semanticProviders...),
		cfg.Search.BranchTimeout,
		logger,
	)

	deps := pipeline.Deps{
		Normalizer: normalizer.New(rules, normOpts...),
		Enricher:   enricher.New(expander, logger),
		Searcher:   coordinator,
		Ranker:     ranking.New(cfg.Ranking, logger),
		Extractor:  extraction.New(extraction.NewHTTPFetcher(httpClient, cfg.Extraction.UserAgent), cfg.Extraction, logger),
	}
	return pipeline.New(deps, cfg.Stages, nil, logger), nil
}

type closerList struct {
	closers []io.Closer
}

func (c *closerList) add(cl io.Closer) { c.closers = append(c.closers, cl) }

// Close closes in reverse order and joins the errors
func (c *closerList) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close: %w", err))
		}
	}
	return errors.Join(errs...)
}
