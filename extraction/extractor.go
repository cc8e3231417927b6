package extraction

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"trendscout/config"
	"trendscout/logging"
	"trendscout/types"
)

// Extractor fetches the content of ranked results with a bounded worker pool
type Extractor struct {
	fetcher      Fetcher
	workers      int
	fetchTimeout time.Duration
	minTextChars int
	logger       *zap.Logger
}

// New creates an Extractor. Worker count is clamped to the supported range.
func New(fetcher Fetcher, cfg config.ExtractionConfig, logger *zap.Logger) *Extractor {
	workers := cfg.Workers
	if workers == 0 {
		workers = config.DefaultExtractionWorkers
	}
	workers = min(max(workers, config.MinExtractionWorkers), config.MaxExtractionWorkers)
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = config.DefaultFetchTimeout
	}
	minText := cfg.MinTextChars
	if minText <= 0 {
		minText = config.DefaultMinTextChars
	}
	return &Extractor{
		fetcher:      fetcher,
		workers:      workers,
		fetchTimeout: timeout,
		minTextChars: minText,
		logger:       logging.OrNop(logger).Named("extraction"),
	}
}

// Extract returns one document per ranked result, in the same order.
// Failures never abort the batch; they come back as failed documents and warnings.
func (e *Extractor) Extract(ctx context.Context, ranked []types.RankedResult) ([]types.ScrapedDocument, []string) {
	docs := make([]types.ScrapedDocument, len(ranked))
	if len(ranked) == 0 {
		return docs, nil
	}

	pool, err := ants.NewPool(e.workers)
	if err != nil {
		e.logger.Error("failed to create worker pool, extracting sequentially", zap.Error(err))
		for i, r := range ranked {
			docs[i] = e.extractOne(ctx, r)
		}
		return docs, e.warnings(docs)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, r := range ranked {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			docs[i] = e.extractOne(ctx, r)
		}
		if err := pool.Submit(task); err != nil {
			e.logger.Warn("pool rejected task, running inline", zap.Error(err))
			task()
		}
	}
	wg.Wait()

	return docs, e.warnings(docs)
}

func (e *Extractor) extractOne(ctx context.Context, r types.RankedResult) types.ScrapedDocument {
	doc := types.ScrapedDocument{
		URL:            r.URL,
		Title:          r.Title,
		Rank:           r.Rank,
		ExtractedMedia: []types.MediaRef{},
	}

	res, err := e.fetchWithRetry(ctx, r.URL)
	if err != nil {
		doc.ExtractionStatus = types.ExtractionFailed
		doc.Error = err.Error()
		e.logger.Warn("extraction failed", zap.String("url", r.URL), zap.Error(err))
		return doc
	}

	if res.Title != "" {
		doc.Title = res.Title
	}
	doc.ExtractedText = res.Text
	if res.Media != nil {
		doc.ExtractedMedia = res.Media
	}
	doc.ExtractionStatus = types.ExtractionOK
	if utf8.RuneCountInString(res.Text) < e.minTextChars {
		doc.ExtractionStatus = types.ExtractionPartial
	}
	e.logger.Debug("extracted", zap.String("url", r.URL), zap.String("status", string(doc.ExtractionStatus)))
	return doc
}

// fetchWithRetry makes at most two attempts, the second only after a transient failure
func (e *Extractor) fetchWithRetry(ctx context.Context, url string) (FetchResult, error) {
	var (
		res FetchResult
		err error
	)
	for attempt := 0; attempt < 2; attempt++ {
		actx, cancel := context.WithTimeout(ctx, e.fetchTimeout)
		res, err = e.fetcher.Fetch(actx, url)
		cancel()
		if err == nil || !IsTransient(err) || ctx.Err() != nil {
			break
		}
	}
	return res, err
}

func (e *Extractor) warnings(docs []types.ScrapedDocument) []string {
	var out []string
	for _, d := range docs {
		switch d.ExtractionStatus {
		case types.ExtractionFailed:
			out = append(out, fmt.Sprintf("%s: %s", d.URL, d.Error))
		case types.ExtractionPartial:
			out = append(out, fmt.Sprintf("%s: only %d characters extracted", d.URL, utf8.RuneCountInString(d.ExtractedText)))
		}
	}
	return out
}
