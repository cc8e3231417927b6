// Package handoff passes finished research to the downstream content generator:
// the documents go to object storage and a generation request goes to Kafka.
package handoff

import (
	"context"
	"time"

	"go.uber.org/zap"

	"trendscout/logging"
	"trendscout/types"
)

// Uploader stores a report's document bundle
type Uploader interface {
	Upload(ctx context.Context, report *types.RunReport, now time.Time) (key, url string, err error)
}

// Notifier announces a ready bundle
type Notifier interface {
	Notify(ctx context.Context, req GenerationRequest) error
}

// Chain runs upload then notify. Either part may be nil.
type Chain struct {
	uploader Uploader
	notifier Notifier
	now      func() time.Time
	logger   *zap.Logger
}

// NewChain creates a handoff chain
func NewChain(uploader Uploader, notifier Notifier, logger *zap.Logger) *Chain {
	return &Chain{uploader: uploader, notifier: notifier, now: time.Now, logger: logging.OrNop(logger).Named("handoff")}
}

// Enabled reports whether any handoff target is configured
func (c *Chain) Enabled() bool {
	return c != nil && (c.uploader != nil || c.notifier != nil)
}

// Deliver hands off Done reports that carry documents. Failures become
// "handoff:" warnings on the report and never touch stage statuses.
func (c *Chain) Deliver(ctx context.Context, report *types.RunReport) {
	if !c.Enabled() || report.State != types.StateDone || report.DocumentCount() == 0 {
		return
	}
	logger := c.logger.With(zap.String("run_id", report.RunID))

	req := GenerationRequest{
		RunID:         report.RunID,
		SessionID:     report.Query.SessionID,
		DocumentCount: report.DocumentCount(),
		StageStatuses: report.StageStatuses,
	}

	if c.uploader != nil {
		key, url, err := c.uploader.Upload(ctx, report, c.now())
		if err != nil {
			logger.Warn("bundle upload failed", zap.Error(err))
			report.Warnings = append(report.Warnings, "handoff: "+err.Error())
			if key == "" {
				return
			}
		}
		req.BundleKey, req.BundleURL = key, url
	}

	if c.notifier != nil {
		req.Warnings = append([]string{}, report.Warnings...)
		if err := c.notifier.Notify(ctx, req); err != nil {
			logger.Warn("generation request not published", zap.Error(err))
			report.Warnings = append(report.Warnings, "handoff: "+err.Error())
			return
		}
	}
	logger.Info("research handed off", zap.String("bundle_key", req.BundleKey), zap.Int("documents", req.DocumentCount))
}
