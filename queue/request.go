package queue

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"trendscout/types"
)

// ResearchRequest is the inbound message asking for one research run
type ResearchRequest struct {
	RunID      string                `json:"run_id,omitempty"`
	Query      string                `json:"query"`
	SessionID  string                `json:"session_id,omitempty"`
	SettingsID string                `json:"settings_id,omitempty"`
	Session    *types.SessionContext `json:"session_context,omitempty"`
}

// NewResearchHandler builds the handler for research requests. Requests
// without query text are marked and skipped.
func NewResearchHandler(process func(ctx context.Context, req *ResearchRequest) error, logger *zap.Logger) *TypedMessageHandler[ResearchRequest] {
	return &TypedMessageHandler[ResearchRequest]{
		Validate: func(req *ResearchRequest) bool {
			return strings.TrimSpace(req.Query) != ""
		},
		Process:    process,
		AlwaysMark: true,
		Logger:     logger,
	}
}
