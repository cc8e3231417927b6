package types

import (
	"fmt"
	"time"
)

// State represents the pipeline state machine
type State string

const (
	StateNormalizing         State = "Normalizing"
	StateEnriching           State = "Enriching"
	StateSearching           State = "Searching"
	StateRanking             State = "Ranking"
	StateExtracting          State = "Extracting"
	StateDone                State = "Done"
	StateClarificationNeeded State = "ClarificationNeeded"
	StateFailed              State = "Failed"
)

// Terminal reports whether no further transition can happen from s
func (s State) Terminal() bool {
	return s == StateDone || s == StateClarificationNeeded || s == StateFailed
}

// Stage names a pipeline stage. Stage keys match the working state names.
type Stage string

const (
	StageNormalizing Stage = "Normalizing"
	StageEnriching   Stage = "Enriching"
	StageSearching   Stage = "Searching"
	StageRanking     Stage = "Ranking"
	StageExtracting  Stage = "Extracting"
)

// Stages lists the stages in execution order
var Stages = []Stage{StageNormalizing, StageEnriching, StageSearching, StageRanking, StageExtracting}

// StageStatus is the recorded outcome of one stage
type StageStatus string

const (
	StatusOK       StageStatus = "ok"
	StatusDegraded StageStatus = "degraded"
	StatusFailed   StageStatus = "failed"
)

// Worse returns the more severe of two statuses
func (s StageStatus) Worse(other StageStatus) StageStatus {
	rank := map[StageStatus]int{StatusOK: 0, StatusDegraded: 1, StatusFailed: 2}
	if rank[other] > rank[s] {
		return other
	}
	return s
}

// LogEntry represents a single log line with timestamp
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// RunReport is the structured outcome of one run. It is returned for every
// terminal state, including Failed.
type RunReport struct {
	RunID          string                `json:"run_id"`
	Query          RawQuery              `json:"query"`
	Session        SessionContext        `json:"session_context"`
	State          State                 `json:"state"`
	StageStatuses  map[Stage]StageStatus `json:"stage_statuses"`
	Warnings       []string              `json:"warnings"`
	Clarification  string                `json:"clarification,omitempty"`
	Suggestion     string                `json:"suggestion,omitempty"`
	Intent         *QueryIntent          `json:"intent,omitempty"`
	Queries        *EnrichedQuerySet     `json:"queries,omitempty"`
	Ranked         []RankedResult        `json:"ranked,omitempty"`
	FinalDocuments []ScrapedDocument     `json:"final_documents"`
	StartedAt      time.Time             `json:"started_at"`
	FinishedAt     time.Time             `json:"finished_at"`
}

// NewRunReport returns an empty report in the Normalizing state
func NewRunReport(runID string, q RawQuery, session SessionContext, now time.Time) *RunReport {
	return &RunReport{
		RunID:          runID,
		Query:          q,
		Session:        session,
		State:          StateNormalizing,
		StageStatuses:  make(map[Stage]StageStatus),
		Warnings:       []string{},
		FinalDocuments: []ScrapedDocument{},
		StartedAt:      now,
	}
}

// Record sets a stage status and appends stage-prefixed warnings
func (r *RunReport) Record(stage Stage, status StageStatus, warnings ...string) {
	r.StageStatuses[stage] = status
	for _, w := range warnings {
		r.Warn(stage, w)
	}
}

// Warn appends a warning attributed to stage
func (r *RunReport) Warn(stage Stage, msg string) {
	r.Warnings = append(r.Warnings, fmt.Sprintf("%s: %s", stage, msg))
}

// Flagged reports whether any stage is degraded or failed
func (r *RunReport) Flagged() bool {
	for _, s := range r.StageStatuses {
		if s != StatusOK {
			return true
		}
	}
	return false
}

// DocumentCount returns the number of documents that carry usable text
func (r *RunReport) DocumentCount() int {
	n := 0
	for _, d := range r.FinalDocuments {
		if d.ExtractionStatus != ExtractionFailed {
			n++
		}
	}
	return n
}
