package types

import (
	"errors"
	"fmt"
)

// Error taxonomy. Typed errors below match these with errors.Is.
var (
	ErrClarificationNeeded = errors.New("clarification needed")
	ErrScopeRejected       = errors.New("query outside research scope")
	ErrBranchDegraded      = errors.New("branch degraded")
	ErrStageFailed         = errors.New("stage failed")
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// ClarificationError halts a run before enrichment and carries a follow-up prompt
type ClarificationError struct {
	Prompt string
}

func (e *ClarificationError) Error() string {
	return fmt.Sprintf("clarification needed: %s", e.Prompt)
}

func (e *ClarificationError) Is(target error) bool { return target == ErrClarificationNeeded }

// ScopeError rejects an off-topic query and suggests a research framing
type ScopeError struct {
	Suggestion string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("query outside research scope, try: %s", e.Suggestion)
}

func (e *ScopeError) Is(target error) bool { return target == ErrScopeRejected }

// ProviderError wraps a failure of a third-party dependency
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProviderUnavailable }

// StageError marks a stage that produced no usable output
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func (e *StageError) Is(target error) bool { return target == ErrStageFailed }

// NewStageError wraps err as a failure of stage
func NewStageError(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}
