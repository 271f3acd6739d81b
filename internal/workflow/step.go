package workflow

import (
	"encoding/json"
	"errors"
)

// Step is a stage of the MEL workflow.  Steps only move forward; Reset is
// the only way back to StepUpload.
type Step int

const (
	StepUpload Step = iota
	StepReview
	StepSeniorRaterInfo
	StepComplete
)

var stepNames = [...]string{"upload", "review", "senior_rater_info", "complete"}

func (s Step) String() string {
	if s < StepUpload || s > StepComplete {
		return "unknown"
	}
	return stepNames[s]
}

// MarshalJSON encodes the step by name.
func (s Step) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Errors reported by workflow operations.
var (
	ErrInvalidStep    = errors.New("operation not allowed in the current step")
	ErrBusy           = errors.New("operation already in progress")
	ErrNotFound       = errors.New("workflow not found")
	ErrSuperseded     = errors.New("workflow was reset while the operation was running")
	ErrEmptyFile      = errors.New("please select a roster file")
	ErrCycleRequired  = errors.New("please select a promotion cycle")
	ErrNoDocument     = errors.New("no generated document")
	ErrSessionMissing = errors.New("no active session")
)
