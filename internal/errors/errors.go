package errors

import "fmt"

// Error type constants
const (
	ValidationError = "VALIDATION_ERROR"
	CycleDetected   = "CYCLE_DETECTED"
	StepFailed      = "STEP_FAILED"
	VerifyFailed    = "VERIFY_FAILED"
	Timeout         = "TIMEOUT"
	Cancelled       = "CANCELLED"
	CheckpointHalt  = "CHECKPOINT_HALT"
	RunNotFound     = "RUN_NOT_FOUND"
	StoreError      = "STORE_ERROR"
)

// RunError is a structured error carrying the failing step and a hint
// for whoever has to act on it.
type RunError struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	StepID    string `json:"step_id,omitempty"`
	Retryable bool   `json:"retryable"`
	Hint      string `json:"hint,omitempty"`
}

func (e *RunError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("[%s] step %s: %s", e.Type, e.StepID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func NewValidationError(msg, hint string) *RunError {
	return &RunError{Type: ValidationError, Message: msg, Hint: hint}
}

func NewStepError(stepID, msg, hint string) *RunError {
	return &RunError{Type: StepFailed, StepID: stepID, Message: msg, Hint: hint}
}

func NewTimeoutError(stepID, msg string) *RunError {
	return &RunError{Type: Timeout, StepID: stepID, Message: msg, Retryable: true}
}
