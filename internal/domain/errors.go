package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the intake core.
var (
	ErrValidation  = errors.New("validation error")
	ErrRetrieval   = errors.New("retrieval error")
	ErrPersistence = errors.New("persistence error")
	// ErrNotFound is returned by the knowledge store when it holds no documents.
	ErrNotFound = errors.New("knowledge store is empty")
)

// Stage names a step of the intake pipeline.
type Stage string

const (
	StageValidation     Stage = "validation"
	StageRetrieval      Stage = "retrieval"
	StageClassification Stage = "classification"
	StageLogging        Stage = "logging"
)

// StageError reports which pipeline stage failed. It matches both the error
// kind of its stage and the underlying cause with errors.Is.
type StageError struct {
	Stage Stage
	Err   error
}

// NewStageError wraps err with the failing stage.
func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

// Unwrap exposes the stage kind alongside the cause.
func (e *StageError) Unwrap() []error {
	if kind := e.Kind(); kind != nil {
		return []error{kind, e.Err}
	}
	return []error{e.Err}
}

// Kind maps the stage to its sentinel error.
func (e *StageError) Kind() error {
	switch e.Stage {
	case StageValidation:
		return ErrValidation
	case StageRetrieval:
		return ErrRetrieval
	case StageLogging:
		return ErrPersistence
	default:
		return nil
	}
}

// FailedStage extracts the failing stage from err, if any.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
