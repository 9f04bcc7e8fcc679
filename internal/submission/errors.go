package submission

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIncompleteEvidence matches any *IncompleteEvidenceError.
	ErrIncompleteEvidence = errors.New("submission: incomplete evidence")
	// ErrTerminalState matches any *TerminalStateError.
	ErrTerminalState = errors.New("submission: terminal state")
	// ErrInvalidDecision matches any *InvalidDecisionError.
	ErrInvalidDecision = errors.New("submission: invalid decision")
)

// IncompleteEvidenceError is returned when a validation is attempted without
// the evidence a validated record must carry.
type IncompleteEvidenceError struct {
	ID      string
	Missing []string
}

func (e *IncompleteEvidenceError) Error() string {
	return fmt.Sprintf("submission %s: cannot validate, missing %s", e.ID, strings.Join(e.Missing, ", "))
}

func (e *IncompleteEvidenceError) Is(target error) bool { return target == ErrIncompleteEvidence }

// TerminalStateError is returned for any change attempted on a validated or
// rejected record.
type TerminalStateError struct {
	ID     string
	Status Status
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("submission %s: already %s", e.ID, e.Status)
}

func (e *TerminalStateError) Is(target error) bool { return target == ErrTerminalState }

// InvalidDecisionError covers decisions that name an unknown target status or
// a classification outside the configured set.
type InvalidDecisionError struct {
	ID     string
	Reason string
}

func (e *InvalidDecisionError) Error() string {
	return fmt.Sprintf("submission %s: %s", e.ID, e.Reason)
}

func (e *InvalidDecisionError) Is(target error) bool { return target == ErrInvalidDecision }
