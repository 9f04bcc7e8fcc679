package submission

import (
	"fmt"
	"strings"
	"time"
)

// Decision is a validator's verdict on a pending record together with any
// field corrections made while reviewing it. Nil correction pointers leave the
// field as submitted.
type Decision struct {
	Target         Status
	Classification Classification
	Notes          string
	Date           *time.Time
	Location       *string
}

// Edit carries draft corrections that do not change status.
type Edit struct {
	Classification *Classification
	Notes          *string
	Date           *time.Time
	Location       *string
}

// Machine applies validator decisions. It never mutates its inputs: callers
// get back a new record on success and their original on failure.
type Machine struct {
	classes ClassificationSet
}

// NewMachine returns a machine that accepts classifications from classes.
func NewMachine(classes ClassificationSet) *Machine {
	return &Machine{classes: classes}
}

// Classifications exposes the configured set.
func (m *Machine) Classifications() ClassificationSet {
	return m.classes
}

// Transition moves a pending record to validated or rejected. Corrections in
// d are applied before validation preconditions are checked so a validator can
// fix a missing date and validate in one step.
func (m *Machine) Transition(s Submission, d Decision) (Submission, error) {
	if !s.Status.Valid() {
		return s, &InvalidDecisionError{ID: s.ID, Reason: fmt.Sprintf("record has unknown status %q", s.Status)}
	}
	if s.Status.Terminal() {
		return s, &TerminalStateError{ID: s.ID, Status: s.Status}
	}
	if d.Target != StatusValidated && d.Target != StatusRejected {
		return s, &InvalidDecisionError{ID: s.ID, Reason: fmt.Sprintf("cannot transition to %q", d.Target)}
	}
	class, err := m.classes.Canonical(d.Classification)
	if err != nil {
		return s, &InvalidDecisionError{ID: s.ID, Reason: err.Error()}
	}

	next := s.Clone()
	applyCorrections(&next, d.Date, d.Location)
	if d.Target == StatusValidated {
		if missing := next.MissingEvidence(); len(missing) > 0 {
			return s, &IncompleteEvidenceError{ID: s.ID, Missing: missing}
		}
	}
	next.Classification = class
	next.ValidatorNotes = d.Notes
	next.Status = d.Target
	return next, nil
}

// Draft records corrections on a pending record without deciding it.
func (m *Machine) Draft(s Submission, e Edit) (Submission, error) {
	if s.Status.Terminal() {
		return s, &TerminalStateError{ID: s.ID, Status: s.Status}
	}
	next := s.Clone()
	if e.Classification != nil {
		class, err := m.classes.Canonical(*e.Classification)
		if err != nil {
			return s, &InvalidDecisionError{ID: s.ID, Reason: err.Error()}
		}
		next.Classification = class
	}
	if e.Notes != nil {
		next.ValidatorNotes = *e.Notes
	}
	applyCorrections(&next, e.Date, e.Location)
	return next, nil
}

func applyCorrections(s *Submission, date *time.Time, location *string) {
	if date != nil {
		if date.IsZero() {
			s.ReportedDate = time.Time{}
		} else {
			s.ReportedDate = civil(*date)
		}
	}
	if location != nil {
		s.ReportedLocation = strings.TrimSpace(*location)
	}
}
