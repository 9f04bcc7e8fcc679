// Package submission defines the protest report record and the rules that
// govern how a validator moves it from pending to a terminal status.
package submission

import (
	"fmt"
	"strings"
	"time"
)

// Status is the review lifecycle position of a submission.
type Status string

const (
	StatusPending   Status = "pending"
	StatusValidated Status = "validated"
	StatusRejected  Status = "rejected"
)

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusValidated, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	return s == StatusValidated || s == StatusRejected
}

// FriendlyName returns a title-cased label for display.
func (s Status) FriendlyName() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusValidated:
		return "Validated"
	case StatusRejected:
		return "Rejected"
	}
	return "Unknown"
}

// ParseStatus accepts the canonical names in any case as well as the legacy
// "Valid" column encoding (1 validated, 0 rejected, blank pending).
func ParseStatus(value string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "pending":
		return StatusPending, nil
	case "validated", "valid", "1", "1.0":
		return StatusValidated, nil
	case "rejected", "invalid", "0", "0.0":
		return StatusRejected, nil
	}
	return "", fmt.Errorf("unknown status %q", value)
}

// Cell is a spreadsheet column this package does not interpret. It is carried
// through load and save so validators never lose activist-supplied columns.
type Cell struct {
	Column string
	Value  string
}

// Submission is one activist-reported protest record.
type Submission struct {
	ID               string
	ReportedDate     time.Time
	ReportedLocation string
	EvidenceURL      string
	Classification   Classification
	Status           Status
	ValidatorNotes   string
	Extra            []Cell
}

// Clone returns a deep copy so callers can mutate without aliasing Extra.
func (s Submission) Clone() Submission {
	out := s
	if len(s.Extra) > 0 {
		out.Extra = make([]Cell, len(s.Extra))
		copy(out.Extra, s.Extra)
	}
	return out
}

// HasDate reports whether a reported date has been set.
func (s Submission) HasDate() bool {
	return !s.ReportedDate.IsZero()
}

// DateString renders the reported date in the on-disk layout, or "" when unset.
func (s Submission) DateString() string {
	if !s.HasDate() {
		return ""
	}
	return s.ReportedDate.Format(DateLayout)
}

// ExtraValue looks up a carried-through column by name.
func (s Submission) ExtraValue(column string) (string, bool) {
	for _, cell := range s.Extra {
		if strings.EqualFold(cell.Column, column) {
			return cell.Value, true
		}
	}
	return "", false
}

// MissingEvidence lists the fields that block validation, in display order.
func (s Submission) MissingEvidence() []string {
	var missing []string
	if strings.TrimSpace(s.EvidenceURL) == "" {
		missing = append(missing, "evidence_url")
	}
	if !s.HasDate() {
		missing = append(missing, "reported_date")
	}
	if strings.TrimSpace(s.ReportedLocation) == "" {
		missing = append(missing, "reported_location")
	}
	return missing
}
