package submission

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingFixture() Submission {
	return Submission{
		ID:               "row-1",
		ReportedDate:     time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC),
		ReportedLocation: "City Hall",
		EvidenceURL:      "http://example.com/photo.jpg",
		Status:           StatusPending,
		Extra:            []Cell{{Column: "State", Value: "OR"}},
	}
}

func testMachine() *Machine {
	return NewMachine(NewClassificationSet("march", "rally", "Other"))
}

func TestTransitionValidatesCompleteSubmission(t *testing.T) {
	m := testMachine()
	got, err := m.Transition(pendingFixture(), Decision{Target: StatusValidated, Classification: "march"})
	require.NoError(t, err)
	assert.Equal(t, StatusValidated, got.Status)
	assert.Equal(t, Classification("march"), got.Classification)
}

func TestTransitionRejectsMissingEvidenceURL(t *testing.T) {
	m := testMachine()
	in := pendingFixture()
	in.EvidenceURL = ""
	got, err := m.Transition(in, Decision{Target: StatusValidated, Classification: "march"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompleteEvidence))

	var incomplete *IncompleteEvidenceError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, []string{"evidence_url"}, incomplete.Missing)
	assert.Equal(t, StatusPending, got.Status)
	assert.Empty(t, cmp.Diff(in, got))
}

func TestTransitionListsEveryMissingField(t *testing.T) {
	m := testMachine()
	in := Submission{ID: "bare", Status: StatusPending}
	_, err := m.Transition(in, Decision{Target: StatusValidated})
	var incomplete *IncompleteEvidenceError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, []string{"evidence_url", "reported_date", "reported_location"}, incomplete.Missing)
}

func TestTransitionAppliesCorrectionsBeforeChecking(t *testing.T) {
	m := testMachine()
	in := pendingFixture()
	in.ReportedDate = time.Time{}
	in.ReportedLocation = ""
	date := time.Date(2025, time.February, 1, 15, 30, 0, 0, time.FixedZone("x", 3600))
	place := "  Pioneer Square  "
	got, err := m.Transition(in, Decision{Target: StatusValidated, Date: &date, Location: &place, Notes: "crowd visible"})
	require.NoError(t, err)
	assert.Equal(t, "2025-02-01", got.DateString())
	assert.Equal(t, "Pioneer Square", got.ReportedLocation)
	assert.Equal(t, "crowd visible", got.ValidatorNotes)
	assert.True(t, in.ReportedDate.IsZero(), "input must not be mutated")
}

func TestTransitionRejectAlwaysSucceedsFromPending(t *testing.T) {
	m := testMachine()
	got, err := m.Transition(Submission{ID: "empty", Status: StatusPending}, Decision{Target: StatusRejected, Notes: "no photo"})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)
	assert.Equal(t, "no photo", got.ValidatorNotes)
}

func TestTransitionFromTerminalStateFails(t *testing.T) {
	m := testMachine()
	for _, status := range []Status{StatusValidated, StatusRejected} {
		for _, target := range []Status{StatusValidated, StatusRejected} {
			in := pendingFixture()
			in.Status = status
			in.Classification = "march"
			got, err := m.Transition(in, Decision{Target: target, Classification: "rally", Notes: "changed"})
			require.Error(t, err, "%s -> %s", status, target)
			assert.True(t, errors.Is(err, ErrTerminalState))
			assert.Empty(t, cmp.Diff(in, got), "%s -> %s must leave record unchanged", status, target)
		}
	}
}

func TestValidatedSubmissionCannotBeRejected(t *testing.T) {
	m := testMachine()
	validated, err := m.Transition(pendingFixture(), Decision{Target: StatusValidated, Classification: "march"})
	require.NoError(t, err)
	got, err := m.Transition(validated, Decision{Target: StatusRejected})
	var terminal *TerminalStateError
	require.True(t, errors.As(err, &terminal))
	assert.Equal(t, StatusValidated, terminal.Status)
	assert.Equal(t, StatusValidated, got.Status)
}

func TestTransitionInvalidDecisions(t *testing.T) {
	m := testMachine()
	cases := []struct {
		name     string
		decision Decision
	}{
		{name: "pending target", decision: Decision{Target: StatusPending}},
		{name: "unknown target", decision: Decision{Target: "archived"}},
		{name: "unknown classification", decision: Decision{Target: StatusValidated, Classification: "parade"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := pendingFixture()
			got, err := m.Transition(in, tc.decision)
			assert.True(t, errors.Is(err, ErrInvalidDecision), "got %v", err)
			assert.Empty(t, cmp.Diff(in, got))
		})
	}
}

func TestTransitionCanonicalisesClassification(t *testing.T) {
	m := testMachine()
	got, err := m.Transition(pendingFixture(), Decision{Target: StatusValidated, Classification: " OTHER "})
	require.NoError(t, err)
	assert.Equal(t, Classification("Other"), got.Classification)
}

func TestDraftKeepsStatus(t *testing.T) {
	m := testMachine()
	place := "Courthouse steps"
	notes := "check second photo"
	class := Classification("rally")
	got, err := m.Draft(pendingFixture(), Edit{Location: &place, Notes: &notes, Classification: &class})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, place, got.ReportedLocation)
	assert.Equal(t, notes, got.ValidatorNotes)
	assert.Equal(t, class, got.Classification)
}

func TestDraftOnTerminalRecordFails(t *testing.T) {
	m := testMachine()
	in := pendingFixture()
	in.Status = StatusRejected
	place := "elsewhere"
	got, err := m.Draft(in, Edit{Location: &place})
	assert.True(t, errors.Is(err, ErrTerminalState))
	assert.Equal(t, "City Hall", got.ReportedLocation)
}

func TestCloneDoesNotAliasExtra(t *testing.T) {
	in := pendingFixture()
	out := in.Clone()
	out.Extra[0].Value = "WA"
	assert.Equal(t, "OR", in.Extra[0].Value)
}
