package submission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"":          StatusPending,
		"Pending":   StatusPending,
		"VALIDATED": StatusValidated,
		"1":         StatusValidated,
		"1.0":       StatusValidated,
		"rejected":  StatusRejected,
		"0":         StatusRejected,
	}
	for in, want := range cases {
		got, err := ParseStatus(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
		assert.True(t, got.Valid())
	}
	_, err := ParseStatus("maybe")
	assert.Error(t, err)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusValidated.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, Status("archived").Valid())
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2025-01-05", "1/5/2025", "01/05/2025", "1/5/25", "2025-01-05T18:00:00Z"} {
		got, err := ParseDate(in)
		require.NoError(t, err, "input %q", in)
		assert.True(t, want.Equal(got), "input %q got %s", in, got)
	}

	blank, err := ParseDate("  ")
	require.NoError(t, err)
	assert.True(t, blank.IsZero())

	_, err = ParseDate("next tuesday")
	assert.Error(t, err)

	// Bare serials depend on the workbook's date system and are converted
	// before they reach ParseDate.
	_, err = ParseDate("45662")
	assert.Error(t, err)
}

func TestClassificationSet(t *testing.T) {
	set := NewClassificationSet("National", "tesla", " ", "TESLA", "One-off")
	assert.Equal(t, 3, set.Len())
	assert.Equal(t, []Classification{"National", "tesla", "One-off"}, set.All())

	got, err := set.Canonical("one-OFF")
	require.NoError(t, err)
	assert.Equal(t, Classification("One-off"), got)

	empty, err := set.Canonical("")
	require.NoError(t, err)
	assert.Equal(t, Classification(""), empty)

	assert.False(t, set.Contains("Statewide"))
	assert.True(t, set.Contains(""))
}

func TestMissingEvidence(t *testing.T) {
	s := Submission{EvidenceURL: " ", ReportedLocation: "Main St"}
	assert.Equal(t, []string{"evidence_url", "reported_date"}, s.MissingEvidence())
	assert.Equal(t, "", s.DateString())
}
