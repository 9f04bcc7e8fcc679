package submission

import "sort"

// Summary counts a dataset by status and by classification.
type Summary struct {
	Total            int
	Pending          int
	Validated        int
	Rejected         int
	ByClassification map[Classification]int
}

// Summarize tallies subs. Unclassified records are not counted in
// ByClassification.
func Summarize(subs []Submission) Summary {
	sum := Summary{Total: len(subs), ByClassification: map[Classification]int{}}
	for _, s := range subs {
		switch s.Status {
		case StatusValidated:
			sum.Validated++
		case StatusRejected:
			sum.Rejected++
		default:
			sum.Pending++
		}
		if s.Classification != "" {
			sum.ByClassification[s.Classification]++
		}
	}
	return sum
}

// Reviewed is the number of records in a terminal status.
func (s Summary) Reviewed() int {
	return s.Validated + s.Rejected
}

// Classifications returns the tallied classifications sorted by name.
func (s Summary) Classifications() []Classification {
	out := make([]Classification, 0, len(s.ByClassification))
	for c := range s.ByClassification {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
