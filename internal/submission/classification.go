package submission

import (
	"fmt"
	"strings"
)

// Classification tags the kind of protest a submission describes.
type Classification string

// DefaultClassifications mirrors the event types validators have always used.
var DefaultClassifications = []Classification{"National", "Tesla", "Statewide", "One-off", "Other"}

// ClassificationSet is the enumerated set a classification must belong to.
// The zero value accepts nothing but the empty classification.
type ClassificationSet struct {
	ordered []Classification
	index   map[string]Classification
}

// NewClassificationSet builds a set from configured names. Blank entries and
// case-insensitive duplicates are dropped; the first spelling wins.
func NewClassificationSet(names ...string) ClassificationSet {
	set := ClassificationSet{index: map[string]Classification{}}
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := set.index[key]; ok {
			continue
		}
		c := Classification(trimmed)
		set.index[key] = c
		set.ordered = append(set.ordered, c)
	}
	return set
}

// All returns the classifications in configured order.
func (cs ClassificationSet) All() []Classification {
	out := make([]Classification, len(cs.ordered))
	copy(out, cs.ordered)
	return out
}

// Len returns the number of configured classifications.
func (cs ClassificationSet) Len() int { return len(cs.ordered) }

// Canonical resolves value to its configured spelling. The empty value is
// always accepted and means "unclassified".
func (cs ClassificationSet) Canonical(value Classification) (Classification, error) {
	trimmed := strings.TrimSpace(string(value))
	if trimmed == "" {
		return "", nil
	}
	if c, ok := cs.index[strings.ToLower(trimmed)]; ok {
		return c, nil
	}
	return "", fmt.Errorf("classification %q is not one of %s", trimmed, cs)
}

// Contains reports whether value is empty or a member of the set.
func (cs ClassificationSet) Contains(value Classification) bool {
	_, err := cs.Canonical(value)
	return err == nil
}

func (cs ClassificationSet) String() string {
	names := make([]string, len(cs.ordered))
	for i, c := range cs.ordered {
		names[i] = string(c)
	}
	return "[" + strings.Join(names, ", ") + "]"
}
