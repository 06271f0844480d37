package equivalence

import (
	"sort"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
)

// Selection is a set of subject identifiers.
type Selection map[string]struct{}

// NewSelection builds a selection from ids, skipping blanks.
func NewSelection(ids ...string) Selection {
	s := make(Selection, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// Contains reports membership of id.
func (s Selection) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Toggle flips membership of id and reports whether it is selected afterwards.
func (s Selection) Toggle(id string) bool {
	if _, ok := s[id]; ok {
		delete(s, id)
		return false
	}
	s[id] = struct{}{}
	return true
}

// Clone returns an independent copy.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same ids.
func (s Selection) Equal(other Selection) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if _, ok := other[id]; !ok {
			return false
		}
	}
	return true
}

// Minus returns the ids in s that are not in other, sorted.
func (s Selection) Minus(other Selection) []string {
	var out []string
	for id := range s {
		if _, ok := other[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// IDs returns the members sorted.
func (s Selection) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Diff computes the delta that turns baseline into working.
func Diff(baseline, working Selection) models.SelectionDelta {
	return models.SelectionDelta{
		ToAdd:    working.Minus(baseline),
		ToRemove: baseline.Minus(working),
	}
}

// Apply replays delta on top of baseline and returns the resulting selection.
func Apply(baseline Selection, delta models.SelectionDelta) Selection {
	out := baseline.Clone()
	for _, id := range delta.ToRemove {
		delete(out, id)
	}
	for _, id := range delta.ToAdd {
		out[id] = struct{}{}
	}
	return out
}

// TotalCredits sums SKS over the distinct candidate subjects that are selected.
func TotalCredits(selected Selection, candidates ...[]models.Subject) int {
	counted := make(map[string]struct{}, len(selected))
	total := 0
	for _, list := range candidates {
		for _, subject := range list {
			if !selected.Contains(subject.ID) {
				continue
			}
			if _, seen := counted[subject.ID]; seen {
				continue
			}
			counted[subject.ID] = struct{}{}
			total += subject.Credits
		}
	}
	return total
}
