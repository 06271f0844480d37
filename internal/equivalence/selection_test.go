package equivalence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
)

func TestSelectionToggleTwiceRestores(t *testing.T) {
	s := NewSelection("A", "B")
	assert.True(t, s.Toggle("C"))
	assert.False(t, s.Toggle("C"))
	assert.True(t, s.Equal(NewSelection("A", "B")))
}

func TestDiffBaselineToWorking(t *testing.T) {
	delta := Diff(NewSelection("A", "B"), NewSelection("B", "C"))
	assert.Equal(t, []string{"C"}, delta.ToAdd)
	assert.Equal(t, []string{"A"}, delta.ToRemove)
}

func TestApplyReconstructsWorking(t *testing.T) {
	baseline := NewSelection("A", "B", "D")
	working := NewSelection("B", "C", "E")
	got := Apply(baseline, Diff(baseline, working))
	assert.True(t, got.Equal(working))
	assert.Equal(t, []string{"A", "B", "D"}, baseline.IDs())
}

func TestDiffEqualSetsIsEmpty(t *testing.T) {
	assert.True(t, Diff(NewSelection("A"), NewSelection("A")).Empty())
	assert.True(t, Diff(Selection{}, NewSelection("", "")).Empty())
}

func TestTotalCreditsCountsEachSelectedSubjectOnce(t *testing.T) {
	catalog := []models.Subject{{ID: "S1", Credits: 3}, {ID: "S2", Credits: 2}, {ID: "S3", Credits: 4}}
	registered := []models.Subject{{ID: "S1", Credits: 3}, {ID: "S9", Credits: 6}}

	total := TotalCredits(NewSelection("S1", "S3", "S9", "S404"), catalog, registered)
	assert.Equal(t, 13, total)
	assert.Zero(t, TotalCredits(Selection{}, catalog))
}
