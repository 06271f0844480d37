package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterCriteriaEqualIgnoresEmptyValues(t *testing.T) {
	a := FilterCriteria{FilterSemester: "GANJIL", FilterProgram: ""}
	b := FilterCriteria{FilterSemester: " GANJIL "}
	assert.True(t, a.Equal(b))
	assert.True(t, FilterCriteria(nil).Equal(FilterCriteria{FilterCode: ""}))
	assert.False(t, a.Equal(FilterCriteria{FilterSemester: "GENAP"}))
}

func TestFilterCriteriaWithDoesNotMutateReceiver(t *testing.T) {
	base := FilterCriteria{FilterCode: "IF"}
	next := base.With(FilterDepartment, "Informatika")
	assert.Equal(t, "", base.Get(FilterDepartment))
	assert.Equal(t, "Informatika", next.Get(FilterDepartment))

	cleared := next.With(FilterCode, "  ")
	_, ok := cleared[FilterCode]
	assert.False(t, ok)
}

func TestFilterCriteriaCanonicalIsOrderIndependent(t *testing.T) {
	a := FilterCriteria{FilterSemester: "GENAP", FilterCode: "IF"}
	b := FilterCriteria{FilterCode: "IF", FilterSemester: "GENAP", FilterProgram: ""}
	assert.Equal(t, a.Canonical(), b.Canonical())
	assert.Equal(t, "code=IF&semester=GENAP", a.Canonical())
}

func TestRegistrationEquivalentSubjectIDs(t *testing.T) {
	var nilReg *Registration
	assert.Empty(t, nilReg.EquivalentSubjectIDs())

	reg := &Registration{Equivalents: []Equivalence{
		{SubjectID: "s1", Subject: &Subject{ID: "s1", Credits: 3}},
		{SubjectID: ""},
		{SubjectID: "s2"},
	}}
	assert.Equal(t, []string{"s1", "s2"}, reg.EquivalentSubjectIDs())
	assert.Len(t, reg.EquivalentSubjects(), 1)
}

func TestFilterKeyValid(t *testing.T) {
	assert.True(t, FilterClassTrack.Valid())
	assert.False(t, FilterKey("lecturer").Valid())
}

func TestParseSemester(t *testing.T) {
	s, ok := ParseSemester(" genap ")
	assert.True(t, ok)
	assert.Equal(t, SemesterGenap, s)

	_, ok = ParseSemester("SEMESTER-3")
	assert.False(t, ok)
	_, ok = ParseSemester("")
	assert.False(t, ok)
}
