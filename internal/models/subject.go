package models

import (
	"sort"
	"strings"
)

// Semester tags a catalog subject with the term it is offered in.
type Semester string

const (
	SemesterGanjil Semester = "GANJIL"
	SemesterGenap  Semester = "GENAP"
	SemesterPendek Semester = "PENDEK"
)

// ParseSemester returns the semester named by v, ignoring case and surrounding spaces.
func ParseSemester(v string) (Semester, bool) {
	switch s := Semester(strings.ToUpper(strings.TrimSpace(v))); s {
	case SemesterGanjil, SemesterGenap, SemesterPendek:
		return s, true
	}
	return "", false
}

// Subject is a catalog course entry that can be marked equivalent to a registration's activity.
type Subject struct {
	ID         string   `db:"id" json:"id"`
	Code       string   `db:"code" json:"code"`
	Name       string   `db:"name" json:"name"`
	Credits    int      `db:"sks" json:"sks"`
	Semester   Semester `db:"semester" json:"semester"`
	Program    string   `db:"program_studi" json:"program_studi"`
	ClassTrack string   `db:"kelas" json:"kelas"`
	Department string   `db:"departemen" json:"departemen"`
	CourseType string   `db:"tipe_mata_kuliah" json:"tipe_mata_kuliah"`
}

// FilterKey names one constraint of a catalog query.
type FilterKey string

const (
	FilterCode       FilterKey = "code"
	FilterSemester   FilterKey = "semester"
	FilterProgram    FilterKey = "program"
	FilterClassTrack FilterKey = "class_track"
	FilterDepartment FilterKey = "department"
	FilterCourseType FilterKey = "course_type"
)

// FilterKeys lists every supported filter key in display order.
var FilterKeys = []FilterKey{FilterCode, FilterSemester, FilterProgram, FilterClassTrack, FilterDepartment, FilterCourseType}

// Valid reports whether the key is one of FilterKeys.
func (k FilterKey) Valid() bool {
	for _, key := range FilterKeys {
		if key == k {
			return true
		}
	}
	return false
}

// FilterCriteria maps filter keys to values. A missing key or empty value leaves the field unconstrained.
type FilterCriteria map[FilterKey]string

// Get returns the trimmed value for key.
func (f FilterCriteria) Get(key FilterKey) string {
	if f == nil {
		return ""
	}
	return strings.TrimSpace(f[key])
}

// With returns a normalised copy with key set to value.
func (f FilterCriteria) With(key FilterKey, value string) FilterCriteria {
	next := f.Clone()
	value = strings.TrimSpace(value)
	if value == "" {
		delete(next, key)
		return next
	}
	next[key] = value
	return next
}

// Clone returns a normalised copy without empty values.
func (f FilterCriteria) Clone() FilterCriteria {
	out := make(FilterCriteria, len(f))
	for k, v := range f {
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	return out
}

// Equal compares two criteria treating empty values as absent.
func (f FilterCriteria) Equal(other FilterCriteria) bool {
	a, b := f.Clone(), other.Clone()
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// Canonical renders the criteria as a stable string, suitable for cache keys.
func (f FilterCriteria) Canonical() string {
	clean := f.Clone()
	keys := make([]string, 0, len(clean))
	for k := range clean {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+clean[FilterKey(k)])
	}
	return strings.Join(parts, "&")
}

// SearchPage is one page returned by the catalog query service.
type SearchPage struct {
	Subjects    []Subject `json:"subjects"`
	CurrentPage int       `json:"current_page"`
	LastPage    int       `json:"last_page"`
	Total       int       `json:"total"`
}
