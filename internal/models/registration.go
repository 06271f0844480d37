package models

import "time"

// Registration is a student's enrolment in a mobility program, as read from the portal.
type Registration struct {
	ID             string        `db:"id" json:"id"`
	UserID         string        `db:"user_id" json:"user_id"`
	UserName       string        `db:"user_name" json:"user_name"`
	ActivityID     string        `db:"activity_id" json:"activity_id"`
	ActivityName   string        `db:"activity_name" json:"activity_name"`
	TotalSKS       int           `db:"total_sks" json:"total_sks"`
	ApprovalStatus string        `db:"approval_status" json:"approval_status"`
	Equivalents    []Equivalence `db:"-" json:"equivalents"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// Equivalence is a persisted association between a registration and a subject.
type Equivalence struct {
	ID             string    `db:"id" json:"id"`
	RegistrationID string    `db:"registration_id" json:"registration_id"`
	SubjectID      string    `db:"subject_id" json:"subject_id"`
	Subject        *Subject  `db:"-" json:"mata_kuliah,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// EquivalentSubjectIDs returns the subject identifiers of the registration's equivalents.
func (r *Registration) EquivalentSubjectIDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.Equivalents))
	for _, eq := range r.Equivalents {
		if eq.SubjectID != "" {
			ids = append(ids, eq.SubjectID)
		}
	}
	return ids
}

// EquivalentSubjects returns the subject details carried on the registration's equivalents.
func (r *Registration) EquivalentSubjects() []Subject {
	if r == nil {
		return nil
	}
	subjects := make([]Subject, 0, len(r.Equivalents))
	for _, eq := range r.Equivalents {
		if eq.Subject != nil {
			subjects = append(subjects, *eq.Subject)
		}
	}
	return subjects
}

// SelectionDelta is the minimal change between a persisted baseline and a working selection.
type SelectionDelta struct {
	ToAdd    []string `json:"to_add,omitempty"`
	ToRemove []string `json:"to_remove,omitempty"`
}

// Empty reports whether the delta carries no change.
func (d SelectionDelta) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0
}
