package dto

import (
	"time"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/catalog"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/equivalence"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
)

// SetFilterRequest updates one catalog filter field. When Field is empty the value is
// treated as the free-text search term.
type SetFilterRequest struct {
	Field string `json:"field" validate:"omitempty,oneof=code semester program class_track department course_type"`
	Value string `json:"value" validate:"max=100"`
}

// ToggleSubjectRequest flips one subject in the working selection.
type ToggleSubjectRequest struct {
	SubjectID string `json:"subject_id" validate:"required,max=64"`
}

// RegistrationSummary is the part of a registration shown alongside a session.
type RegistrationSummary struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	UserName       string           `json:"user_name"`
	ActivityName   string           `json:"activity_name"`
	TotalSKS       int              `json:"total_sks"`
	ApprovalStatus string           `json:"approval_status"`
	Equivalents    []models.Subject `json:"equivalents"`
}

// EquivalenceSessionView is the full state rendered by the equivalence panel.
type EquivalenceSessionView struct {
	OperatorID   string              `json:"operator_id"`
	Registration RegistrationSummary `json:"registration"`
	Catalog      catalog.View        `json:"catalog"`
	Selection    equivalence.State   `json:"selection"`
	TotalCredits int                 `json:"total_credits"`
	OpenedAt     time.Time           `json:"opened_at"`
	LastActivity time.Time           `json:"last_activity"`
}

// ToggleSubjectResponse reports the selection after a toggle.
type ToggleSubjectResponse struct {
	SubjectID    string `json:"subject_id"`
	Selected     bool   `json:"selected"`
	HasChanges   bool   `json:"has_changes"`
	TotalCredits int    `json:"total_credits"`
}

// SaveSelectionResponse describes an applied save.
type SaveSelectionResponse struct {
	Submitted models.SelectionDelta  `json:"submitted"`
	Session   EquivalenceSessionView `json:"session"`
}

// LoadMoreResponse reports whether another page was requested.
type LoadMoreResponse struct {
	Requested bool         `json:"requested"`
	Catalog   catalog.View `json:"catalog"`
}

// ReloadSessionResponse reports whether the registration changed since the session opened.
type ReloadSessionResponse struct {
	Reset   bool                   `json:"reset"`
	Session EquivalenceSessionView `json:"session"`
}
