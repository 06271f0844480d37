package equivalence

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
	appErrors "github.com/SIM-MBKM/mbkm-equivalence-api/pkg/errors"
)

// Submitter applies a selection delta to a registration. Implementations must apply
// both lists all-or-nothing.
type Submitter interface {
	Submit(ctx context.Context, registrationID string, delta models.SelectionDelta) error
}

// State is a point-in-time view of a reconciler.
type State struct {
	RegistrationID string                `json:"registration_id"`
	Baseline       []string              `json:"baseline"`
	Working        []string              `json:"working"`
	Delta          models.SelectionDelta `json:"delta"`
	HasChanges     bool                  `json:"has_changes"`
	Saving         bool                  `json:"saving"`
	LastError      string                `json:"last_error,omitempty"`
}

// Reconciler tracks the persisted equivalence baseline of one registration next to the
// operator's working selection and persists only the difference between them.
type Reconciler struct {
	mu        sync.Mutex
	submitter Submitter
	logger    *zap.Logger

	registrationID string
	generation     uint64
	savingGen      uint64 // generation of the outstanding save, zero when idle
	baseline       Selection
	working        Selection
	lastErr        error
}

// NewReconciler constructs an empty reconciler; call Initialize before use.
func NewReconciler(submitter Submitter, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		submitter:  submitter,
		logger:     logger,
		generation: 1, // savingGen zero must always mean idle
		baseline:   Selection{},
		working:    Selection{},
	}
}

// Initialize seeds the baseline from the registration's equivalents and discards the
// working selection. Results of a save started before the call are ignored.
func (r *Reconciler) Initialize(reg *models.Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := ""
	if reg != nil {
		id = reg.ID
	}
	if id != r.registrationID {
		// the single-save lock is scoped to a registration
		r.savingGen = 0
	}
	r.generation++
	r.registrationID = id
	r.baseline = NewSelection(reg.EquivalentSubjectIDs()...)
	r.working = r.baseline.Clone()
	r.lastErr = nil
}

// RegistrationID returns the registration the reconciler was last initialised with.
func (r *Reconciler) RegistrationID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registrationID
}

// Toggle flips subjectID in the working selection and reports whether it is now selected.
func (r *Reconciler) Toggle(subjectID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.working.Toggle(subjectID)
}

// IsSelected reports whether subjectID is in the working selection.
func (r *Reconciler) IsSelected(subjectID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.working.Contains(subjectID)
}

// HasChanges reports whether the working selection differs from the baseline.
func (r *Reconciler) HasChanges() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.working.Equal(r.baseline)
}

// Saving reports whether a submission is outstanding.
func (r *Reconciler) Saving() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.savingGen != 0
}

// Delta returns the changes Save would submit right now.
func (r *Reconciler) Delta() models.SelectionDelta {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Diff(r.baseline, r.working)
}

// Selected returns a copy of the working selection.
func (r *Reconciler) Selected() Selection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.working.Clone()
}

// TotalCredits sums the SKS of selected subjects found among the candidate lists.
func (r *Reconciler) TotalCredits(candidates ...[]models.Subject) int {
	r.mu.Lock()
	selected := r.working.Clone()
	r.mu.Unlock()
	return TotalCredits(selected, candidates...)
}

// State returns a snapshot of the reconciler.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	state := State{
		RegistrationID: r.registrationID,
		Baseline:       r.baseline.IDs(),
		Working:        r.working.IDs(),
		Delta:          Diff(r.baseline, r.working),
		HasChanges:     !r.working.Equal(r.baseline),
		Saving:         r.savingGen != 0,
	}
	if r.lastErr != nil {
		state.LastError = appErrors.FromError(r.lastErr).Message
	}
	return state
}

// Save submits the delta between baseline and the working selection as it is at call
// time. Toggles made while the submission is outstanding are not part of it and remain
// pending afterwards. Only one save may be outstanding; a failed save leaves the working
// selection intact for a manual retry.
func (r *Reconciler) Save(ctx context.Context) (models.SelectionDelta, error) {
	r.mu.Lock()
	if r.savingGen != 0 {
		r.mu.Unlock()
		return models.SelectionDelta{}, appErrors.Clone(appErrors.ErrSaveInFlight, "")
	}
	if r.working.Equal(r.baseline) {
		r.mu.Unlock()
		return models.SelectionDelta{}, appErrors.Clone(appErrors.ErrNoChanges, "")
	}
	snapshot := r.working.Clone()
	delta := Diff(r.baseline, snapshot)
	gen := r.generation
	registrationID := r.registrationID
	r.savingGen = gen
	r.lastErr = nil
	r.mu.Unlock()

	err := r.submitter.Submit(ctx, registrationID, delta)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.savingGen == gen {
		r.savingGen = 0
	}
	if r.generation != gen {
		r.logger.Info("discarding save result for superseded selection",
			zap.String("registration_id", registrationID))
		return delta, err
	}
	if err != nil {
		r.lastErr = err
		r.logger.Warn("equivalence save failed",
			zap.String("registration_id", registrationID),
			zap.Int("to_add", len(delta.ToAdd)),
			zap.Int("to_remove", len(delta.ToRemove)),
			zap.Error(err))
		return delta, err
	}
	r.baseline = snapshot
	r.logger.Info("equivalence saved",
		zap.String("registration_id", registrationID),
		zap.Int("to_add", len(delta.ToAdd)),
		zap.Int("to_remove", len(delta.ToRemove)))
	return delta, nil
}
