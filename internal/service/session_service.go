package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/actor"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/catalog"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/dto"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/equivalence"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
	appErrors "github.com/SIM-MBKM/mbkm-equivalence-api/pkg/errors"
)

type registrationFinder interface {
	FindByID(ctx context.Context, id string) (*models.Registration, error)
}

// SessionOptions tunes editing sessions. Zero values fall back to component defaults.
type SessionOptions struct {
	PageSize  int
	Debounce  time.Duration
	IdleTTL   time.Duration
	Dispatch  func(task func())
	AfterFunc catalog.AfterFunc
	Now       func() time.Time
}

type sessionKey struct {
	operatorID     string
	registrationID string
}

type editSession struct {
	key         sessionKey
	accumulator *catalog.Accumulator
	reconciler  *equivalence.Reconciler
	cancel      context.CancelFunc
	openedAt    time.Time
	lastSeen    atomic.Int64

	mu           sync.Mutex
	registration *models.Registration
	known        map[string]models.Subject
}

func (e *editSession) touch(now time.Time) {
	e.lastSeen.Store(now.UnixNano())
}

func (e *editSession) lastActivity() time.Time {
	return time.Unix(0, e.lastSeen.Load())
}

func (e *editSession) shutdown() {
	e.accumulator.Close()
	e.cancel()
}

// SessionService owns the equivalence editing sessions. A session pairs a catalog
// accumulator with a selection reconciler for one operator working on one registration.
type SessionService struct {
	registrations registrationFinder
	searcher      catalog.Searcher
	submitter     equivalence.Submitter
	metrics       *MetricsService
	logger        *zap.Logger
	opts          SessionOptions

	mu       sync.Mutex
	sessions map[sessionKey]*editSession
}

// NewSessionService constructs the session registry.
func NewSessionService(registrations registrationFinder, searcher catalog.Searcher, submitter equivalence.Submitter, metrics *MetricsService, logger *zap.Logger, opts SessionOptions) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SessionService{
		registrations: registrations,
		searcher:      searcher,
		submitter:     submitter,
		metrics:       metrics,
		logger:        logger,
		opts:          opts,
		sessions:      make(map[sessionKey]*editSession),
	}
}

// Open loads the registration and starts its catalog search. Opening a session that is
// already open returns it unchanged.
func (s *SessionService) Open(ctx context.Context, operatorID, registrationID string) (*dto.EquivalenceSessionView, error) {
	key, err := newSessionKey(operatorID, registrationID)
	if err != nil {
		return nil, err
	}
	if sess, ok := s.lookup(key); ok {
		return s.buildView(sess), nil
	}

	reg, err := s.registrations.FindByID(ctx, key.registrationID)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
	}

	s.mu.Lock()
	if existing, ok := s.sessions[key]; ok {
		s.mu.Unlock()
		existing.touch(s.opts.Now())
		return s.buildView(existing), nil
	}
	sess := s.newSession(ctx, key, reg)
	s.sessions[key] = sess
	s.mu.Unlock()

	s.metrics.SessionOpened()
	sess.accumulator.Start()
	s.logger.Info("equivalence session opened",
		zap.String("operator_id", key.operatorID),
		zap.String("registration_id", key.registrationID),
		zap.Int("baseline", len(reg.Equivalents)))
	return s.buildView(sess), nil
}

func (s *SessionService) newSession(ctx context.Context, key sessionKey, reg *models.Registration) *editSession {
	// background fetches outlive the request but keep the operator's credentials
	sessCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if a, ok := actor.From(ctx); ok {
		sessCtx = actor.With(sessCtx, a)
	}
	logger := s.logger.With(
		zap.String("operator_id", key.operatorID),
		zap.String("registration_id", key.registrationID))

	acc := catalog.NewAccumulator(sessCtx, s.searcher, catalog.Options{
		PageSize:  s.opts.PageSize,
		Debounce:  s.opts.Debounce,
		AfterFunc: s.opts.AfterFunc,
		Dispatch:  s.opts.Dispatch,
		Observer:  s.metrics,
		Logger:    logger,
	})
	rec := equivalence.NewReconciler(s.submitter, logger)
	rec.Initialize(reg)

	now := s.opts.Now()
	sess := &editSession{
		key:          key,
		accumulator:  acc,
		reconciler:   rec,
		cancel:       cancel,
		openedAt:     now,
		registration: reg,
		known:        make(map[string]models.Subject),
	}
	sess.touch(now)
	return sess
}

// Close discards the session and everything unsaved in it.
func (s *SessionService) Close(operatorID, registrationID string) error {
	key, err := newSessionKey(operatorID, registrationID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	sess, ok := s.sessions[key]
	if ok {
		delete(s.sessions, key)
	}
	s.mu.Unlock()
	if !ok {
		return appErrors.Clone(appErrors.ErrSessionNotFound, "")
	}
	sess.shutdown()
	s.metrics.SessionClosed()
	s.logger.Info("equivalence session closed",
		zap.String("operator_id", key.operatorID),
		zap.String("registration_id", key.registrationID),
		zap.Bool("had_changes", sess.reconciler.HasChanges()))
	return nil
}

// Reload re-reads the registration. When its saved equivalents no longer match the
// session baseline the selection is re-initialised and unsaved toggles are dropped.
func (s *SessionService) Reload(ctx context.Context, operatorID, registrationID string) (*dto.ReloadSessionResponse, error) {
	sess, err := s.get(operatorID, registrationID)
	if err != nil {
		return nil, err
	}
	if sess.reconciler.Saving() {
		return nil, appErrors.Clone(appErrors.ErrSaveInFlight, "cannot reload while a save is in progress")
	}
	reg, err := s.registrations.FindByID(ctx, sess.key.registrationID)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
	}

	state := sess.reconciler.State()
	reset := reg.ID != state.RegistrationID ||
		!equivalence.NewSelection(reg.EquivalentSubjectIDs()...).Equal(equivalence.NewSelection(state.Baseline...))
	if reset {
		sess.reconciler.Initialize(reg)
		s.logger.Info("equivalence session reset after reload",
			zap.String("registration_id", reg.ID),
			zap.Bool("discarded_changes", state.HasChanges))
	}
	sess.mu.Lock()
	sess.registration = reg
	sess.mu.Unlock()

	return &dto.ReloadSessionResponse{Reset: reset, Session: *s.buildView(sess)}, nil
}

// SetFilter updates one filter field, or the free-text search when field is empty.
func (s *SessionService) SetFilter(operatorID, registrationID, field, value string) (*catalog.View, error) {
	sess, err := s.get(operatorID, registrationID)
	if err != nil {
		return nil, err
	}
	if field == "" {
		sess.accumulator.SetSearchTerm(value)
	} else {
		key := models.FilterKey(field)
		if !key.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown filter field "+field)
		}
		if key == models.FilterSemester && value != "" {
			semester, ok := models.ParseSemester(value)
			if !ok {
				return nil, appErrors.Clone(appErrors.ErrValidation, "unknown semester "+value)
			}
			value = string(semester)
		}
		sess.accumulator.SetFilterField(key, value)
	}
	view := sess.accumulator.View()
	return &view, nil
}

// ClearFilters resets every filter field.
func (s *SessionService) ClearFilters(operatorID, registrationID string) (*catalog.View, error) {
	sess, err := s.get(operatorID, registrationID)
	if err != nil {
		return nil, err
	}
	sess.accumulator.ClearFilters()
	view := sess.accumulator.View()
	return &view, nil
}

// LoadMore requests the next catalog page, or retries the page that last failed.
func (s *SessionService) LoadMore(operatorID, registrationID string) (*dto.LoadMoreResponse, error) {
	sess, err := s.get(operatorID, registrationID)
	if err != nil {
		return nil, err
	}
	requested := sess.accumulator.LoadMore()
	return &dto.LoadMoreResponse{Requested: requested, Catalog: sess.accumulator.View()}, nil
}

// Toggle flips one subject in the working selection.
func (s *SessionService) Toggle(operatorID, registrationID, subjectID string) (*dto.ToggleSubjectResponse, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject_id is required")
	}
	sess, err := s.get(operatorID, registrationID)
	if err != nil {
		return nil, err
	}

	// remember credits of subjects picked from the catalog so totals survive a filter change
	for _, subject := range sess.accumulator.Items() {
		if subject.ID == subjectID {
			sess.mu.Lock()
			sess.known[subject.ID] = subject
			sess.mu.Unlock()
			break
		}
	}

	selected := sess.reconciler.Toggle(subjectID)
	return &dto.ToggleSubjectResponse{
		SubjectID:    subjectID,
		Selected:     selected,
		HasChanges:   sess.reconciler.HasChanges(),
		TotalCredits: s.totalCredits(sess, sess.accumulator.Items()),
	}, nil
}

// Save submits the pending delta. The returned view reflects toggles made while the
// submission was outstanding.
func (s *SessionService) Save(ctx context.Context, operatorID, registrationID string) (*dto.SaveSelectionResponse, error) {
	sess, err := s.get(operatorID, registrationID)
	if err != nil {
		return nil, err
	}
	delta, err := sess.reconciler.Save(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.SaveSelectionResponse{Submitted: delta, Session: *s.buildView(sess)}, nil
}

// View returns the current session state.
func (s *SessionService) View(operatorID, registrationID string) (*dto.EquivalenceSessionView, error) {
	sess, err := s.get(operatorID, registrationID)
	if err != nil {
		return nil, err
	}
	return s.buildView(sess), nil
}

// Count returns the number of open sessions.
func (s *SessionService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes sessions idle for longer than the configured TTL. Sessions with a save
// in flight are kept until it completes.
func (s *SessionService) Sweep(now time.Time) int {
	var expired []*editSession
	s.mu.Lock()
	for key, sess := range s.sessions {
		if now.Sub(sess.lastActivity()) < s.opts.IdleTTL || sess.reconciler.Saving() {
			continue
		}
		delete(s.sessions, key)
		expired = append(expired, sess)
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.shutdown()
		s.metrics.SessionClosed()
		s.logger.Info("equivalence session expired",
			zap.String("operator_id", sess.key.operatorID),
			zap.String("registration_id", sess.key.registrationID),
			zap.Bool("had_changes", sess.reconciler.HasChanges()))
	}
	return len(expired)
}

// StartJanitor sweeps idle sessions every interval until ctx is done.
func (s *SessionService) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(s.opts.Now())
			}
		}
	}()
}

// CloseAll discards every session. Used on shutdown.
func (s *SessionService) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[sessionKey]*editSession)
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.shutdown()
		s.metrics.SessionClosed()
	}
}

func (s *SessionService) lookup(key sessionKey) (*editSession, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[key]
	s.mu.Unlock()
	if ok {
		sess.touch(s.opts.Now())
	}
	return sess, ok
}

func (s *SessionService) get(operatorID, registrationID string) (*editSession, error) {
	key, err := newSessionKey(operatorID, registrationID)
	if err != nil {
		return nil, err
	}
	sess, ok := s.lookup(key)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrSessionNotFound, "")
	}
	return sess, nil
}

func (s *SessionService) totalCredits(sess *editSession, items []models.Subject) int {
	sess.mu.Lock()
	registered := sess.registration.EquivalentSubjects()
	known := make([]models.Subject, 0, len(sess.known))
	for _, subject := range sess.known {
		known = append(known, subject)
	}
	sess.mu.Unlock()
	return sess.reconciler.TotalCredits(items, registered, known)
}

func (s *SessionService) buildView(sess *editSession) *dto.EquivalenceSessionView {
	catalogView := sess.accumulator.View()

	sess.mu.Lock()
	reg := sess.registration
	sess.mu.Unlock()

	registered := reg.EquivalentSubjects()
	sort.Slice(registered, func(i, j int) bool { return registered[i].Code < registered[j].Code })

	return &dto.EquivalenceSessionView{
		OperatorID: sess.key.operatorID,
		Registration: dto.RegistrationSummary{
			ID:             reg.ID,
			UserID:         reg.UserID,
			UserName:       reg.UserName,
			ActivityName:   reg.ActivityName,
			TotalSKS:       reg.TotalSKS,
			ApprovalStatus: reg.ApprovalStatus,
			Equivalents:    registered,
		},
		Catalog:      catalogView,
		Selection:    sess.reconciler.State(),
		TotalCredits: s.totalCredits(sess, catalogView.Items),
		OpenedAt:     sess.openedAt,
		LastActivity: sess.lastActivity(),
	}
}

func newSessionKey(operatorID, registrationID string) (sessionKey, error) {
	operatorID = strings.TrimSpace(operatorID)
	registrationID = strings.TrimSpace(registrationID)
	if operatorID == "" {
		return sessionKey{}, appErrors.Clone(appErrors.ErrUnauthorized, "operator identity is required")
	}
	if registrationID == "" {
		return sessionKey{}, appErrors.Clone(appErrors.ErrValidation, "registration id is required")
	}
	return sessionKey{operatorID: operatorID, registrationID: registrationID}, nil
}
