package catalog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
	appErrors "github.com/SIM-MBKM/mbkm-equivalence-api/pkg/errors"
)

const (
	defaultPageSize = 20
	defaultDebounce = 500 * time.Millisecond
)

// Fetch outcomes reported to an Observer.
const (
	OutcomeApplied = "applied"
	OutcomeStale   = "stale"
	OutcomeFailed  = "failed"
)

// Searcher queries the subject catalog. Calls with identical arguments must be safe to repeat.
type Searcher interface {
	Search(ctx context.Context, filter models.FilterCriteria, page, limit int) (*models.SearchPage, error)
}

// Observer receives the outcome of every page fetch.
type Observer interface {
	ObserveCatalogFetch(outcome string, duration time.Duration)
}

// Options tunes an Accumulator. Zero values fall back to defaults.
type Options struct {
	PageSize  int
	Debounce  time.Duration
	AfterFunc AfterFunc
	// Dispatch runs a fetch asynchronously; defaults to a new goroutine per fetch.
	Dispatch func(task func())
	Observer Observer
	Logger   *zap.Logger
}

// View is a snapshot of the accumulated catalog.
type View struct {
	Epoch         uint64                `json:"epoch"`
	Filter        models.FilterCriteria `json:"filter"`
	PendingFilter models.FilterCriteria `json:"pending_filter"`
	Items         []models.Subject      `json:"items"`
	Page          int                   `json:"page"`
	LastPage      int                   `json:"last_page"`
	Total         int                   `json:"total"`
	HasMore       bool                  `json:"has_more"`
	Loading       bool                  `json:"loading"`
	Settling      bool                  `json:"settling"`
	LastError     string                `json:"last_error,omitempty"`
}

// Accumulator keeps an ordered, de-duplicated list of catalog subjects matching the
// debounced filter, fetched one page at a time. Each debounced filter change begins a
// new epoch; pages fetched under an older epoch are dropped when they complete.
type Accumulator struct {
	mu        sync.Mutex
	ctx       context.Context
	searcher  Searcher
	pageSize  int
	dispatch  func(task func())
	observer  Observer
	logger    *zap.Logger
	debouncer *Debouncer

	raw      models.FilterCriteria
	active   models.FilterCriteria
	epoch    uint64
	started  bool
	closed   bool
	items    []models.Subject
	index    map[string]struct{}
	page     int
	lastPage int
	total    int
	hasMore  bool
	inflight int
	lastErr  error
}

// NewAccumulator builds an idle accumulator; Start issues the first search.
func NewAccumulator(ctx context.Context, searcher Searcher, opts Options) *Accumulator {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.Dispatch == nil {
		opts.Dispatch = func(task func()) { go task() }
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Accumulator{
		ctx:       ctx,
		searcher:  searcher,
		pageSize:  opts.PageSize,
		dispatch:  opts.Dispatch,
		observer:  opts.Observer,
		logger:    opts.Logger,
		debouncer: NewDebouncer(opts.Debounce, opts.AfterFunc),
		raw:       models.FilterCriteria{},
		active:    models.FilterCriteria{},
		index:     make(map[string]struct{}),
	}
}

// Start begins the first epoch with the current raw filter. Later calls are no-ops.
func (a *Accumulator) Start() {
	a.mu.Lock()
	if a.started || a.closed {
		a.mu.Unlock()
		return
	}
	task := a.beginEpochLocked(a.raw.Clone())
	a.mu.Unlock()
	a.dispatch(task)
}

// SetFilterField updates one raw filter field. The search reruns once edits settle.
func (a *Accumulator) SetFilterField(key models.FilterKey, value string) {
	a.mu.Lock()
	a.raw = a.raw.With(key, value)
	a.mu.Unlock()
	a.debouncer.Trigger(a.applyRaw)
}

// SetSearchTerm updates the free-text code/name search.
func (a *Accumulator) SetSearchTerm(term string) {
	a.SetFilterField(models.FilterCode, term)
}

// ClearFilters resets every raw filter field.
func (a *Accumulator) ClearFilters() {
	a.mu.Lock()
	a.raw = models.FilterCriteria{}
	a.mu.Unlock()
	a.debouncer.Trigger(a.applyRaw)
}

// applyRaw reads the raw filter when the debounce window closes, so edits
// racing the trigger are never lost.
func (a *Accumulator) applyRaw() {
	a.mu.Lock()
	next := a.raw.Clone()
	a.mu.Unlock()
	a.applyFilter(next)
}

// LoadMore requests the next page of the current epoch. It returns false when there is
// nothing more to load or a fetch for the epoch is still outstanding. After a failed
// fetch it retries the page that failed.
func (a *Accumulator) LoadMore() bool {
	a.mu.Lock()
	if a.closed || !a.started || !a.hasMore || a.inflight != 0 {
		a.mu.Unlock()
		return false
	}
	next := a.page + 1
	a.inflight = next
	task := a.fetchTask(a.epoch, next, a.active.Clone())
	a.mu.Unlock()
	a.dispatch(task)
	return true
}

// Close stops pending debounce timers; completions arriving afterwards are ignored.
func (a *Accumulator) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.debouncer.Stop()
}

// Items returns a copy of the accumulated subjects.
func (a *Accumulator) Items() []models.Subject {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.Subject(nil), a.items...)
}

// Epoch returns the active epoch token; zero before Start.
func (a *Accumulator) Epoch() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.epoch
}

// View returns a snapshot of the accumulator.
func (a *Accumulator) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	view := View{
		Epoch:         a.epoch,
		Filter:        a.active.Clone(),
		PendingFilter: a.raw.Clone(),
		Items:         append([]models.Subject{}, a.items...),
		Page:          a.page,
		LastPage:      a.lastPage,
		Total:         a.total,
		HasMore:       a.hasMore,
		Loading:       a.inflight != 0,
		Settling:      a.debouncer.Pending(),
	}
	if a.lastErr != nil {
		view.LastError = appErrors.FromError(a.lastErr).Message
	}
	return view
}

func (a *Accumulator) applyFilter(filter models.FilterCriteria) {
	a.mu.Lock()
	if a.closed || (a.started && filter.Equal(a.active)) {
		a.mu.Unlock()
		return
	}
	task := a.beginEpochLocked(filter)
	a.mu.Unlock()
	a.dispatch(task)
}

func (a *Accumulator) beginEpochLocked(filter models.FilterCriteria) func() {
	a.started = true
	a.epoch++
	a.active = filter
	a.items = nil
	a.index = make(map[string]struct{})
	a.page = 0
	a.lastPage = 0
	a.total = 0
	a.hasMore = true
	a.lastErr = nil
	a.inflight = 1
	a.logger.Debug("catalog epoch started",
		zap.Uint64("epoch", a.epoch),
		zap.String("filter", filter.Canonical()))
	return a.fetchTask(a.epoch, 1, filter.Clone())
}

func (a *Accumulator) fetchTask(epoch uint64, page int, filter models.FilterCriteria) func() {
	return func() {
		start := time.Now()
		result, err := a.searcher.Search(a.ctx, filter, page, a.pageSize)
		a.apply(epoch, page, result, err, time.Since(start))
	}
}

func (a *Accumulator) apply(epoch uint64, page int, result *models.SearchPage, err error, took time.Duration) {
	outcome := a.applyLocked(epoch, page, result, err)
	if a.observer != nil {
		a.observer.ObserveCatalogFetch(outcome, took)
	}
}

func (a *Accumulator) applyLocked(epoch uint64, page int, result *models.SearchPage, err error) string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || epoch != a.epoch {
		a.logger.Debug("dropping stale catalog page",
			zap.Uint64("epoch", epoch),
			zap.Uint64("active_epoch", a.epoch),
			zap.Int("page", page))
		return OutcomeStale
	}
	if a.inflight == page {
		a.inflight = 0
	}
	if err != nil {
		a.lastErr = err
		a.logger.Warn("catalog page fetch failed",
			zap.Uint64("epoch", epoch),
			zap.Int("page", page),
			zap.Error(err))
		return OutcomeFailed
	}
	a.lastErr = nil
	if result == nil {
		result = &models.SearchPage{}
	}

	if page == 1 {
		a.items = nil
		a.index = make(map[string]struct{})
	}
	for _, subject := range result.Subjects {
		if _, dup := a.index[subject.ID]; dup {
			continue
		}
		a.index[subject.ID] = struct{}{}
		a.items = append(a.items, subject)
	}

	current := result.CurrentPage
	if current <= 0 {
		current = page
	}
	a.page = page
	a.lastPage = result.LastPage
	a.total = result.Total
	a.hasMore = len(result.Subjects) > 0 && current < result.LastPage
	return OutcomeApplied
}
