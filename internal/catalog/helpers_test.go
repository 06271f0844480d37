package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
)

type manualTimer struct {
	clock   *manualClock
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (c *manualClock) AfterFunc(_ time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// fire runs every timer that is neither stopped nor already fired.
func (c *manualClock) fire() int {
	c.mu.Lock()
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.fn()
	}
	return len(due)
}

type taskQueue struct {
	mu    sync.Mutex
	tasks []func()
}

func (q *taskQueue) Dispatch(task func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
}

func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// run executes the i-th queued task and removes it.
func (q *taskQueue) run(i int) {
	q.mu.Lock()
	task := q.tasks[i]
	q.tasks = append(q.tasks[:i], q.tasks[i+1:]...)
	q.mu.Unlock()
	task()
}

func (q *taskQueue) drain() {
	for q.len() > 0 {
		q.run(0)
	}
}

type searchCall struct {
	filter models.FilterCriteria
	page   int
	limit  int
}

type fakeSearcher struct {
	mu    sync.Mutex
	calls []searchCall
	pages map[string]*models.SearchPage
	errs  map[string]error
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{pages: map[string]*models.SearchPage{}, errs: map[string]error{}}
}

func pageKey(filter models.FilterCriteria, page int) string {
	return fmt.Sprintf("%s#%d", filter.Canonical(), page)
}

func (f *fakeSearcher) set(filter models.FilterCriteria, page int, result *models.SearchPage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[pageKey(filter, page)] = result
}

func (f *fakeSearcher) fail(filter models.FilterCriteria, page int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, pageKey(filter, page))
		return
	}
	f.errs[pageKey(filter, page)] = err
}

func (f *fakeSearcher) Search(_ context.Context, filter models.FilterCriteria, page, limit int) (*models.SearchPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, searchCall{filter: filter.Clone(), page: page, limit: limit})
	if err := f.errs[pageKey(filter, page)]; err != nil {
		return nil, err
	}
	if result, ok := f.pages[pageKey(filter, page)]; ok {
		return result, nil
	}
	return &models.SearchPage{CurrentPage: page, LastPage: page}, nil
}

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSearcher) lastCall() searchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recordingObserver) ObserveCatalogFetch(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func subjects(ids ...string) []models.Subject {
	out := make([]models.Subject, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Subject{ID: id, Code: "MK-" + id, Credits: 3})
	}
	return out
}

func ids(items []models.Subject) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		out = append(out, s.ID)
	}
	return out
}
