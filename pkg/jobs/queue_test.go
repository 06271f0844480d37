package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTaskQueueRunsDispatchedTasks(t *testing.T) {
	q := NewTaskQueue("catalog-fetch", QueueConfig{Workers: 2, Logger: zap.NewNop()})
	q.Start(context.Background())
	defer q.Stop()

	var ran int32
	dispatch := q.Dispatcher("catalog.page")
	for i := 0; i < 5; i++ {
		dispatch(func() { atomic.AddInt32(&ran, 1) })
	}

	require.Eventually(t, func() bool { return atomic.LoadInt32(&ran) == 5 }, time.Second, 5*time.Millisecond)
}

func TestDispatcherFallsBackWhenQueueNotStarted(t *testing.T) {
	q := NewTaskQueue("idle", QueueConfig{})
	done := make(chan struct{})

	q.Dispatcher("catalog.page")(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task was dropped")
	}
}

func TestEnqueueAfterStopFails(t *testing.T) {
	q := NewQueue("stopped", func(context.Context, Job) error { return nil }, QueueConfig{})
	q.Start(context.Background())
	q.Stop()

	err := q.Enqueue(Job{ID: "j1"})
	require.Error(t, err)
}

func TestFailedJobsAreNotRetried(t *testing.T) {
	var attempts int32
	q := NewQueue("no-retry", func(context.Context, Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("boom")
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j1"}))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&attempts) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestRunTaskRejectsForeignPayload(t *testing.T) {
	err := runTask(context.Background(), Job{ID: "j1", Payload: "not a func"})
	assert.Error(t, err)
}

func TestPanickingTaskDoesNotStopWorker(t *testing.T) {
	q := NewTaskQueue("catalog-fetch", QueueConfig{Workers: 1, Logger: zap.NewNop()})
	q.Start(context.Background())
	defer q.Stop()

	var ran int32
	dispatch := q.Dispatcher("catalog.page")
	dispatch(func() { panic("searcher blew up") })
	dispatch(func() { atomic.AddInt32(&ran, 1) })

	require.Eventually(t, func() bool { return atomic.LoadInt32(&ran) == 1 }, time.Second, 5*time.Millisecond)
}
