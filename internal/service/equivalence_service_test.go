package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/actor"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
	appErrors "github.com/SIM-MBKM/mbkm-equivalence-api/pkg/errors"
)

type recordingSubmitter struct {
	calls  []models.SelectionDelta
	ids    []string
	actors []actor.Actor
	err    error
}

func (r *recordingSubmitter) Submit(ctx context.Context, registrationID string, delta models.SelectionDelta) error {
	r.ids = append(r.ids, registrationID)
	r.calls = append(r.calls, delta)
	if a, ok := actor.From(ctx); ok {
		r.actors = append(r.actors, a)
	}
	return r.err
}

func TestEquivalenceServiceSubmit(t *testing.T) {
	backend := &recordingSubmitter{}
	metrics := NewMetricsService()
	svc := NewEquivalenceService(backend, metrics, zap.NewNop())

	ctx := actor.With(context.Background(), actor.Actor{UserID: "advisor-1"})
	delta := models.SelectionDelta{ToAdd: []string{"S1"}, ToRemove: []string{"S9"}}
	require.NoError(t, svc.Submit(ctx, "reg-1", delta))

	require.Len(t, backend.calls, 1)
	assert.Equal(t, delta, backend.calls[0])
	assert.Equal(t, "reg-1", backend.ids[0])
	assert.Equal(t, "advisor-1", backend.actors[0].UserID)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.submissions.WithLabelValues("success")))
}

func TestEquivalenceServiceRejectsEmptyDelta(t *testing.T) {
	backend := &recordingSubmitter{}
	svc := NewEquivalenceService(backend, nil, nil)

	err := svc.Submit(context.Background(), "reg-1", models.SelectionDelta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoChanges.Code, appErrors.FromError(err).Code)
	assert.Empty(t, backend.calls)
}

func TestEquivalenceServiceFailureIsCounted(t *testing.T) {
	backend := &recordingSubmitter{err: errors.New("503 from portal")}
	metrics := NewMetricsService()
	svc := NewEquivalenceService(backend, metrics, zap.NewNop())

	err := svc.Submit(context.Background(), "reg-1", models.SelectionDelta{ToAdd: []string{"S1"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUpstream.Code, appErrors.FromError(err).Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.submissions.WithLabelValues("failure")))
}
