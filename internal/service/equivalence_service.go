package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/actor"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
	appErrors "github.com/SIM-MBKM/mbkm-equivalence-api/pkg/errors"
)

type equivalenceBackend interface {
	Submit(ctx context.Context, registrationID string, delta models.SelectionDelta) error
}

// EquivalenceService submits selection deltas to the backend that persists equivalences.
type EquivalenceService struct {
	backend equivalenceBackend
	metrics *MetricsService
	logger  *zap.Logger
}

// NewEquivalenceService constructs the service.
func NewEquivalenceService(backend equivalenceBackend, metrics *MetricsService, logger *zap.Logger) *EquivalenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EquivalenceService{backend: backend, metrics: metrics, logger: logger}
}

// Submit forwards a non-empty delta. An empty delta is a caller bug and never reaches the backend.
func (s *EquivalenceService) Submit(ctx context.Context, registrationID string, delta models.SelectionDelta) error {
	if delta.Empty() {
		return appErrors.Clone(appErrors.ErrNoChanges, "refusing to submit an empty delta")
	}

	fields := []zap.Field{
		zap.String("registration_id", registrationID),
		zap.Strings("to_add", delta.ToAdd),
		zap.Strings("to_remove", delta.ToRemove),
	}
	if a, ok := actor.From(ctx); ok {
		fields = append(fields, zap.String("operator_id", a.UserID))
	}

	if err := s.backend.Submit(ctx, registrationID, delta); err != nil {
		s.metrics.RecordSubmission(false)
		s.logger.Warn("equivalence submission failed", append(fields, zap.Error(err))...)
		return wrapBackendError(err, "failed to save equivalences")
	}
	s.metrics.RecordSubmission(true)
	s.logger.Info("equivalence submission applied", fields...)
	return nil
}
