package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
	appErrors "github.com/SIM-MBKM/mbkm-equivalence-api/pkg/errors"
)

// RegistrationReader loads a registration together with its saved equivalents.
type RegistrationReader interface {
	FindByID(ctx context.Context, id string) (*models.Registration, error)
}

// RegistrationService reads registrations for editing sessions.
type RegistrationService struct {
	backend RegistrationReader
	metrics *MetricsService
}

// NewRegistrationService constructs the service.
func NewRegistrationService(backend RegistrationReader, metrics *MetricsService) *RegistrationService {
	return &RegistrationService{backend: backend, metrics: metrics}
}

// FindByID returns the registration or a NOT_FOUND error.
func (s *RegistrationService) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration id is required")
	}
	start := time.Now()
	reg, err := s.backend.FindByID(ctx, id)
	s.metrics.ObserveDBQuery("registration_read", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, wrapBackendError(err, "failed to load registration")
	}
	if reg == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
	}
	return reg, nil
}
