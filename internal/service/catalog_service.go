package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
	appErrors "github.com/SIM-MBKM/mbkm-equivalence-api/pkg/errors"
)

const maxCatalogPageSize = 100

type catalogBackend interface {
	Search(ctx context.Context, filter models.FilterCriteria, page, limit int) (*models.SearchPage, error)
}

// CatalogService fronts the catalog query backend with a page cache.
type CatalogService struct {
	backend catalogBackend
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewCatalogService constructs the catalog service. cache and metrics may be nil.
func NewCatalogService(backend catalogBackend, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{backend: backend, cache: cache, metrics: metrics, logger: logger}
}

// Search returns one catalog page. Identical queries may be served from cache.
func (s *CatalogService) Search(ctx context.Context, filter models.FilterCriteria, page, limit int) (*models.SearchPage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > maxCatalogPageSize {
		limit = 20
	}
	filter = filter.Clone()

	key := catalogCacheKey(filter, page, limit)
	var cached models.SearchPage
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	start := time.Now()
	result, err := s.backend.Search(ctx, filter, page, limit)
	s.metrics.ObserveDBQuery("catalog_search", time.Since(start))
	if err != nil {
		return nil, wrapBackendError(err, "failed to search catalog")
	}
	if result == nil {
		result = &models.SearchPage{CurrentPage: page}
	}
	_ = s.cache.Set(ctx, key, result, 0)
	return result, nil
}

// Flush drops every cached catalog page.
func (s *CatalogService) Flush(ctx context.Context) error {
	if err := s.cache.Invalidate(ctx, "search:*"); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal, "failed to flush catalog cache")
	}
	s.logger.Info("catalog cache flushed")
	return nil
}

func catalogCacheKey(filter models.FilterCriteria, page, limit int) string {
	sum := sha1.Sum([]byte(filter.Canonical()))
	return fmt.Sprintf("search:%s:%d:%d", hex.EncodeToString(sum[:]), page, limit)
}

// wrapBackendError keeps typed errors from adapters and marks the rest as upstream failures.
func wrapBackendError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrUpstream, message)
}
