package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
	appErrors "github.com/SIM-MBKM/mbkm-equivalence-api/pkg/errors"
)

type stubCacheRepo struct {
	mu    sync.Mutex
	store map[string][]byte
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range s.store {
		if strings.HasPrefix(key, prefix) {
			delete(s.store, key)
		}
	}
	return nil
}

type stubCatalogBackend struct {
	calls  int
	page   int
	limit  int
	filter models.FilterCriteria
	result *models.SearchPage
	err    error
}

func (s *stubCatalogBackend) Search(_ context.Context, filter models.FilterCriteria, page, limit int) (*models.SearchPage, error) {
	s.calls++
	s.filter, s.page, s.limit = filter, page, limit
	return s.result, s.err
}

func TestCatalogServiceCachesIdenticalQueries(t *testing.T) {
	backend := &stubCatalogBackend{result: &models.SearchPage{
		Subjects:    []models.Subject{{ID: "S1", Code: "IF101", Credits: 3}},
		CurrentPage: 1,
		LastPage:    2,
		Total:       2,
	}}
	cache := NewCacheService(&stubCacheRepo{}, nil, "catalog", time.Minute, zap.NewNop(), true)
	svc := NewCatalogService(backend, cache, NewMetricsService(), zap.NewNop())

	filter := models.FilterCriteria{}.With(models.FilterSemester, "GANJIL")
	first, err := svc.Search(context.Background(), filter, 1, 20)
	require.NoError(t, err)
	second, err := svc.Search(context.Background(), filter.With(models.FilterProgram, ""), 1, 20)
	require.NoError(t, err)

	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, first, second)

	require.NoError(t, svc.Flush(context.Background()))
	_, err = svc.Search(context.Background(), filter, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.calls)
}

func TestCatalogServiceNormalisesPaging(t *testing.T) {
	backend := &stubCatalogBackend{result: &models.SearchPage{}}
	svc := NewCatalogService(backend, nil, nil, nil)

	_, err := svc.Search(context.Background(), nil, 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.page)
	assert.Equal(t, 20, backend.limit)
	assert.NotNil(t, backend.filter)
}

func TestCatalogServiceWrapsBackendFailures(t *testing.T) {
	backend := &stubCatalogBackend{err: errors.New("connection reset")}
	svc := NewCatalogService(backend, nil, nil, zap.NewNop())

	_, err := svc.Search(context.Background(), nil, 1, 20)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUpstream.Code, appErr.Code)
	assert.Equal(t, http.StatusBadGateway, appErr.Status)

	backend.err = appErrors.Clone(appErrors.ErrUnauthorized, "token expired")
	_, err = svc.Search(context.Background(), nil, 1, 20)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestCatalogServiceNilResultBecomesEmptyPage(t *testing.T) {
	svc := NewCatalogService(&stubCatalogBackend{}, nil, nil, nil)

	page, err := svc.Search(context.Background(), nil, 3, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Subjects)
	assert.Equal(t, 3, page.CurrentPage)
}
