// Package portal talks to the mobility portal API that owns the subject catalog,
// registrations and their saved equivalences.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/actor"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
	appErrors "github.com/SIM-MBKM/mbkm-equivalence-api/pkg/errors"
)

// query parameter understood by the portal for each filter key
var filterParams = map[models.FilterKey]string{
	models.FilterCode:       "search",
	models.FilterSemester:   "semester",
	models.FilterProgram:    "program_studi",
	models.FilterClassTrack: "kelas",
	models.FilterDepartment: "departemen",
	models.FilterCourseType: "tipe_mata_kuliah",
}

const maxErrorBody = 4 << 10

// Client is an HTTP client for the portal API. It satisfies the catalog searcher, the
// registration reader and the equivalence submitter contracts.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a portal client. token is the service credential used when the
// request context carries no operator token.
func NewClient(baseURL, token string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchResponse struct {
	Data        []models.Subject `json:"data"`
	CurrentPage int              `json:"current_page"`
	LastPage    int              `json:"last_page"`
	Total       int              `json:"total"`
}

// Search fetches one page of catalog subjects.
func (c *Client) Search(ctx context.Context, filter models.FilterCriteria, page, limit int) (*models.SearchPage, error) {
	params := url.Values{}
	for key, value := range filter.Clone() {
		if name, ok := filterParams[key]; ok {
			params.Set(name, value)
		}
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	var payload searchResponse
	if err := c.do(ctx, http.MethodGet, "/subjects?"+params.Encode(), nil, &payload); err != nil {
		return nil, err
	}
	current := payload.CurrentPage
	if current <= 0 {
		current = page
	}
	return &models.SearchPage{
		Subjects:    payload.Data,
		CurrentPage: current,
		LastPage:    payload.LastPage,
		Total:       payload.Total,
	}, nil
}

// FindByID reads a registration and its saved equivalences.
func (c *Client) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	var payload struct {
		Data models.Registration `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/registrations/"+url.PathEscape(id), nil, &payload); err != nil {
		return nil, err
	}
	reg := payload.Data
	if reg.ID == "" {
		reg.ID = id
	}
	for i := range reg.Equivalents {
		if reg.Equivalents[i].SubjectID == "" && reg.Equivalents[i].Subject != nil {
			reg.Equivalents[i].SubjectID = reg.Equivalents[i].Subject.ID
		}
	}
	return &reg, nil
}

// Submit applies a selection delta. The portal applies both lists atomically.
func (c *Client) Submit(ctx context.Context, registrationID string, delta models.SelectionDelta) error {
	body, err := json.Marshal(delta)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal, "failed to encode equivalence delta")
	}
	return c.do(ctx, http.MethodPost, "/registrations/"+url.PathEscape(registrationID)+"/equivalents", body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal, "failed to build portal request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("portal request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrUpstream, "portal unreachable")
	}
	defer resp.Body.Close()

	c.logger.Debug("portal request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream, "invalid portal response")
	}
	return nil
}

func (c *Client) bearer(ctx context.Context) string {
	if a, ok := actor.From(ctx); ok && a.AccessToken != "" {
		return a.AccessToken
	}
	return c.token
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Message string `json:"message"`
	}
	message := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &payload) == nil && payload.Message != "" {
		message = payload.Message
	}
	cause := fmt.Errorf("portal returned status %d: %s", resp.StatusCode, message)
	return appErrors.Wrap(cause, appErrors.FromStatus(resp.StatusCode), message)
}
