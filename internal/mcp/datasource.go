package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB
// (local) and HTTPClient (remote via the REST API) satisfy this interface.
type DataSource interface {
	Exercise(ctx context.Context, key string) (*models.Exercise, error)
	ListExercises(ctx context.Context) ([]models.Exercise, error)
	History(ctx context.Context, exerciseKey string, limit int) ([]models.HistoricalPoint, error)
	PreviousSession(ctx context.Context, exerciseKey string, before time.Time) (*models.ExerciseInstance, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)

// HTTPClient implements DataSource by calling the RepCoach REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but data
// lives on the server. Requests retry with backoff on transient failures.
type HTTPClient struct {
	baseURL    string
	httpClient *retryablehttp.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.Logger = nil
	c.HTTPClient.Timeout = 30 * time.Second
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: c,
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("httpclient: %s returned %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) Exercise(ctx context.Context, key string) (*models.Exercise, error) {
	var ex models.Exercise
	if err := c.get(ctx, "/api/v1/exercises/"+url.PathEscape(key), nil, &ex); err != nil {
		return nil, err
	}
	return &ex, nil
}

func (c *HTTPClient) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	var out []models.Exercise
	if err := c.get(ctx, "/api/v1/exercises", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) History(ctx context.Context, exerciseKey string, limit int) ([]models.HistoricalPoint, error) {
	var out []models.HistoricalPoint
	path := "/api/v1/exercises/" + url.PathEscape(exerciseKey) + "/history"
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (c *HTTPClient) PreviousSession(ctx context.Context, exerciseKey string, before time.Time) (*models.ExerciseInstance, error) {
	var out *models.ExerciseInstance
	path := "/api/v1/exercises/" + url.PathEscape(exerciseKey) + "/last-session"
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
