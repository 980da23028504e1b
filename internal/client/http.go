package client

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

	"github.com/ooAKLoo/AppScope/internal/model"
)

// HTTPClient implements Client using the AppScope HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	keys       Keys
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:3001").
func NewHTTPClient(baseURL string, keys Keys) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		keys:       keys,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Ingest ---

func (c *HTTPClient) Track(ctx context.Context, req *TrackRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/api/track", writeKeyHeader, c.keys.Write, req, nil)
}

func (c *HTTPClient) SubmitFeedback(ctx context.Context, req *FeedbackRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/api/feedback", writeKeyHeader, c.keys.Write, req, nil)
}

// --- Queries ---

func (c *HTTPClient) ListApps(ctx context.Context) ([]model.AppSummary, error) {
	var resp appsResponse
	if err := c.get(ctx, "/api/apps", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Apps, nil
}

func (c *HTTPClient) DAU(ctx context.Context, appID string, days int) ([]model.DauPoint, error) {
	q := url.Values{"app_id": {appID}, "days": {strconv.Itoa(days)}}
	var resp dauResponse
	if err := c.get(ctx, "/api/stats/dau", q, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *HTTPClient) Installs(ctx context.Context, appID string, days int) (*model.InstallStats, error) {
	q := url.Values{"app_id": {appID}, "days": {strconv.Itoa(days)}}
	var resp model.InstallStats
	if err := c.get(ctx, "/api/stats/installs", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Retention(ctx context.Context, appID string) ([]model.RetentionCohort, error) {
	q := url.Values{"app_id": {appID}}
	var resp retentionResponse
	if err := c.get(ctx, "/api/stats/retention", q, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *HTTPClient) Feedback(ctx context.Context, appID string, limit int) ([]*model.Feedback, error) {
	q := url.Values{"app_id": {appID}, "limit": {strconv.Itoa(limit)}}
	var resp feedbackResponse
	if err := c.get(ctx, "/api/feedbacks", q, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Health returns the body of GET /health ("OK" when the store is reachable).
func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return strings.TrimSpace(string(body)), nil
}

// --- internal helpers ---

const (
	writeKeyHeader = "X-Write-Key"
	readKeyHeader  = "X-Read-Key"
)

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (c *HTTPClient) get(ctx context.Context, path string, q url.Values, result any) error {
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return c.doJSON(ctx, http.MethodGet, path, readKeyHeader, c.keys.Read, nil, result)
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path, keyHeader, key string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set(keyHeader, key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
