// Package cellarapi is a typed client for the wine backend's REST API.
package cellarapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/conorfennell/cellarfront/internal/domain"
)

// APIError is returned when the backend responds with a non-2xx status.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("cellar api %d", e.Status)
	}
	return fmt.Sprintf("cellar api %d: %s", e.Status, e.Detail)
}

// Detail returns the server-supplied detail of err, or fallback when err
// carries none.
func Detail(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client talks to the wine backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithTimeout sets the HTTP timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Detail: readDetail(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// readDetail extracts a string "detail" field from an error body. Anything
// else (validation lists, HTML error pages) yields an empty detail.
func readDetail(r io.Reader) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil || len(body.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(body.Detail, &s); err != nil {
		return ""
	}
	return s
}

// Quiz calls GET /api/quiz.
func (c *Client) Quiz(ctx context.Context) ([]domain.Question, error) {
	var out struct {
		Questions []domain.Question `json:"questions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/quiz", nil, &out); err != nil {
		return nil, err
	}
	return out.Questions, nil
}

// Match calls POST /api/match with the complete answer set.
func (c *Client) Match(ctx context.Context, answers []domain.Answer) (*domain.MatchResult, error) {
	in := struct {
		QuizAnswers []domain.Answer `json:"quiz_answers"`
	}{QuizAnswers: answers}
	var out domain.MatchResult
	if err := c.do(ctx, http.MethodPost, "/api/match", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListWines calls GET /api/admin/wines.
func (c *Client) ListWines(ctx context.Context, q string, limit, offset int) (*domain.StockPage, error) {
	v := url.Values{}
	v.Set("q", q)
	v.Set("limit", strconv.Itoa(limit))
	v.Set("offset", strconv.Itoa(offset))
	var out domain.StockPage
	if err := c.do(ctx, http.MethodGet, "/api/admin/wines?"+v.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetWine calls GET /api/admin/wine/{id}.
func (c *Client) GetWine(ctx context.Context, id int64) (*domain.Wine, error) {
	var out domain.Wine
	if err := c.do(ctx, http.MethodGet, winePath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateWine calls POST /api/admin/wine and returns the new id.
func (c *Client) CreateWine(ctx context.Context, w domain.Wine) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/admin/wine", w, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// UpdateWine calls PATCH /api/admin/wine/{id}.
func (c *Client) UpdateWine(ctx context.Context, id int64, w domain.Wine) error {
	return c.do(ctx, http.MethodPatch, winePath(id), w, nil)
}

// DeleteWine calls DELETE /api/admin/wine/{id}.
func (c *Client) DeleteWine(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, winePath(id), nil, nil)
}

// AutoProfile calls POST /api/admin/auto_profile.
func (c *Client) AutoProfile(ctx context.Context, in AutoProfileRequest) (*AutoProfileResponse, error) {
	var out AutoProfileResponse
	if err := c.do(ctx, http.MethodPost, "/api/admin/auto_profile", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Enrich calls POST /api/admin/enrich.
func (c *Client) Enrich(ctx context.Context, in EnrichRequest) (*EnrichResponse, error) {
	var out EnrichResponse
	if err := c.do(ctx, http.MethodPost, "/api/admin/enrich", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func winePath(id int64) string {
	return "/api/admin/wine/" + strconv.FormatInt(id, 10)
}
