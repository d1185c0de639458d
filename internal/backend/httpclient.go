package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sqlbench/cli/internal/logging"
	"sqlbench/cli/internal/model"

	"github.com/pterm/pterm"
)

// HTTP implements QueryService over REST endpoints.
type HTTP struct {
	// baseURL is the base URL for all HTTP requests (e.g., "http://localhost:8000")
	baseURL string
	// endpoints contains the URL paths for the API
	endpoints Endpoints
	// client is the underlying HTTP client with configured timeout
	client *http.Client
	// token is sent as a bearer token when set
	token string
	// sessionID is sent as X-Session-ID when set
	sessionID string
	logger    *pterm.Logger
}

// Option configures the HTTP client.
type Option func(*HTTP)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTP) { h.client.Timeout = d }
}

// WithToken sets the bearer token.
func WithToken(token string) Option {
	return func(h *HTTP) { h.token = strings.TrimSpace(token) }
}

// WithSessionID sets the X-Session-ID header.
func WithSessionID(id string) Option {
	return func(h *HTTP) { h.sessionID = id }
}

// WithEndpoints overrides the default endpoint paths.
func WithEndpoints(e Endpoints) Option {
	return func(h *HTTP) { h.endpoints = e }
}

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTP) { h.client = c }
}

// WithLogger sets the structured logger.
func WithLogger(l *pterm.Logger) Option {
	return func(h *HTTP) { h.logger = l }
}

// New creates a REST Query Service client. Requests time out after 30 seconds
// unless WithTimeout says otherwise.
func New(baseURL string, opts ...Option) *HTTP {
	h := &HTTP{
		baseURL:   strings.TrimRight(baseURL, "/"),
		endpoints: DefaultEndpoints(),
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// BaseURL returns the configured base URL.
func (h *HTTP) BaseURL() string { return h.baseURL }

// TestConnection calls GET /api/connection-test.
func (h *HTTP) TestConnection(ctx context.Context) (model.ConnectionStatus, error) {
	var out model.ConnectionStatus
	if err := h.do(ctx, http.MethodGet, h.endpoints.ConnectionTest, nil, &out); err != nil {
		return model.ConnectionStatus{}, err
	}
	return out, nil
}

type executeRequest struct {
	Query              string  `json:"query"`
	Database           *string `json:"database"`
	ConfirmDestructive bool    `json:"confirm_destructive"`
}

// ExecuteQuery posts to /api/execute.
func (h *HTTP) ExecuteQuery(ctx context.Context, query, database string, confirmDestructive bool) (model.Response, error) {
	body := executeRequest{Query: query, ConfirmDestructive: confirmDestructive}
	if database != "" {
		body.Database = &database
	}
	var raw executeResponse
	if err := h.do(ctx, http.MethodPost, h.endpoints.Execute, body, &raw); err != nil {
		return model.Response{}, err
	}
	resp, err := raw.toResponse(query)
	if err != nil {
		return model.Response{}, err
	}
	return resp, nil
}

// GetSchema calls GET /api/schema/{database}.
func (h *HTTP) GetSchema(ctx context.Context, database string) (model.Schema, error) {
	name := strings.TrimSpace(database)
	if name == "" {
		name = DefaultSchemaName
	}
	var out model.Schema
	if err := h.do(ctx, http.MethodGet, strings.TrimRight(h.endpoints.Schema, "/")+"/"+url.PathEscape(name), nil, &out); err != nil {
		return model.Schema{}, err
	}
	if out.Database == "" && database != "" {
		out.Database = database
	}
	return out, nil
}

// Health calls GET /api/health and reports whether the backend answered 200.
func (h *HTTP) Health(ctx context.Context) error {
	return h.do(ctx, http.MethodGet, h.endpoints.Health, nil, nil)
}

// do sends a JSON request and decodes a JSON response into out (when non-nil).
// Non-2xx answers become *ServiceError.
func (h *HTTP) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	if err != nil {
		return err
	}
	h.setStandardHeaders(req)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Debug("request failed", h.logger.Args("method", method, "path", path, "error", logging.Mask(err.Error())))
		return err
	}
	defer resp.Body.Close()
	h.logger.Trace("request done", h.logger.Args("method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return newServiceError(resp.StatusCode, b)
	}
	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(out)
}

func (h *HTTP) setStandardHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "sqlbench-cli")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	if h.sessionID != "" {
		req.Header.Set("X-Session-ID", h.sessionID)
	}
}
