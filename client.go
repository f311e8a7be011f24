package zenforce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is where a locally run backend listens.
const DefaultBaseURL = "http://localhost:8000"

// DefaultAskTimeout bounds the synchronous /ask round trip. The streaming
// endpoints deliberately carry no client-side deadline: a reconciliation or
// visualization run may legitimately take long, and the stream stays live as
// long as events keep arriving.
const DefaultAskTimeout = 25 * time.Second

// Client talks to one Zenalyst backend. The zero value is not usable; create
// clients with NewClient.
//
// A Client is safe for concurrent use. Each streaming call returns its own
// Stream with independent decode state.
type Client struct {
	baseURL    string
	httpClient *http.Client
	askTimeout time.Duration
	log        *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a non-default backend.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient substitutes the underlying HTTP client. The client must not
// set a global timeout, or long streams will be cut off mid-flight.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithLogger attaches a logger for stream diagnostics (dropped frames,
// discarded fragments). Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithAskTimeout overrides the /ask round-trip deadline.
func WithAskTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.askTimeout = d
	}
}

// NewClient creates a client for the backend at DefaultBaseURL unless
// overridden with WithBaseURL.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
		askTimeout: DefaultAskTimeout,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig creates a client from a loaded Config, applying any
// further options on top.
func NewClientFromConfig(cfg *Config, opts ...Option) *Client {
	base := []Option{}
	if cfg.BaseURL != "" {
		base = append(base, WithBaseURL(cfg.BaseURL))
	}
	if cfg.AskTimeout > 0 {
		base = append(base, WithAskTimeout(cfg.AskTimeout))
	}
	return NewClient(append(base, opts...)...)
}

// BaseURL returns the backend base URL the client was configured with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health probes backend reachability. It reports whether the backend holds a
// processed dataset; it does not transfer the dataset itself.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("zenforce: building health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError("/health", resp)
	}

	var status HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("zenforce: decoding health response: %w", err)
	}
	return &status, nil
}

// Reconcile uploads a CSV and returns the live event stream of the
// reconciliation run: thought events while agents work, then a single summary
// event, then the sentinel. The caller owns the returned Stream and must
// Close it.
func (c *Client) Reconcile(ctx context.Context, filename string, csv io.Reader) (*Stream, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("zenforce: building upload form: %w", err)
	}
	if _, err := io.Copy(part, csv); err != nil {
		return nil, fmt.Errorf("zenforce: reading upload %q: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("zenforce: finalizing upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/reconcile", &buf)
	if err != nil {
		return nil, fmt.Errorf("zenforce: building reconcile request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.openStream(req, "/reconcile")
}

// Visualize asks the backend to chart the current dataset and returns the
// live event stream: thought events, then a single viz_result event, then the
// sentinel. Called without a dataset, the backend answers with an in-band
// error event rather than a failure status; gate on the SessionController
// first. The caller owns the returned Stream and must Close it.
func (c *Client) Visualize(ctx context.Context) (*Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/visualize", nil)
	if err != nil {
		return nil, fmt.Errorf("zenforce: building visualize request: %w", err)
	}
	return c.openStream(req, "/visualize")
}

// openStream issues a streaming request and fails fast, before any decoding,
// on a non-success status or an absent body.
func (c *Client) openStream(req *http.Request, endpoint string) (*Stream, error) {
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.apiError(endpoint, resp)
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: ErrNoBody}
	}

	return newStream(endpoint, resp.Body, c.log), nil
}

// Ask poses a question about the current dataset. It is synchronous and
// bounded by the configured ask timeout; past the deadline it fails like any
// other transport error. The question must be non-blank.
func (c *Client) Ask(ctx context.Context, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	ctx, cancel := context.WithTimeout(ctx, c.askTimeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return nil, fmt.Errorf("zenforce: encoding question: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("zenforce: building ask request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError("/ask", resp)
	}

	var answer Answer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, fmt.Errorf("zenforce: decoding answer: %w", err)
	}
	return &answer, nil
}

// PlotURL returns the address of the most recent rendered chart. The image is
// referenced by URL, not decoded by this client.
func (c *Client) PlotURL() string {
	return c.baseURL + "/plot"
}

// FetchPlot downloads the most recent rendered chart as raw image bytes.
// The backend answers 404 until a visualization run has produced one.
func (c *Client) FetchPlot(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.PlotURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("zenforce: building plot request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError("/plot", resp)
	}
	return io.ReadAll(resp.Body)
}

// apiError drains up to a small prefix of the failure body for the message.
func (c *Client) apiError(endpoint string, resp *http.Response) error {
	msg := resp.Status
	if body, err := io.ReadAll(io.LimitReader(resp.Body, 512)); err == nil && len(body) > 0 {
		msg = strings.TrimSpace(string(body))
	}
	return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: msg}
}
