// Package api is the HTTP adapter for the portal REST service.
//
// Every call carries the stored bearer token and a request ID, and decodes the
// {"message", "data"} envelope. Failures come back as *Error. A 401 or 403
// clears the stored credentials and fires the unauthorized hooks before the
// error is returned.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"github.com/infokelas/kelas/internal/logging"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://admin.infokelas.com/api"

// DefaultTimeout bounds each request when no timeout is configured.
const DefaultTimeout = 15 * time.Second

// RequestIDHeader carries a per-request UUID for server-side tracing.
const RequestIDHeader = "X-Request-ID"

// CredentialStore is the persisted session the client reads and clears.
type CredentialStore interface {
	Token() (string, error)
	ClearCredentials() error
}

// Request describes one API call.
type Request struct {
	Method string
	Path   string            // Relative to the base URL, e.g. "/classrooms/7".
	Query  map[string]string // Query string parameters.
	Body   any               // JSON body.
	Form   map[string]string // Multipart fields; sent only when Files or Multipart is set.
	Files  []File
	// Multipart forces a multipart body even without files.
	Multipart bool
}

// File is one multipart file part.
type File struct {
	Field  string
	Name   string
	Reader io.Reader
}

// Response is a decoded envelope.
type Response struct {
	Status    int
	Message   string
	Data      json.RawMessage
	RequestID string
}

// Decode unmarshals the envelope data into v.
func (r *Response) Decode(v any) error {
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("api: decoding data: %w", err)
	}
	return nil
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client performs authenticated calls against the portal API.
type Client struct {
	http   *resty.Client
	creds  CredentialStore
	logger *log.Logger

	mu             sync.Mutex
	onUnauthorized []func()
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	timeout    time.Duration
	logger     *log.Logger
	httpClient *http.Client
	hooks      []func()
}

// WithTimeout bounds each request. Zero keeps DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}

// WithHTTPClient sets the underlying transport client, for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = hc }
}

// WithUnauthorizedHook registers fn to run after credentials are cleared
// on a 401 or 403.
func WithUnauthorizedHook(fn func()) Option {
	return func(c *clientConfig) { c.hooks = append(c.hooks, fn) }
}

// New creates a Client for baseURL. An empty baseURL uses DefaultBaseURL.
func New(baseURL string, creds CredentialStore, opts ...Option) *Client {
	cfg := clientConfig{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.Discard("api")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	var rc *resty.Client
	if cfg.httpClient != nil {
		rc = resty.NewWithClient(cfg.httpClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(baseURL).
		SetTimeout(cfg.timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)

	c := &Client{
		http:           rc,
		creds:          creds,
		logger:         cfg.logger,
		onUnauthorized: cfg.hooks,
	}
	rc.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		r.SetHeader(RequestIDHeader, uuid.NewString())
		return nil
	})
	return c
}

// OnUnauthorized registers fn to run after credentials are cleared on a
// 401 or 403. Hooks run in registration order.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = append(c.onUnauthorized, fn)
	c.mu.Unlock()
}

// Do sends req and decodes the envelope.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	r := c.http.R().SetContext(ctx)

	token, err := c.creds.Token()
	if err != nil {
		return nil, fmt.Errorf("api: reading credentials: %w", err)
	}
	if token != "" {
		r.SetAuthToken(token)
	}
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	switch {
	case len(req.Files) > 0 || req.Multipart:
		// resty writes the multipart Content-Type with its boundary.
		r.SetMultipartFormData(req.Form)
		for _, f := range req.Files {
			r.SetFileReader(f.Field, f.Name, f.Reader)
		}
	case req.Body != nil:
		r.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.Path)
	if err != nil {
		c.logger.Warnf("%s %s: %v", req.Method, req.Path, err)
		return nil, &Error{Kind: KindNetwork, Method: req.Method, Path: req.Path, Err: err}
	}

	out := &Response{Status: resp.StatusCode(), RequestID: resp.Request.Header.Get(RequestIDHeader)}
	var env envelope
	decodeErr := json.Unmarshal(resp.Body(), &env)
	out.Message = env.Message
	out.Data = env.Data
	c.logger.Debugf("%s %s: %d (%s, %s)", req.Method, req.Path, out.Status, resp.Time(), out.RequestID)

	if kind := kindFor(out.Status); kind != 0 {
		apiErr := &Error{Kind: kind, Status: out.Status, Message: env.Message, Method: req.Method, Path: req.Path}
		if kind == KindAuth {
			c.unauthorized()
		}
		return out, apiErr
	}
	if decodeErr != nil {
		return out, &Error{
			Kind: KindServer, Status: out.Status, Method: req.Method, Path: req.Path,
			Err: fmt.Errorf("decoding envelope: %w", decodeErr),
		}
	}
	return out, nil
}

// unauthorized clears credentials, then runs the hooks.
func (c *Client) unauthorized() {
	if err := c.creds.ClearCredentials(); err != nil {
		c.logger.Errorf("clearing credentials: %v", err)
	}
	c.mu.Lock()
	hooks := append([]func(){}, c.onUnauthorized...)
	c.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// get issues a GET and decodes data into T.
func get[T any](ctx context.Context, c *Client, path string, query map[string]string) (T, error) {
	var out T
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return out, err
	}
	if err := resp.Decode(&out); err != nil {
		return out, &Error{Kind: KindServer, Status: resp.Status, Method: http.MethodGet, Path: path, Err: err}
	}
	return out, nil
}

// post issues a JSON POST and decodes data into T, returning the message too.
func post[T any](ctx context.Context, c *Client, path string, body any) (T, string, error) {
	var out T
	resp, err := c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
	if err != nil {
		return out, "", err
	}
	if err := resp.Decode(&out); err != nil {
		return out, resp.Message, &Error{Kind: KindServer, Status: resp.Status, Method: http.MethodPost, Path: path, Err: err}
	}
	return out, resp.Message, nil
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool { return errors.Is(err, ErrAuth) }
