package fleetapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"flota_console/internal/logger"
	"flota_console/pkg/apperrors"
)

const maxRawMessage = 300

// Observer receives one callback per completed call. status is 0 when no
// response arrived.
type Observer interface {
	ObserveFleetCall(method string, status int, d time.Duration)
}

// Client talks to the fleet REST API on behalf of one session.
type Client struct {
	baseURL    string
	httpClient *http.Client
	observer   Observer

	mu             sync.RWMutex
	token          string
	onUnauthorized func()
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient = &http.Client{Timeout: d} }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New creates a client. token may be empty for the login call.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		token:      token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a client sharing transport and observer with c but
// carrying a different bearer token.
func (c *Client) WithToken(token string) *Client {
	return &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		observer:   c.observer,
		token:      token,
	}
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) BaseURL() string { return c.baseURL }

// OnUnauthorized registers the teardown hook run on any 401 while a token is set.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// envelope is the fleet API's response shape: {data, meta?} on success,
// {message} on error. Login and /auth/me answer with token/user at the top.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	User    json.RawMessage `json:"user"`
}

// do performs one call and decodes the response envelope.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*envelope, error) {
	raw, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	var env envelope
	if len(bytes.TrimSpace(raw)) == 0 {
		return &env, nil
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, badPayload(err)
	}
	return &env, nil
}

// doRaw performs a GET and returns the undecoded body.
func (c *Client) doRaw(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	return c.send(ctx, method, path, query, nil)
}

// send performs one call and maps failures onto the console's error taxonomy:
// no response, 401 with a session, non-2xx with or without a JSON message.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.InternalError(fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, apperrors.InternalError(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := c.Token()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, 0, time.Since(start))
		logger.UpstreamLog(method, path, 0, time.Since(start), err)
		return nil, apperrors.ErrConnection(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	c.observe(method, resp.StatusCode, time.Since(start))
	if err != nil {
		logger.UpstreamLog(method, path, resp.StatusCode, time.Since(start), err)
		return nil, apperrors.ErrConnection(err)
	}

	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		logger.UpstreamLog(method, path, resp.StatusCode, time.Since(start), apperrors.ErrSessionExpired)
		c.unauthorized()
		return nil, apperrors.ErrSessionExpired
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		appErr := apperrors.ErrUpstream(resp.StatusCode, errorMessage(raw))
		logger.UpstreamLog(method, path, resp.StatusCode, time.Since(start), appErr)
		return nil, appErr
	}

	logger.UpstreamLog(method, path, resp.StatusCode, time.Since(start), nil)
	return raw, nil
}

func (c *Client) observe(method string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveFleetCall(method, status, d)
	}
}

func (c *Client) unauthorized() {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// errorMessage extracts {message} from an error body, falling back to the
// raw text. An empty result selects the generic message.
func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		return body.Message
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > maxRawMessage {
		s = s[:maxRawMessage]
	}
	return s
}
