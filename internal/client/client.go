package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/example/ec-storefront/internal/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

const (
	DefaultRefreshPath = "/auth/refresh"

	headerAuthorization = "Authorization"
	headerRequestID     = "X-Request-ID"
	maxBodyBytes        = 10 << 20
)

// TokenStore is the session state the client reads and rotates.
// *session.Session satisfies it.
type TokenStore interface {
	Token() (string, bool)
	SetToken(ctx context.Context, token string)
	Clear(ctx context.Context)
}

// LoginRedirector is told when the session could not be refreshed and the
// user has to sign in again.
type LoginRedirector interface {
	RedirectToLogin(ctx context.Context)
}

// RedirectFunc adapts a function to LoginRedirector.
type RedirectFunc func(ctx context.Context)

func (f RedirectFunc) RedirectToLogin(ctx context.Context) { f(ctx) }

type noRedirect struct{}

func (noRedirect) RedirectToLogin(context.Context) {}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// BypassHeader/BypassValue are sent on every request, e.g. to get past a
	// tunnelling proxy's browser warning page.
	BypassHeader string
	BypassValue  string
	RefreshPath  string
	// Jar keeps the server's refresh cookie. Defaults to an in-memory jar.
	Jar http.CookieJar
	// HTTPClient overrides the default client. Its Jar should keep the
	// server's refresh cookie.
	HTTPClient *http.Client
	Redirector LoginRedirector
	Logger     *zap.Logger
}

// Request describes one API call. Body, when non-nil, is JSON encoded.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any
	// NoRefresh turns off 401 recovery for this request. Credential
	// endpoints use it so a rejected password surfaces as a 401.
	NoRefresh bool

	retried bool
	payload []byte
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into out. An empty body leaves out untouched.
func (r *Response) Decode(out any) error {
	if out == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Client is the storefront HTTP client. It attaches the session's bearer
// token, captures rotated tokens from response bodies, and recovers from a
// 401 with a single refresh-and-retry.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	tokens      TokenStore
	redirector  LoginRedirector
	refreshPath string
	logger      *zap.Logger

	mu       sync.RWMutex
	defaults http.Header
}

// New builds a Client over the given token store.
func New(opts Options, tokens TokenStore) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		jar := opts.Jar
		if jar == nil {
			if jar, err = cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}); err != nil {
				return nil, err
			}
		}
		httpClient = &http.Client{Timeout: opts.Timeout, Jar: jar}
	}

	refreshPath := opts.RefreshPath
	if refreshPath == "" {
		refreshPath = DefaultRefreshPath
	}
	redirector := opts.Redirector
	if redirector == nil {
		redirector = noRedirect{}
	}

	defaults := make(http.Header)
	defaults.Set("Accept", "application/json")
	if opts.BypassHeader != "" {
		defaults.Set(opts.BypassHeader, opts.BypassValue)
	}

	return &Client{
		baseURL:     base,
		http:        httpClient,
		tokens:      tokens,
		redirector:  redirector,
		refreshPath: refreshPath,
		logger:      logging.Component(opts.Logger, "client"),
		defaults:    defaults,
	}, nil
}

// Do sends req. A 401 on anything but the refresh endpoint triggers one
// refresh; on success the request is resent once with the new token and that
// result is returned. If the refresh fails the session is cleared, the
// redirector is called and the refresh error is returned wrapped in
// ErrSessionExpired. Other non-2xx statuses come back as *APIError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req.Body != nil && req.payload == nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		req.payload = payload
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < http.StatusBadRequest {
		c.captureToken(ctx, resp)
		return resp, nil
	}

	if resp.StatusCode == http.StatusUnauthorized && !req.retried && !req.NoRefresh && !c.isRefresh(req) {
		req.retried = true

		token, err := c.refresh(ctx)
		if err != nil {
			c.logger.Debug("token refresh failed, clearing session",
				zap.String("path", req.Path), zap.Error(err))
			c.tokens.Clear(ctx)
			c.redirector.RedirectToLogin(ctx)
			return nil, fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}

		bearer := "Bearer " + token
		c.mu.Lock()
		c.defaults.Set(headerAuthorization, bearer)
		c.mu.Unlock()
		if req.Header == nil {
			req.Header = make(http.Header)
		}
		req.Header.Set(headerAuthorization, bearer)

		return c.Do(ctx, req)
	}

	return nil, newAPIError(req, resp)
}

// refresh calls the refresh endpoint and stores the new access token.
func (c *Client) refresh(ctx context.Context) (string, error) {
	c.logger.Debug("refreshing access token")

	resp, err := c.Do(ctx, &Request{Method: http.MethodPost, Path: c.refreshPath})
	if err != nil {
		return "", err
	}

	token := extractToken(resp.Body)
	if token == "" {
		return "", ErrNoRefreshedToken
	}
	c.tokens.SetToken(ctx, token)
	return token, nil
}

func (c *Client) send(ctx context.Context, req *Request) (*Response, error) {
	target, err := c.resolve(req)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.payload != nil {
		body = bytes.NewReader(req.payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	for k, v := range c.defaults {
		httpReq.Header[k] = append([]string(nil), v...)
	}
	c.mu.RUnlock()
	for k, v := range req.Header {
		httpReq.Header[k] = append([]string(nil), v...)
	}

	// the stored token is authoritative; without one the request goes out
	// unauthenticated
	if token, ok := c.tokens.Token(); ok {
		httpReq.Header.Set(headerAuthorization, "Bearer "+token)
	} else {
		httpReq.Header.Del(headerAuthorization)
	}
	if req.payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set(headerRequestID, uuid.NewString())

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s %s: failed to read response: %w", req.Method, req.Path, err)
	}

	c.logger.Debug("request completed",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", httpResp.StatusCode),
		zap.Bool("retry", req.retried),
		zap.Duration("latency", time.Since(start)),
	)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

func (c *Client) resolve(req *Request) (string, error) {
	ref, err := url.Parse(strings.TrimPrefix(req.Path, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", req.Path, err)
	}
	u := c.baseURL.JoinPath(ref.EscapedPath())
	q := ref.Query()
	for k, vs := range req.Query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) isRefresh(req *Request) bool {
	return strings.Contains(req.Path, strings.TrimPrefix(c.refreshPath, "/"))
}

// captureToken persists an access token carried by any successful response.
func (c *Client) captureToken(ctx context.Context, resp *Response) {
	if token := extractToken(resp.Body); token != "" {
		c.tokens.SetToken(ctx, token)
	}
}

func extractToken(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ""
	}
	var payload struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return ""
	}
	return payload.AccessToken
}

// DefaultHeader returns a default header value, mostly for diagnostics.
func (c *Client) DefaultHeader(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaults.Get(key)
}

// Get issues a GET and decodes the body into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.call(ctx, &Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post issues a POST with a JSON body and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, &Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Patch issues a PATCH with a JSON body and decodes the response into out.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body}, out)
}

// Delete issues a DELETE and decodes the response into out.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.call(ctx, &Request{Method: http.MethodDelete, Path: path}, out)
}

func (c *Client) call(ctx context.Context, req *Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}
