// Package apiclient is a small client for the blundex HTTP API.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/blundex/internal/domain"
	"github.com/park285/blundex/internal/service"
)

// APIError is a non-2xx response. Code is the server's stable error code when the body
// carried one.
type APIError struct {
	Status  int
	Code    string
	Message string
	State   *service.State
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("blundex api %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("blundex api %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, fasthttp.MethodGet, "/healthz", nil, nil, true)
}

func (c *Client) CreateSession(ctx context.Context, req service.CreateRequest) (*service.State, error) {
	return c.state(ctx, fasthttp.MethodPost, "/sessions", req, false)
}

func (c *Client) Session(ctx context.Context, id string) (*service.State, error) {
	return c.state(ctx, fasthttp.MethodGet, sessionPath(id, ""), nil, true)
}

func (c *Client) Move(ctx context.Context, id, move string) (*service.State, error) {
	return c.state(ctx, fasthttp.MethodPost, sessionPath(id, "/moves"), map[string]string{"move": move}, false)
}

func (c *Client) Undo(ctx context.Context, id string) (*service.State, error) {
	return c.state(ctx, fasthttp.MethodPost, sessionPath(id, "/undo"), nil, false)
}

func (c *Client) Redo(ctx context.Context, id string) (*service.State, error) {
	return c.state(ctx, fasthttp.MethodPost, sessionPath(id, "/redo"), nil, false)
}

func (c *Client) Reset(ctx context.Context, id string) (*service.State, error) {
	return c.state(ctx, fasthttp.MethodPost, sessionPath(id, "/reset"), nil, false)
}

func (c *Client) Preview(ctx context.Context, id, move string) (*service.State, error) {
	return c.state(ctx, fasthttp.MethodGet, sessionPath(id, "/preview?move="+url.QueryEscape(move)), nil, true)
}

func (c *Client) Analysis(ctx context.Context, id string) (*service.Analysis, error) {
	var an service.Analysis
	if err := c.doJSON(ctx, fasthttp.MethodGet, sessionPath(id, "/analysis"), nil, &an, true); err != nil {
		return nil, err
	}
	return &an, nil
}

func (c *Client) ExportPGN(ctx context.Context, id string) (string, error) {
	body, err := c.do(ctx, fasthttp.MethodGet, sessionPath(id, "/pgn"), nil, "", true)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(body), "\n"), nil
}

func (c *Client) ImportPGN(ctx context.Context, id, text string) (*service.State, error) {
	body, err := c.do(ctx, fasthttp.MethodPost, sessionPath(id, "/pgn"), []byte(text), "application/x-chess-pgn", false)
	if err != nil {
		return nil, err
	}
	var st service.State
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &st, nil
}

// Board fetches the PNG board image.
func (c *Client) Board(ctx context.Context, id string, flip bool) ([]byte, error) {
	return c.do(ctx, fasthttp.MethodGet, sessionPath(id, fmt.Sprintf("/board.png?flip=%t", flip)), nil, "", true)
}

// CloseSession ends a session. The archived game is nil when nothing was archived.
func (c *Client) CloseSession(ctx context.Context, id string) (*domain.ArchivedGame, error) {
	body, err := c.do(ctx, fasthttp.MethodDelete, sessionPath(id, ""), nil, "", false)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	var g domain.ArchivedGame
	if err := json.Unmarshal(body, &g); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &g, nil
}

func (c *Client) state(ctx context.Context, method, path string, in any, retry bool) (*service.State, error) {
	var st service.State
	if err := c.doJSON(ctx, method, path, in, &st, retry); err != nil {
		return nil, err
	}
	return &st, nil
}

func sessionPath(id, suffix string) string {
	return "/sessions/" + url.PathEscape(id) + suffix
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}
	body, err := c.do(ctx, method, path, payload, "application/json", retry)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// do sends one request, retrying transport failures and 5xx answers when retry is set.
// The returned body is a copy owned by the caller.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, contentType string, retry bool) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if contentType != "" {
		req.Header.SetContentType(contentType)
	}
	if payload != nil {
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			lastErr = apiError(status, resp.Body())
			if !shouldRetryStatus(status) {
				return nil, lastErr
			}
		} else {
			return append([]byte(nil), resp.Body()...), nil
		}

		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return nil, lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, lastErr
}

func apiError(status int, body []byte) *APIError {
	e := &APIError{Status: status}
	var parsed struct {
		Code    string         `json:"error"`
		Message string         `json:"message"`
		State   *service.State `json:"state"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Code != "" {
		e.Code, e.Message, e.State = parsed.Code, parsed.Message, parsed.State
		return e
	}
	e.Message = truncate(string(body), 512)
	return e
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	attempt = max(1, min(attempt, 6))
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case fasthttp.StatusInternalServerError, fasthttp.StatusBadGateway, fasthttp.StatusServiceUnavailable, fasthttp.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
