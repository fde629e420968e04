// Package client talks to the nocview REST backend. Responses are run
// through the normalize package so callers only ever see canonical models.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/user/nocview/internal/normalize"
	"github.com/user/nocview/internal/util"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 512

// Config configures the client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Headers map[string]string
	// Now is the clock for relative timestamps, time.Now when nil.
	Now func() time.Time
}

// Client is a typed REST client for the backend.
type Client struct {
	baseURL string
	token   string
	headers map[string]string
	http    *http.Client
	norm    *normalize.Normalizer
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api url is empty")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		headers: cfg.Headers,
		http:    &http.Client{Timeout: timeout},
		norm:    normalize.New(cfg.Now),
	}, nil
}

// BaseURL returns the backend URL the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	body, _, err := c.do(ctx, http.MethodGet, path, query, nil)
	return body, err
}

func (c *Client) send(ctx context.Context, method, path string, payload any) ([]byte, error) {
	body, _, err := c.do(ctx, method, path, nil, payload)
	return body, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, http.Header, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: failed to read body: %w", method, path, err)
	}
	util.Debug("%s %s -> %d (%s, request %s)", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond), reqID)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: errorText(body)}
	}
	return body, resp.Header, nil
}

// errorText trims an error body to maxErrorBody bytes without splitting a
// rune.
func errorText(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= maxErrorBody {
		return text
	}
	cut := maxErrorBody
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// Export is a downloaded report.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// filename picks the attachment name from Content-Disposition, falling back
// to def.
func filename(h http.Header, def string) string {
	if h == nil {
		return def
	}
	_, params, err := mime.ParseMediaType(h.Get("Content-Disposition"))
	if err != nil {
		return def
	}
	if name := strings.TrimSpace(params["filename"]); name != "" {
		return name
	}
	return def
}

func pathID(id string) string {
	return url.PathEscape(strings.TrimSpace(id))
}

// list normalizes an array response, accepting an object keyed by name as
// a fallback: {"critical": 3} becomes [{"name": "critical", "value": 3}].
func list(body []byte) ([]any, error) {
	items, err := normalize.Envelope(body)
	if err == nil {
		return items, nil
	}
	obj, oerr := normalize.Object(body)
	if oerr != nil {
		return nil, err
	}
	items = make([]any, 0, len(obj))
	for _, k := range sortedKeys(obj) {
		switch v := obj[k].(type) {
		case map[string]any:
			row := map[string]any{"name": k}
			for kk, vv := range v {
				row[kk] = vv
			}
			items = append(items, row)
		default:
			items = append(items, map[string]any{"name": k, "value": v})
		}
	}
	return items, nil
}

// echoed decodes the record a mutation answers with. The mutation has
// already succeeded, so an empty or unreadable echo yields an empty record.
func echoed(path string, body []byte) map[string]any {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}
	}
	m, err := normalize.Object(body)
	if err != nil {
		util.Debug("%s: ignoring response: %v", path, err)
		return map[string]any{}
	}
	return m
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
