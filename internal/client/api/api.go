// Package api is the HTTP client for the users query endpoint:
//
//	GET {base}/api/v1/users?limit=N&page=P&search=TERM
//	-> {"data": {"results": [...], "total": N}}
//
// Each result is a user document, optionally carrying a "_formatted" object
// with highlighted variants of matched attributes.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const usersPath = "/api/v1/users"

// Query selects one page of results for a term. Page is 1-based.
type Query struct {
	Term  string
	Page  int
	Limit int
}

// Page is one decoded response.
type Page struct {
	Results []Hit
	Total   int64
	Latency time.Duration
}

// Hit is a result document split into raw attributes and their highlighted
// variants.
type Hit struct {
	Fields    map[string]any
	Formatted map[string]any
}

func (h *Hit) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if f, ok := raw["_formatted"].(map[string]any); ok {
		h.Formatted = f
	}
	delete(raw, "_formatted")
	h.Fields = raw
	return nil
}

func (h Hit) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(h.Fields)+1)
	for k, v := range h.Fields {
		out[k] = v
	}
	if h.Formatted != nil {
		out["_formatted"] = h.Formatted
	}
	return json.Marshal(out)
}

// ID returns the "id" attribute as a string.
func (h Hit) ID() string {
	s, _ := h.Fields["id"].(string)
	return s
}

type envelope struct {
	Data struct {
		Results []Hit `json:"results"`
		Total   int64 `json:"total"`
	} `json:"data"`
}

// NetworkError means no HTTP response was received.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request %s failed: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPStatusError is a non-2xx response.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTimeout bounds each request, including reading the body. Zero or
// negative means no bound beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.timeout = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// URL renders the request URL for q.
func (c *Client) URL(q Query) string {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(q.Limit))
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("search", q.Term)
	return c.baseURL + usersPath + "?" + v.Encode()
}

// FetchUsers performs one query. Latency covers the full round trip and
// body decoding.
func (c *Client) FetchUsers(ctx context.Context, q Query) (*Page, error) {
	u := c.URL(q)
	start := time.Now()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &NetworkError{URL: u, Err: fmt.Errorf("decode response: %w", err)}
	}

	return &Page{
		Results: env.Data.Results,
		Total:   env.Data.Total,
		Latency: time.Since(start),
	}, nil
}
