package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Options carries per-request headers and query parameters. A nil Options
// is equivalent to an empty one.
type Options struct {
	Headers map[string]string
	Query   url.Values
}

// Response is a fully read upstream response with the body decoded to UTF-8.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// StatusError marks a completed request that returned a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
}

// Client performs upstream HTTP fetches on behalf of the aggregation
// pipeline. Retries, redirects and proxying are left to the underlying
// http.Client.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

func NewClient(timeout time.Duration, userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

// Get fetches rawURL, reads the whole body and decodes it to UTF-8.
// Non-2xx responses are returned as a *StatusError.
func (c *Client) Get(ctx context.Context, rawURL string, opts *Options) (*Response, error) {
	resp, err := c.do(ctx, rawURL, opts)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from %s: %w", rawURL, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       decodeBody(body, resp.Header.Get("Content-Type")),
	}, nil
}

// Stream fetches rawURL and hands the raw response back without reading
// the body. The caller owns the body and must close it; status handling
// is also the caller's concern.
func (c *Client) Stream(ctx context.Context, rawURL string, opts *Options) (*http.Response, error) {
	return c.do(ctx, rawURL, opts)
}

func (c *Client) do(ctx context.Context, rawURL string, opts *Options) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", rawURL, err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	if opts != nil {
		for k, v := range opts.Headers {
			req.Header.Set(k, v)
		}
		if len(opts.Query) > 0 {
			q := req.URL.Query()
			for k, vals := range opts.Query {
				for _, v := range vals {
					q.Add(k, v)
				}
			}
			req.URL.RawQuery = q.Encode()
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	return resp, nil
}
