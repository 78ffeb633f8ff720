// pkg/cache/client.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// DefaultURL is the public binary cache
const DefaultURL = "https://cache.nixos.org"

// Client handles HTTP requests against a binary cache and the release
// endpoint. Transient failures are retried by the underlying transport.
type Client struct {
	httpClient *retryablehttp.Client
	baseURL    string
	userAgent  string
}

// NewClient creates a cache client for the given base URL
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = timeout

	return &Client{
		httpClient: rc,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userAgent:  "devshell/0.1",
	}
}

// url resolves a request path against the cache base URL. Absolute URLs
// pass through untouched so the same client can talk to the release
// endpoint.
func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + "/" + strings.TrimPrefix(path, "/")
}

// Get performs an HTTP GET request
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", c.url(path), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return resp, nil
}

// Download downloads a file to the given writer
func (c *Client) Download(ctx context.Context, path string, w io.Writer) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, err = io.Copy(w, resp.Body)
	return err
}

// GetString fetches a path and returns the body as a string
func (c *Client) GetString(ctx context.Context, path string) (string, error) {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}

	return string(body), nil
}

// GetJSON fetches a path and decodes the body into v
func (c *Client) GetJSON(ctx context.Context, path string, v any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", c.url(path), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// NARInfo fetches and parses the metadata for a store object
func (c *Client) NARInfo(ctx context.Context, storeHash string) (*NARInfo, error) {
	content, err := c.GetString(ctx, storeHash+".narinfo")
	if err != nil {
		return nil, fmt.Errorf("fetching narinfo for %s: %w", storeHash, err)
	}

	return ParseNARInfo(content)
}
