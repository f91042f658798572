// Package httpx holds the small REST plumbing shared by vendor providers.
// Every failure it returns is already a *tts.Error tagged with the provider.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nikhilbhutani/ttsgateway/internal/tts"
)

// maxErrorBody bounds how much of a failed response is quoted in errors.
const maxErrorBody = 512

type Client struct {
	provider string
	http     *http.Client
}

// New returns a client whose errors are attributed to provider.
func New(provider string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{provider: provider, http: &http.Client{Timeout: timeout}}
}

// WithHTTPClient swaps the underlying client, mostly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// DoJSON sends body as JSON (when non-nil) and decodes the response into dest
// (when non-nil).
func (c *Client) DoJSON(ctx context.Context, method, url string, headers map[string]string, body any, dest any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return tts.InvalidRequest(c.provider, "marshal request", err)
		}
		reader = bytes.NewReader(b)
		headers = withHeader(headers, "Content-Type", "application/json")
	}

	data, _, err := c.DoRaw(ctx, method, url, headers, reader)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return tts.Unavailable(c.provider, "decode response", err)
	}
	return nil
}

// DoRaw sends the request and returns the full response body.
func (c *Client) DoRaw(ctx context.Context, method, url string, headers map[string]string, body io.Reader) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, nil, tts.InvalidRequest(c.provider, "build request", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, tts.Unavailable(c.provider, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, nil, StatusError(c.provider, resp.StatusCode, string(bytes.TrimSpace(snippet)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, tts.Unavailable(c.provider, "read response", err)
	}
	return data, resp.Header, nil
}

// Probe issues a GET and reports ok on any 2xx response.
func (c *Client) Probe(ctx context.Context, url string, headers map[string]string) tts.HealthStatus {
	if _, _, err := c.DoRaw(ctx, http.MethodGet, url, headers, nil); err != nil {
		return tts.HealthDegraded
	}
	return tts.HealthOK
}

// StatusError maps a vendor HTTP status to the error taxonomy. Client
// mistakes become InvalidRequest; auth, throttling and server faults make
// the provider Unavailable.
func StatusError(provider string, status int, body string) *tts.Error {
	msg := fmt.Sprintf("HTTP %d", status)
	if body != "" {
		msg += ": " + body
	}
	switch status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusRequestEntityTooLarge,
		http.StatusUnprocessableEntity, http.StatusUnsupportedMediaType:
		return tts.InvalidRequest(provider, msg, nil)
	default:
		return tts.Unavailable(provider, msg, nil)
	}
}

func withHeader(headers map[string]string, k, v string) map[string]string {
	out := make(map[string]string, len(headers)+1)
	for hk, hv := range headers {
		out[hk] = hv
	}
	if _, ok := out[k]; !ok {
		out[k] = v
	}
	return out
}
