package rosterclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxErrorBody caps how much of an error response is read for its detail.
const maxErrorBody = 64 << 10

// Client is a typed client for the Remote Roster Service REST contract.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for baseURL.  timeout bounds every call, uploads
// included; a call that exceeds it fails like any other transport error.
func New(baseURL string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

// NewWithHTTPClient builds a client around an existing http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// BaseURL returns the service root the client was built for.
func (c *Client) BaseURL() string { return c.baseURL }

// request describes one round trip.
type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

// jsonRequest marshals v as the request body.
func jsonRequest(op, method, path string, v any) (request, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return request{}, fmt.Errorf("%s: encode body: %w", op, err)
	}
	return request{op: op, method: method, path: path, body: bytes.NewReader(b), contentType: "application/json"}, nil
}

// do performs r and returns the raw response body and content type on a
// 2xx status.  Any other outcome is a *ServiceError.
func (c *Client) do(ctx context.Context, r request) ([]byte, string, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return nil, "", &ServiceError{Op: r.op, Err: err}
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json, application/pdf, image/*")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("roster-client: %s %s failed: %v", r.method, r.path, err)
		return nil, "", &ServiceError{Op: r.op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		se := &ServiceError{Op: r.op, Status: resp.StatusCode, Detail: parseDetail(body)}
		log.Printf("roster-client: %s %s -> %d %s", r.method, r.path, resp.StatusCode, se.Detail)
		return nil, "", se
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &ServiceError{Op: r.op, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// doJSON performs r and decodes a JSON response into out.  An empty body
// leaves out untouched.
func (c *Client) doJSON(ctx context.Context, r request, out any) error {
	body, _, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ServiceError{Op: r.op, Status: http.StatusOK, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func pathEscape(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}
