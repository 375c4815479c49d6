package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// ErrTransport is the sentinel for remote call failures: a non-success status
// or a network-level error. Callers match with errors.Is.
var ErrTransport = errors.New("transport error")

// TransportError reports a failed backend call. The conversation manager
// treats it as "leave state unchanged and log"; it is never surfaced to
// presentation layers.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
}

func (e *TransportError) Error() string {
	if e == nil {
		return ErrTransport.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Message)
}

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// Client talks to the workspace backend. The backend's hierarchy is
// workspace -> project -> message; the client maps it onto the entity model's
// Workspace -> Chat -> Message.
type Client struct {
	httpClient *http.Client
	BaseURL    string
	token      string
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

func WithToken(token string) ClientOption {
	return func(client *Client) {
		client.token = token
	}
}

func NewClient(baseURL string, options ...ClientOption) *Client {
	ret := &Client{
		httpClient: &http.Client{},
		BaseURL:    baseURL,
	}

	for _, option := range options {
		option(ret)
	}

	return ret
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// do issues a request and decodes a 2xx JSON response into out (when out is
// non-nil). Any network failure or non-success status comes back as a
// *TransportError.
func (c *Client) do(ctx context.Context, method string, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	url := c.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Method: method, URL: url, Message: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &TransportError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Message:    string(bytes.TrimSpace(msg)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Method: method, URL: url, Message: "invalid response body: " + err.Error()}
	}
	return nil
}
