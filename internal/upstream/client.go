// Package upstream provides the retrying JSON HTTP client used for all
// calls to the third-party generation APIs.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 3
	// DefaultRetryDelay is the fixed pause between attempts. There is no
	// backoff growth and no jitter; the delay is constant.
	DefaultRetryDelay = 1000 * time.Millisecond

	defaultErrorMessage = "Failed to generate image"
)

// ErrorKind classifies a failed upstream call.
type ErrorKind int

const (
	// KindTransport is a failure of the HTTP call itself.
	KindTransport ErrorKind = iota
	// KindHTML is an error response whose body starts with "<", which
	// signals a gateway or proxy in front of the API rather than the
	// API itself.
	KindHTML
	// KindNonJSON is an error response whose body is neither HTML nor
	// valid JSON.
	KindNonJSON
	// KindAPI is a well-formed JSON error from the API.
	KindAPI
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindHTML:
		return "html"
	case KindNonJSON:
		return "non-json"
	case KindAPI:
		return "api"
	}
	return "unknown"
}

// Error is a classified failure from an upstream API call.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Client wraps outbound HTTP calls with bounded retry on transient
// failure and on HTTP 429. No state is shared between independent calls.
type Client struct {
	HTTPClient *http.Client
	MaxRetries int
	RetryDelay time.Duration
}

// New returns a client with the default retry policy.
func New() *Client {
	return &Client{
		HTTPClient: &http.Client{},
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

// DoJSON performs an HTTP request with a JSON body and decodes the JSON
// success response into out. Failed attempts are retried after the fixed
// delay until the retry budget (MaxRetries additional attempts) is
// exhausted, then the last classified error is returned.
func (c *Client) DoJSON(ctx context.Context, method, url string, headers map[string]string, body interface{}, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		err := c.doOnce(ctx, method, url, headers, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if upErr, ok := err.(*Error); ok {
			slog.Error("Upstream request failed",
				"url", url,
				"attempt", attempt+1,
				"kind", upErr.Kind.String(),
				"status", upErr.StatusCode,
				"error", upErr.Message)
		} else {
			slog.Error("Upstream request failed", "url", url, "attempt", attempt+1, "error", err)
		}

		if attempt >= c.MaxRetries {
			return lastErr
		}
		if err := c.sleep(ctx); err != nil {
			return err
		}
	}
}

func (c *Client) doOnce(ctx context.Context, method, url string, headers map[string]string, payload []byte, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyErrorResponse(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindNonJSON, StatusCode: resp.StatusCode, Message: "decode success response", Err: err}
	}
	return nil
}

// classifyErrorResponse reads a failed response's body as text first and
// never assumes it is JSON.
func classifyErrorResponse(resp *http.Response) *Error {
	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindTransport, StatusCode: resp.StatusCode, Message: "read error body", Err: err}
	}
	body := string(text)

	if strings.HasPrefix(body, "<") {
		// An HTML body means a gateway or proxy answered instead of the
		// API; carry the raw HTML as the message.
		return &Error{Kind: KindHTML, StatusCode: resp.StatusCode, Message: body}
	}

	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(text, &apiErr); err != nil {
		return &Error{
			Kind:       KindNonJSON,
			StatusCode: resp.StatusCode,
			Message:    "non-JSON response from upstream",
			Err:        err,
		}
	}

	message := apiErr.Error.Message
	if message == "" {
		message = defaultErrorMessage
	}
	return &Error{Kind: KindAPI, StatusCode: resp.StatusCode, Message: message}
}

func (c *Client) sleep(ctx context.Context) error {
	select {
	case <-time.After(c.RetryDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
