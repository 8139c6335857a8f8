// Package playground provides a Go client for the playground backend API.
//
// The backend runs code through a sandboxed judge and returns the normalized
// output; program failures (compile errors, crashes, TLE) come back inside
// the result, not as client errors.
//
// Usage:
//
//	client := playground.New("https://playground.example.com")
//	res, err := client.Run(ctx, playground.RunRequest{
//	    Language: "python",
//	    Source:   "print(1+1)",
//	})
package playground

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client calls the playground HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client. baseURL is the server root (e.g. "http://localhost:3001").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// RunRequest describes one execution. Either Language (a friendly name like
// "python" or "c++") or LanguageID (a raw judge language ID) must be set.
type RunRequest struct {
	Language   string `json:"language,omitempty"`
	LanguageID *int   `json:"languageId,omitempty"`
	Source     string `json:"source"`
	Stdin      string `json:"stdin,omitempty"`
}

// RunStatus is the judge's verdict for a run.
type RunStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// RunResult is the normalized output of one execution.
type RunResult struct {
	Stdout        string    `json:"stdout"`
	Stderr        string    `json:"stderr"`
	CompileOutput string    `json:"compile_output"`
	Status        RunStatus `json:"status"`
	Time          *string   `json:"time"`
	Memory        *int      `json:"memory"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	OK bool `json:"ok"`
}

// Run executes source code and waits for the result.
func (c *Client) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	return doRequest[RunResult](ctx, c, http.MethodPost, "/api/run", req)
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	return doRequest[HealthResponse](ctx, c, http.MethodGet, "/api/health", nil)
}

func doRequest[T any](ctx context.Context, c *Client, method, path string, body any) (*T, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("playground: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp)
	}

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("playground: decode response: %w", err)
	}
	return &out, nil
}

func parseError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var envelope struct {
		Error  string          `json:"error"`
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != "" {
		apiErr.Message = envelope.Error
		apiErr.Detail = string(envelope.Detail)
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
