// Package judge calls the Judge0 CE REST API to execute untrusted source code.
//
// Submissions are created with wait=false and polled until Judge0 reports a
// terminal status. Sandboxing, queueing and resource limits are all Judge0's
// problem; this package only speaks the submit/poll wire contract.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ClientTimeoutStatusID is the status forced onto a result when the poll loop
// gives up before Judge0 reports a terminal state. It is deliberately outside
// Judge0's own status vocabulary (1-14) so callers can tell "the judge said
// TLE" apart from "we stopped waiting".
const ClientTimeoutStatusID = 100

// Config holds the connection settings for a Judge0 CE instance.
// BaseURL is the root URL of the Judge0 server (e.g. "https://ce.judge0.com").
// APIKey is optional; it is sent as both X-Api-Key and X-RapidAPI-Key so the
// same setting works for self-hosted and RapidAPI deployments.
type Config struct {
	BaseURL string
	APIKey  string
}

// Client submits code to Judge0 and fetches results.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient constructs a Client from the given config.
func NewClient(cfg Config) *Client {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = "https://ce.judge0.com"
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// SubmissionRequest is the payload for creating a Judge0 submission.
type SubmissionRequest struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin"`
}

// Status is Judge0's submission status. IDs 1-2 mean queued/processing;
// anything above 2 is terminal.
type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Result is a normalized Judge0 submission result.
type Result struct {
	Stdout        string  `json:"stdout"`
	Stderr        string  `json:"stderr"`
	CompileOutput string  `json:"compile_output"`
	Status        Status  `json:"status"`
	Time          *string `json:"time"`
	Memory        *int    `json:"memory"`
}

// Options bounds the polling loop in SubmitAndWait.
type Options struct {
	PollInterval time.Duration
	Timeout      time.Duration
}

// StatusError is returned when Judge0 answers with a non-2xx HTTP status.
// The HTTP layer forwards Code to the end user.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("judge0 returned HTTP %d: %s", e.Code, e.Detail)
}

// CreateSubmission posts a new submission and returns its token.
func (c *Client) CreateSubmission(ctx context.Context, sub SubmissionRequest) (string, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/submissions?base64_encoded=false&wait=false", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit to judge0: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", statusError(resp)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode judge0 response: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("judge0 returned no submission token")
	}
	return out.Token, nil
}

// GetSubmission fetches the current state of a submission by token.
func (c *Client) GetSubmission(ctx context.Context, token string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/submissions/"+token+"?base64_encoded=false", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.setAuth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch submission: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, statusError(resp)
	}

	var raw rawResult
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode judge0 response: %w", err)
	}
	return raw.normalize(), nil
}

// SubmitAndWait creates a submission and polls until Judge0 reports a terminal
// status (status.id > 2) or opts.Timeout of wall-clock time has passed since
// the submission was created.
//
// On timeout no error is returned: the last observed output is kept and the
// result carries the client-side timeout status so the caller can render it
// like any other run outcome. Transport errors during creation or polling
// propagate unchanged; a run is cheap for the user to re-trigger, so nothing
// is retried here.
func (c *Client) SubmitAndWait(ctx context.Context, sub SubmissionRequest, opts Options) (*Result, error) {
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	token, err := c.CreateSubmission(ctx, sub)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	for {
		res, err := c.GetSubmission(ctx, token)
		if err != nil {
			return nil, err
		}
		if res.Status.ID > 2 {
			return res, nil
		}
		if time.Since(started) > timeout {
			res.CompileOutput = "Polling timed out"
			res.Status = Status{
				ID:          ClientTimeoutStatusID,
				Description: "Time Limit Exceeded (client-side)",
			}
			return res, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (c *Client) setAuth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
	}
}

func statusError(resp *http.Response) *StatusError {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return &StatusError{Code: resp.StatusCode, Detail: strings.TrimSpace(string(detail))}
}

// rawResult mirrors the Judge0 wire format, where absent output fields arrive
// as JSON null.
type rawResult struct {
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Status        Status  `json:"status"`
	Time          *string `json:"time"`
	Memory        *int    `json:"memory"`
}

func (r *rawResult) normalize() *Result {
	return &Result{
		Stdout:        normalizeText(r.Stdout),
		Stderr:        normalizeText(r.Stderr),
		CompileOutput: normalizeText(r.CompileOutput),
		Status:        r.Status,
		Time:          r.Time,
		Memory:        r.Memory,
	}
}

// normalizeText turns null fields into empty strings and strips trailing NUL
// bytes, which some Judge0 deployments append to captured output.
func normalizeText(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimRight(*s, "\x00")
}
